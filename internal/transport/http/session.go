package http

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/TsegabAbreham/MovieApp/internal/core"
	"github.com/TsegabAbreham/MovieApp/internal/proto"
)

const sendQueueSize = 64

// session is the per-connection handler. It remembers which room and
// clientId the connection has joined, dispatches inbound frames, and owns
// the outbound queue drained by the write loop. A connection joins at most
// one room; a second join overwrites the association.
type session struct {
	registry    *core.Registry
	log         *zerolog.Logger
	enforceHost bool

	connID string
	send   chan []byte

	joined   bool
	room     string
	clientID string
}

func newSession(registry *core.Registry, enforceHost bool, connID string, logger *zerolog.Logger) *session {
	return &session{
		registry:    registry,
		log:         logger,
		enforceHost: enforceHost,
		connID:      connID,
		send:        make(chan []byte, sendQueueSize),
	}
}

// Send enqueues a frame for the write loop. Frames to slow consumers are
// dropped rather than blocking the room.
func (s *session) Send(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		s.log.Warn().Str("conn_id", s.connID).Msg("send queue full, dropping frame")
		return false
	}
}

// handleFrame routes one inbound frame. Protocol errors are logged and
// dropped; they are never fatal to the connection.
func (s *session) handleFrame(raw []byte) {
	typ, ok := proto.Peek(raw)
	if !ok {
		s.log.Debug().Str("conn_id", s.connID).Msg("malformed frame dropped")
		return
	}

	switch {
	case typ == proto.TypeJoin:
		s.handleJoin(raw)
	case typ == proto.TypePresenceGet:
		s.handlePresenceGet(raw)
	case typ == proto.TypeLeave:
		s.leave()
	case proto.IsControl(typ):
		s.handleControl(typ, raw)
	default:
		s.log.Debug().Str("conn_id", s.connID).Str("type", typ).Msg("unknown frame type dropped")
	}
}

func (s *session) handleJoin(raw []byte) {
	var f proto.Join
	if err := json.Unmarshal(raw, &f); err != nil || f.Room == "" || f.ClientID == "" {
		s.log.Debug().Str("conn_id", s.connID).Msg("invalid join dropped")
		return
	}
	if f.Username == "" {
		f.Username = "Guest"
	}
	if s.joined && (s.room != f.Room || s.clientID != f.ClientID) {
		// Permitted, not re-validated: the new association wins. The old
		// one is released first so its room does not keep a ghost member.
		s.log.Debug().Str("conn_id", s.connID).Str("old_room", s.room).Str("room", f.Room).Msg("connection re-joining with a new association")
		s.leave()
	}

	becameHost, ok := s.registry.AddMember(f.Room, f.ClientID, f.Username, s)
	if !ok {
		s.log.Info().Str("room", f.Room).Str("client_id", f.ClientID).Msg("join rejected, room full")
		return
	}

	s.joined = true
	s.room = f.Room
	s.clientID = f.ClientID

	s.Send(encode(proto.Host{Type: proto.TypeHost, IsHost: becameHost}))
	s.registry.Broadcast(f.Room, f.ClientID, encode(proto.UserJoined{
		Type:     proto.TypeUserJoined,
		ClientID: f.ClientID,
		Username: f.Username,
	}))
	s.registry.Broadcast(f.Room, "", encode(presenceFrame(s.registry.Snapshot(f.Room))))

	s.log.Info().
		Str("room", f.Room).
		Str("client_id", f.ClientID).
		Str("username", f.Username).
		Bool("host", becameHost).
		Msg("member joined")
}

func (s *session) handlePresenceGet(raw []byte) {
	var f proto.PresenceGet
	if err := json.Unmarshal(raw, &f); err != nil {
		s.log.Debug().Str("conn_id", s.connID).Msg("invalid presence:get dropped")
		return
	}

	room := f.Room
	if room == "" {
		room = s.room
	}
	// Unknown rooms yield an empty snapshot with a null host, never an error.
	s.Send(encode(presenceFrame(s.registry.Snapshot(room))))
}

// handleControl relays start/reload/play/pause/seek to every other member,
// attaching the sender's clientId and leaving the payload uninspected.
func (s *session) handleControl(typ string, raw []byte) {
	if !s.joined {
		s.log.Debug().Str("conn_id", s.connID).Str("type", typ).Msg("control before join dropped")
		return
	}
	if s.enforceHost && s.clientID != s.registry.HostID(s.room) {
		s.log.Debug().
			Str("room", s.room).
			Str("client_id", s.clientID).
			Str("type", typ).
			Msg("control from non-host dropped")
		return
	}

	frame, err := proto.AttachSender(raw, s.clientID)
	if err != nil {
		s.log.Debug().Str("conn_id", s.connID).Err(err).Msg("unparseable control dropped")
		return
	}
	s.registry.Broadcast(s.room, s.clientID, frame)
}

// leave removes the member, announces the departure, and runs host
// failover. It is the common path for an explicit leave frame and for a
// transport disconnect.
func (s *session) leave() {
	if !s.joined {
		return
	}
	s.joined = false

	// Ownership-checked: if a rejoin has replaced this connection's
	// membership, the stale leave must not eject the live member.
	res := s.registry.RemoveMember(s.room, s.clientID, s)
	if !res.Removed {
		return
	}

	s.log.Info().Str("room", s.room).Str("client_id", s.clientID).Msg("member left")

	if res.RoomDeleted {
		s.log.Info().Str("room", s.room).Msg("room deleted, no members remain")
		return
	}

	s.registry.Broadcast(s.room, "", encode(proto.UserLeft{Type: proto.TypeUserLeft, ClientID: s.clientID}))
	s.registry.Broadcast(s.room, "", encode(presenceFrame(s.registry.Snapshot(s.room))))

	if res.HostChanged {
		s.registry.Broadcast(s.room, "", encode(proto.Host{Type: proto.TypeHost, IsHost: false}))
		s.registry.SendTo(s.room, res.NewHostID, encode(proto.Host{Type: proto.TypeHost, IsHost: true}))
		s.log.Info().Str("room", s.room).Str("client_id", res.NewHostID).Msg("host reassigned")
	}
}

func presenceFrame(snap core.Snapshot) proto.Presence {
	p := proto.Presence{
		Type:         proto.TypePresence,
		Participants: make([]proto.Participant, 0, len(snap.Participants)),
	}
	for _, m := range snap.Participants {
		p.Participants = append(p.Participants, proto.Participant{
			ClientID: m.ClientID,
			Username: m.Username,
		})
	}
	if snap.HostID != "" {
		hostID := snap.HostID
		p.HostID = &hostID
	}
	return p
}

// encode marshals an outbound frame. Our frame types cannot fail to marshal.
func encode(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
