package proto

import "encoding/json"

// Frame types sent by clients.
const (
	TypeJoin        = "join"
	TypePresenceGet = "presence:get"
	TypeLeave       = "leave"
	TypeStart       = "start"
	TypeReload      = "reload"
	TypePlay        = "play"
	TypePause       = "pause"
	TypeSeek        = "seek"
)

// Frame types sent by the relay.
const (
	TypeHost       = "host"
	TypePresence   = "presence"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
)

// Every frame is a flat JSON object tagged with a "type" field.
// Unknown fields are ignored on both sides.

// Peek extracts the type tag from a raw frame. A frame that is not a JSON
// object or carries no type is malformed and must be dropped.
func Peek(raw []byte) (string, bool) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		return "", false
	}
	return env.Type, true
}

// IsControl reports whether t is a playback-control frame the relay
// forwards without interpreting.
func IsControl(t string) bool {
	switch t {
	case TypeStart, TypeReload, TypePlay, TypePause, TypeSeek:
		return true
	}
	return false
}

// AttachSender returns raw with the sender's clientId injected, leaving
// every other field untouched.
func AttachSender(raw []byte, clientID string) ([]byte, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["clientId"] = clientID
	return json.Marshal(fields)
}

// Join registers the sender as a member of a room.
type Join struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
	Username string `json:"username,omitempty"`
}

// PresenceGet asks for a membership snapshot, sent back to the requester only.
type PresenceGet struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
}

// Host tells one connection whether it is the room's host.
type Host struct {
	Type   string `json:"type"`
	IsHost bool   `json:"isHost"`
}

// Participant is one entry of a presence snapshot.
type Participant struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

// Presence is the full membership snapshot of a room. HostID is null when
// the room does not exist.
type Presence struct {
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
	HostID       *string       `json:"hostId"`
}

// UserJoined announces a new member to everyone except the joiner.
type UserJoined struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

// UserLeft announces a departed member to the remaining members.
type UserLeft struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

// Start schedules a synchronized playback start. The relay forwards it
// verbatim; StartAt is epoch milliseconds interpreted only by clients.
type Start struct {
	Type     string `json:"type"`
	StartAt  int64  `json:"startAt"`
	Season   string `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// Seek is a transport command carrying a playback position in seconds.
type Seek struct {
	Type     string  `json:"type"`
	Time     float64 `json:"time"`
	ClientID string  `json:"clientId,omitempty"`
}

// Control is a bare transport command (reload, play, pause).
type Control struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId,omitempty"`
}
