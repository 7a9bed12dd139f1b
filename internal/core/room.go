package core

// Sender delivers an encoded frame to one connection's outbound queue.
// Send must not block; it reports false when the frame was dropped.
type Sender interface {
	Send(frame []byte) bool
}

// MemberInfo is the externally visible identity of a room member.
type MemberInfo struct {
	ClientID string
	Username string
}

// Snapshot is an ordered view of a room's membership.
// HostID is empty when the room does not exist.
type Snapshot struct {
	Participants []MemberInfo
	HostID       string
}

type member struct {
	clientID string
	username string
	sender   Sender
}

// room groups members watching together under one code.
// The join order is kept so host failover is deterministic.
type room struct {
	hostID  string
	order   []string
	members map[string]*member
}

func newRoom() *room {
	return &room{
		members: make(map[string]*member),
	}
}

// firstRemaining returns the earliest-joined member still present.
func (r *room) firstRemaining() string {
	for _, id := range r.order {
		if _, ok := r.members[id]; ok {
			return id
		}
	}
	return ""
}

// dropFromOrder removes id from the join order, so a later rejoin with
// the same clientId is appended once rather than listed twice.
func (r *room) dropFromOrder(id string) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *room) snapshot() Snapshot {
	snap := Snapshot{HostID: r.hostID}
	for _, id := range r.order {
		m, ok := r.members[id]
		if !ok {
			continue
		}
		snap.Participants = append(snap.Participants, MemberInfo{
			ClientID: m.clientID,
			Username: m.username,
		})
	}
	return snap
}
