package core

import "sync"

// Registry is the authoritative, in-memory mapping of room code to
// membership and host assignment. It is safe for concurrent use; every
// operation holds one lock so host election is atomic with respect to
// membership changes. State does not survive a process restart.
type Registry struct {
	mu          sync.Mutex
	maxRoomSize int
	rooms       map[string]*room
}

// NewRegistry constructs an empty registry. maxRoomSize caps members per
// room; zero means no cap.
func NewRegistry(maxRoomSize int) *Registry {
	return &Registry{
		maxRoomSize: maxRoomSize,
		rooms:       make(map[string]*room),
	}
}

// RemoveResult describes the outcome of removing a member.
type RemoveResult struct {
	Removed     bool
	RoomDeleted bool
	HostChanged bool
	// NewHostID is set when HostChanged is true.
	NewHostID string
}

// AddMember inserts or replaces the member entry for clientID in the room,
// creating the room if the code is unknown. A rejoin with the same clientID
// keeps its original join position but replaces username and sender, so a
// stale connection is no longer addressed. The first member of a room
// becomes its host.
//
// It reports whether the member is now host and whether the join was
// accepted (false only when the room is full).
func (g *Registry) AddMember(code, clientID, username string, s Sender) (becameHost, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		r = newRoom()
		g.rooms[code] = r
	}

	if _, rejoin := r.members[clientID]; !rejoin {
		if g.maxRoomSize > 0 && len(r.members) >= g.maxRoomSize {
			if !exists {
				delete(g.rooms, code)
			}
			return false, false
		}
		r.order = append(r.order, clientID)
	}

	r.members[clientID] = &member{clientID: clientID, username: username, sender: s}
	if r.hostID == "" {
		r.hostID = clientID
	}
	return r.hostID == clientID, true
}

// RemoveMember deletes the member from the room. When the host leaves,
// the earliest-joined remaining member is promoted; when the last member
// leaves, the room is deleted. Unknown rooms and members are no-ops.
//
// owner must be the sender the member was added with: a rejoin replaces
// the sender, and the stale connection's disconnect must not eject the
// member the fresh connection now owns. A nil owner skips the check.
func (g *Registry) RemoveMember(code, clientID string, owner Sender) RemoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		return RemoveResult{}
	}
	m, ok := r.members[clientID]
	if !ok {
		return RemoveResult{}
	}
	if owner != nil && m.sender != owner {
		return RemoveResult{}
	}

	delete(r.members, clientID)
	r.dropFromOrder(clientID)
	res := RemoveResult{Removed: true}

	if len(r.members) == 0 {
		delete(g.rooms, code)
		res.RoomDeleted = true
		return res
	}

	if r.hostID == clientID {
		r.hostID = r.firstRemaining()
		res.HostChanged = true
		res.NewHostID = r.hostID
	}
	return res
}

// Snapshot returns the ordered membership and host of a room. An unknown
// code yields an empty snapshot with no host.
func (g *Registry) Snapshot(code string) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		return Snapshot{}
	}
	return r.snapshot()
}

// HostID returns the current host of a room, or "" if the room is unknown.
func (g *Registry) HostID(code string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, exists := g.rooms[code]; exists {
		return r.hostID
	}
	return ""
}

// Broadcast enqueues frame to every member of the room except the one
// identified by except (pass "" to reach everyone). All targets are
// enqueued before the lock is released, so two successive broadcasts are
// observed in the same order by every member. Returns the number of
// members the frame was enqueued to.
func (g *Registry) Broadcast(code, except string, frame []byte) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		return 0
	}

	n := 0
	for _, id := range r.order {
		m, ok := r.members[id]
		if !ok || id == except {
			continue
		}
		if m.sender.Send(frame) {
			n++
		}
	}
	return n
}

// SendTo enqueues frame to a single member. It reports false when the
// room or member is unknown or the member's queue is full.
func (g *Registry) SendTo(code, clientID string, frame []byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		return false
	}
	m, ok := r.members[clientID]
	if !ok {
		return false
	}
	return m.sender.Send(frame)
}

// RoomCount returns the number of live rooms.
func (g *Registry) RoomCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
