package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
)

// Registry tracks which connections sit in which room and the identity each
// connection acts for. One mutex guards both maps, so a connection is never
// visible in a room without its identity binding.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[domain.RoomID]map[SignalConnection]struct{}
	identities map[SignalConnection]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:      make(map[domain.RoomID]map[SignalConnection]struct{}),
		identities: make(map[SignalConnection]domain.UserID),
	}
}

// Add binds conn to user and places it in room, materializing the room on
// first join. Adding the same connection again just rebinds it.
func (r *Registry) Add(room domain.RoomID, conn SignalConnection, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[SignalConnection]struct{})
		r.rooms[room] = set
	}
	set[conn] = struct{}{}
	r.identities[conn] = user
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("user", string(user)).Msg("connection added")
}

// Remove takes conn out of room and drops its identity binding. The bound
// identity is handed back exactly once; repeated calls for the same
// connection, or calls naming a room conn is not in, report ok=false and
// change nothing. An emptied room is deleted, so a room key exists only
// while it has members.
func (r *Registry) Remove(room domain.RoomID, conn SignalConnection) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[room]
	if !ok {
		return "", false
	}
	// A connection registered elsewhere keeps its binding: the identity
	// comes off only together with the room-set entry.
	if _, in := set[conn]; !in {
		return "", false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
	user, ok := r.identities[conn]
	if !ok {
		return "", false
	}
	delete(r.identities, conn)
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("user", string(user)).Msg("connection removed")
	return user, true
}

// IdentityOf reports the identity conn currently acts for.
func (r *Registry) IdentityOf(conn SignalConnection) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.identities[conn]
	return user, ok
}

func (r *Registry) MemberCount(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Members returns the connections currently in room.
func (r *Registry) Members(room domain.RoomID) []SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[room]
	out := make([]SignalConnection, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Identities returns the identity of every connection in room, one entry
// per connection. A user with two sockets appears twice.
func (r *Registry) Identities(room domain.RoomID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[room]
	out := make([]domain.UserID, 0, len(set))
	for conn := range set {
		out = append(out, r.identities[conn])
	}
	return out
}

// memberRef pairs a connection with its identity so the router can fan out
// on a copy instead of holding the lock across sends.
type memberRef struct {
	conn SignalConnection
	user domain.UserID
}

func (r *Registry) snapshot(room domain.RoomID) []memberRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[room]
	out := make([]memberRef, 0, len(set))
	for conn := range set {
		out = append(out, memberRef{conn: conn, user: r.identities[conn]})
	}
	return out
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	Room        domain.RoomID `json:"room"`
	MemberCount int           `json:"member_count"`
}

// Snapshot lists the rooms that currently have members.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for room, set := range r.rooms {
		out = append(out, RoomInfo{Room: room, MemberCount: len(set)})
	}
	return out
}
