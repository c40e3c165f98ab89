package core

import (
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
)

// Router fans frames out over registry membership. Delivery is best-effort:
// a connection that cannot take a frame is evicted from the registry and
// closed, and its identity is reported so the caller can announce the
// departure.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// PublishResult reports delivery and eviction outcome of one fanout.
type PublishResult struct {
	SentTo   int
	Departed []domain.UserID
}

// Broadcast delivers data to every connection in room, skipping except when
// it is non-nil. Receivers that fail are evicted and show up in Departed.
func (rt *Router) Broadcast(room domain.RoomID, data Frame, except SignalConnection) PublishResult {
	var failed []SignalConnection
	res := PublishResult{}
	for _, m := range rt.reg.snapshot(room) {
		if m.conn == except {
			continue
		}
		if err := m.conn.TrySend(data); err != nil {
			failed = append(failed, m.conn)
			continue
		}
		res.SentTo++
	}
	for _, conn := range failed {
		if user, ok := rt.evict(room, conn); ok {
			res.Departed = append(res.Departed, user)
		}
	}
	log.Debug().Str("module", "core.router").Str("room", string(room)).Int("sent_to", res.SentTo).Int("departed", len(res.Departed)).Msg("broadcast result")
	return res
}

// SendToUser delivers data to the first healthy connection bound to user in
// room. Candidates that fail along the way are evicted. delivered is false
// when no connection accepted the frame.
func (rt *Router) SendToUser(room domain.RoomID, to domain.UserID, data Frame) (delivered bool, departed []domain.UserID) {
	for _, m := range rt.reg.snapshot(room) {
		if m.user != to {
			continue
		}
		if err := m.conn.TrySend(data); err != nil {
			if user, ok := rt.evict(room, m.conn); ok {
				departed = append(departed, user)
			}
			continue
		}
		return true, departed
	}
	log.Debug().Str("module", "core.router").Str("room", string(room)).Str("to", string(to)).Msg("target not reachable")
	return false, departed
}

func (rt *Router) evict(room domain.RoomID, conn SignalConnection) (domain.UserID, bool) {
	user, ok := rt.reg.Remove(room, conn)
	conn.Close()
	return user, ok
}
