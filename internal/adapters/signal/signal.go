// Package signal is the websocket adapter: it admits connections into
// rooms, pumps frames in and out, and applies the per-type dispatch policy
// on top of the core registry and router.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/core"
	"github.com/circlechat/server/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const sendBuffer = 32

// Limits bounds the transport per connection: the largest inbound frame the
// server reads and how long one outbound write may take.
type Limits struct {
	ReadLimit    int64
	WriteTimeout time.Duration
}

// DefaultLimits backs any limit left unset by config.
var DefaultLimits = Limits{ReadLimit: 32 * 1024, WriteTimeout: 5 * time.Second}

// Storage is what the realtime side needs from persistence.
type Storage interface {
	IsMember(ctx context.Context, group string, user domain.UserID) (bool, error)
	DisplayNameFor(ctx context.Context, user domain.UserID, hint string) string
	SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
}

// Controller owns the websocket endpoint. One instance serves the whole
// process; it is handed its collaborators, never reaches for globals.
type Controller struct {
	reg     *core.Registry
	router  *core.Router
	auth    *auth.Resolver
	storage Storage
	limits  Limits
}

func NewController(reg *core.Registry, router *core.Router, resolver *auth.Resolver, storage Storage, limits Limits) *Controller {
	if limits.ReadLimit <= 0 {
		limits.ReadLimit = DefaultLimits.ReadLimit
	}
	if limits.WriteTimeout <= 0 {
		limits.WriteTimeout = DefaultLimits.WriteTimeout
	}
	return &Controller{
		reg:     reg,
		router:  router,
		auth:    resolver,
		storage: storage,
		limits:  limits,
	}
}

// wsConn is the transport endpoint of one websocket session. Room and
// identity are fixed at admission; the registry binding is the routable
// source of truth.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	sid      core.SessionID
	room     domain.RoomID
	identity domain.UserID
	name     string // display-name hint from the token

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal admits one websocket connection into the room named by the
// :group path param. Admission checks membership with the resolved
// identity; a definitive "not a member" is rejected before the upgrade,
// while a storage failure admits the caller so the realtime path stays up.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	room := domain.RoomID(c.Param("group"))
	id := ctl.auth.Resolve(c.Query("token"))

	member, err := ctl.storage.IsMember(c.Request.Context(), string(room), id.UserID)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(room)).Msg("membership check unavailable, admitting")
	} else if !member {
		log.Info().Str("module", "signal").Str("room", string(room)).Str("user", string(id.UserID)).Msg("rejected: not a member")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	// A frame over the limit fails the next read, which tears the
	// connection down through the normal departure path.
	ws.SetReadLimit(ctl.limits.ReadLimit)

	conn := &wsConn{
		conn:     ws,
		send:     make(chan core.Frame, sendBuffer),
		sid:      core.SessionID(uuid.NewString()),
		room:     room,
		identity: id.UserID,
		name:     id.Name,
	}
	ctl.reg.Add(room, conn, id.UserID)
	log.Info().Str("module", "signal").Str("sid", string(conn.sid)).Str("room", string(room)).Str("user", string(id.UserID)).Msg("new WS connection")

	ctl.announceJoin(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

// announceJoin tells the room about the newcomer. The newcomer itself does
// not hear its own join.
func (ctl *Controller) announceJoin(conn *wsConn) {
	resp := struct {
		Type    string `json:"type"`
		UserID  string `json:"user_id"`
		GroupID string `json:"group_id"`
	}{TypeUserJoined, string(conn.identity), string(conn.room)}
	ctl.broadcastJSON(conn.room, resp, conn)
}

// teardown runs once per connection on the way out. The registry hands the
// identity back a single time, so the departure notice cannot double-fire.
func (ctl *Controller) teardown(conn *wsConn) {
	conn.Close()
	if user, ok := ctl.reg.Remove(conn.room, conn); ok {
		ctl.announceDepartures(conn.room, []domain.UserID{user})
	}
}

// announceDepartures broadcasts user_left for each departed identity. A
// departure notice can itself expose dead peers, so those are announced
// too until the room settles.
func (ctl *Controller) announceDepartures(room domain.RoomID, departed []domain.UserID) {
	queue := append([]domain.UserID(nil), departed...)
	for len(queue) > 0 {
		user := queue[0]
		queue = queue[1:]

		resp := struct {
			Type    string `json:"type"`
			UserID  string `json:"user_id"`
			GroupID string `json:"group_id"`
		}{TypeUserLeft, string(user), string(room)}
		b, ok := marshalEnvelope(resp)
		if !ok {
			continue
		}
		res := ctl.router.Broadcast(room, b, nil)
		queue = append(queue, res.Departed...)
	}
}
