package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/core"
	"github.com/circlechat/server/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.limits.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the per-connection task: frames are dispatched one at a time
// in receipt order, never in parallel.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(c.sid)).Msg("readPump closing")
		cancel()
		ctl.teardown(c)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad json")
		return
	}

	switch env.Type {
	case TypePing:
		ctl.handlePing(c)
	case TypeMessage:
		ctl.handleMessage(ctx, c, data)
	case TypeCallStart:
		ctl.handleCallStart(c, data)
	case TypeCallEnd:
		ctl.handleCallEnd(c)
	case TypeCallAccept:
		ctl.handleCallAccept(c, data)
	case TypeCallDecline:
		ctl.handleCallDecline(c)
	case TypeOffer:
		ctl.handleOffer(c, data)
	case TypeAnswer:
		ctl.handleAnswer(c, data)
	case TypeICECandidate:
		ctl.handleCandidate(c, data)
	case TypeMuteStatus:
		ctl.handleMuteStatus(c, data)
	case TypeParticipantReady:
		ctl.handleParticipantReady(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func marshalEnvelope(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal envelope")
		return nil, false
	}
	return b, true
}

// handlePing answers an application-level keepalive on the same socket.
func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{TypePong})
}

// sendJSON queues one envelope for a single connection. A connection that
// cannot take its own reply is as dead as one that fails a fanout, so it
// goes through the same teardown and departure path. Reports whether the
// envelope was queued.
func (ctl *Controller) sendJSON(c *wsConn, v any) bool {
	b, ok := marshalEnvelope(v)
	if !ok {
		return false
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("direct send failed, evicting")
		ctl.teardown(c)
		return false
	}
	return true
}

// broadcastJSON fans an envelope out over the room and announces whoever
// fell off during delivery.
func (ctl *Controller) broadcastJSON(room domain.RoomID, v any, except core.SignalConnection) {
	b, ok := marshalEnvelope(v)
	if !ok {
		return
	}
	res := ctl.router.Broadcast(room, b, except)
	ctl.announceDepartures(room, res.Departed)
}

// targetJSON delivers an envelope to one identity in the room. Nobody home
// is not an error.
func (ctl *Controller) targetJSON(room domain.RoomID, to domain.UserID, v any) {
	b, ok := marshalEnvelope(v)
	if !ok {
		return
	}
	delivered, departed := ctl.router.SendToUser(room, to, b)
	if !delivered {
		log.Debug().Str("module", "signal").Str("room", string(room)).Str("to", string(to)).Msg("target not reachable")
	}
	ctl.announceDepartures(room, departed)
}
