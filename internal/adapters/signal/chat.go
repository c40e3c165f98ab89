package signal

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
)

// handleMessage is the one persisted path: membership gates it, the store
// assigns id and timestamp, and the saved projection goes to the whole room
// including the sender. When the store is down the room still hears the
// message, just without an id.
func (ctl *Controller) handleMessage(ctx context.Context, c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad message payload")
		return
	}
	if strings.TrimSpace(p.Content) == "" {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("empty message dropped")
		return
	}

	member, memberErr := ctl.storage.IsMember(ctx, string(c.room), c.identity)
	if memberErr == nil && !member {
		log.Info().Str("module", "signal").Str("room", string(c.room)).Str("user", string(c.identity)).Msg("message from non-member dropped")
		return
	}

	username := ctl.storage.DisplayNameFor(ctx, c.identity, c.name)
	msg := domain.Message{
		GroupID:   c.room,
		UserID:    c.identity,
		Username:  username,
		Content:   p.Content,
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case memberErr != nil:
		log.Warn().Err(memberErr).Str("module", "signal").Str("room", string(c.room)).Msg("membership check unavailable, relaying unsaved")
	default:
		saved, err := ctl.storage.SaveMessage(ctx, msg)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("room", string(c.room)).Msg("persist failed, relaying unsaved")
		} else {
			msg = saved
		}
	}

	resp := struct {
		Type      string    `json:"type"`
		ID        string    `json:"id"`
		GroupID   string    `json:"group_id"`
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}{TypeNewMessage, msg.ID, string(msg.GroupID), string(msg.UserID), msg.Username, msg.Content, msg.CreatedAt}
	ctl.broadcastJSON(c.room, resp, nil)
}
