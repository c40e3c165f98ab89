package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Call lifecycle envelopes are ephemeral relays: nothing is persisted, the
// server only stamps who sent what.

func (ctl *Controller) handleCallStart(c *wsConn, data []byte) {
	var p struct {
		Type       string `json:"type"`
		CallType   string `json:"call_type"`
		CallerName string `json:"caller_name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad call_start payload")
		return
	}
	resp := struct {
		Type       string `json:"type"`
		GroupID    string `json:"group_id"`
		CallerID   string `json:"caller_id"`
		CallerName string `json:"caller_name,omitempty"`
		CallType   string `json:"call_type,omitempty"`
	}{TypeCallStart, string(c.room), string(c.identity), p.CallerName, p.CallType}
	ctl.broadcastJSON(c.room, resp, c)
}

func (ctl *Controller) handleCallEnd(c *wsConn) {
	resp := struct {
		Type    string `json:"type"`
		GroupID string `json:"group_id"`
		UserID  string `json:"user_id"`
	}{TypeCallEnd, string(c.room), string(c.identity)}
	ctl.broadcastJSON(c.room, resp, nil)
}

func (ctl *Controller) handleCallAccept(c *wsConn, data []byte) {
	var p struct {
		Type         string `json:"type"`
		AcceptorName string `json:"acceptor_name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad call_accept payload")
		return
	}
	resp := struct {
		Type         string `json:"type"`
		GroupID      string `json:"group_id"`
		UserID       string `json:"user_id"`
		AcceptorName string `json:"acceptor_name,omitempty"`
	}{TypeCallAccept, string(c.room), string(c.identity), p.AcceptorName}
	ctl.broadcastJSON(c.room, resp, nil)
}

func (ctl *Controller) handleCallDecline(c *wsConn) {
	resp := struct {
		Type    string `json:"type"`
		GroupID string `json:"group_id"`
		UserID  string `json:"user_id"`
	}{TypeCallDecline, string(c.room), string(c.identity)}
	ctl.broadcastJSON(c.room, resp, nil)
}

func (ctl *Controller) handleMuteStatus(c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		IsMuted *bool  `json:"is_muted"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad mute payload")
		return
	}
	if p.IsMuted == nil {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("mute status without is_muted dropped")
		return
	}
	resp := struct {
		Type    string `json:"type"`
		GroupID string `json:"group_id"`
		UserID  string `json:"user_id"`
		IsMuted bool   `json:"is_muted"`
	}{TypeMuteStatus, string(c.room), string(c.identity), *p.IsMuted}
	ctl.broadcastJSON(c.room, resp, c)
}

// handleParticipantReady answers the sender with who else is in the room,
// then tells the room the sender is ready. The list is built per
// connection, so a user on two sockets shows up twice.
func (ctl *Controller) handleParticipantReady(c *wsConn) {
	participants := make([]string, 0)
	for _, member := range ctl.reg.Members(c.room) {
		if member == c {
			continue
		}
		if id, ok := ctl.reg.IdentityOf(member); ok {
			participants = append(participants, string(id))
		}
	}
	// An evicted sender has nothing left to announce
	if !ctl.sendJSON(c, struct {
		Type         string   `json:"type"`
		GroupID      string   `json:"group_id"`
		Participants []string `json:"participants"`
	}{TypeParticipantsList, string(c.room), participants}) {
		return
	}

	resp := struct {
		Type    string `json:"type"`
		GroupID string `json:"group_id"`
		UserID  string `json:"user_id"`
	}{TypeParticipantReady, string(c.room), string(c.identity)}
	ctl.broadcastJSON(c.room, resp, c)
}
