package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
)

// SDP and ICE exchange is point to point: frames carry a target_identity
// and reach exactly one connection of that identity. Frames without a
// target are dropped.

func (ctl *Controller) handleOffer(c *wsConn, data []byte) {
	var p struct {
		Type           string                    `json:"type"`
		TargetIdentity string                    `json:"target_identity"`
		Offer          webrtc.SessionDescription `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad offer payload")
		return
	}
	if p.TargetIdentity == "" {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("offer without target dropped")
		return
	}
	resp := struct {
		Type     string                    `json:"type"`
		GroupID  string                    `json:"group_id"`
		CallerID string                    `json:"caller_id"`
		Offer    webrtc.SessionDescription `json:"offer"`
	}{TypeOffer, string(c.room), string(c.identity), p.Offer}
	ctl.targetJSON(c.room, domain.UserID(p.TargetIdentity), resp)
}

func (ctl *Controller) handleAnswer(c *wsConn, data []byte) {
	var p struct {
		Type           string                    `json:"type"`
		TargetIdentity string                    `json:"target_identity"`
		Answer         webrtc.SessionDescription `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad answer payload")
		return
	}
	if p.TargetIdentity == "" {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("answer without target dropped")
		return
	}
	resp := struct {
		Type     string                    `json:"type"`
		GroupID  string                    `json:"group_id"`
		CallerID string                    `json:"caller_id"`
		Answer   webrtc.SessionDescription `json:"answer"`
	}{TypeAnswer, string(c.room), string(c.identity), p.Answer}
	ctl.targetJSON(c.room, domain.UserID(p.TargetIdentity), resp)
}

func (ctl *Controller) handleCandidate(c *wsConn, data []byte) {
	var p struct {
		Type           string                  `json:"type"`
		TargetIdentity string                  `json:"target_identity"`
		Candidate      webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad candidate payload")
		return
	}
	if p.TargetIdentity == "" {
		log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("candidate without target dropped")
		return
	}
	resp := struct {
		Type      string                  `json:"type"`
		GroupID   string                  `json:"group_id"`
		CallerID  string                  `json:"caller_id"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}{TypeICECandidate, string(c.room), string(c.identity), p.Candidate}
	ctl.targetJSON(c.room, domain.UserID(p.TargetIdentity), resp)
}
