package signal

// Wire envelope types. Inbound frames carry one of these in their "type"
// field; unrecognized values are dropped without closing the connection.
const (
	TypePing             = "ping"
	TypeMessage          = "message"
	TypeCallStart        = "call_start"
	TypeCallEnd          = "call_end"
	TypeCallAccept       = "call_accept"
	TypeCallDecline      = "call_decline"
	TypeOffer            = "webrtc_offer"
	TypeAnswer           = "webrtc_answer"
	TypeICECandidate     = "webrtc_ice_candidate"
	TypeMuteStatus       = "participant_mute_status"
	TypeParticipantReady = "call_participant_ready"
)

// Server-emitted envelope types.
const (
	TypePong             = "pong"
	TypeNewMessage       = "new_message"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeParticipantsList = "call_participants_list"
)
