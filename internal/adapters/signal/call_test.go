package signal

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// threeInRoom dials alice, bob and carol into g1 and drains the join
// notices, so every later read is test traffic.
func threeInRoom(t *testing.T, fs *fakeStorage) (alice, bob, carol *websocket.Conn) {
	t.Helper()
	req := require.New(t)
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	fs.allow("g1", "carol")
	srv := newTestServer(t, fs)

	alice = dial(t, srv, "g1", "alice")
	bob = dial(t, srv, "g1", "bob")
	carol = dial(t, srv, "g1", "carol")

	env := readEnvelope(t, alice)
	req.Equal(TypeUserJoined, env["type"])
	req.Equal("bob", env["user_id"])
	env = readEnvelope(t, alice)
	req.Equal(TypeUserJoined, env["type"])
	req.Equal("carol", env["user_id"])
	env = readEnvelope(t, bob)
	req.Equal(TypeUserJoined, env["type"])
	req.Equal("carol", env["user_id"])

	return alice, bob, carol
}

func TestCallStart_Excludes_Caller(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := threeInRoom(t, newFakeStorage())

	send(t, alice, `{"type":"call_start","call_type":"audio","caller_name":"Ada"}`)

	for _, peer := range []*websocket.Conn{bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeCallStart, env["type"])
		req.Equal("alice", env["caller_id"])
		req.Equal("Ada", env["caller_name"])
		req.Equal("audio", env["call_type"])
		req.Equal("g1", env["group_id"])
	}
	expectSilence(t, alice)
}

func TestCallAccept_Reaches_Everyone(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := threeInRoom(t, newFakeStorage())

	send(t, bob, `{"type":"call_accept","acceptor_name":"Bob"}`)

	for _, peer := range []*websocket.Conn{alice, bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeCallAccept, env["type"])
		req.Equal("bob", env["user_id"])
		req.Equal("Bob", env["acceptor_name"])
	}
}

func TestCallDecline_And_End_Reach_Everyone(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := threeInRoom(t, newFakeStorage())

	send(t, carol, `{"type":"call_decline"}`)
	for _, peer := range []*websocket.Conn{alice, bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeCallDecline, env["type"])
		req.Equal("carol", env["user_id"])
	}

	send(t, alice, `{"type":"call_end"}`)
	for _, peer := range []*websocket.Conn{alice, bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeCallEnd, env["type"])
		req.Equal("alice", env["user_id"])
	}
}

func TestMuteStatus_Excludes_Sender_And_Requires_Flag(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := threeInRoom(t, newFakeStorage())

	// Missing is_muted is dropped, the complete envelope goes through
	send(t, alice, `{"type":"participant_mute_status"}`)
	send(t, alice, `{"type":"participant_mute_status","is_muted":true}`)

	for _, peer := range []*websocket.Conn{bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeMuteStatus, env["type"])
		req.Equal("alice", env["user_id"])
		req.Equal(true, env["is_muted"])
	}
	expectSilence(t, alice)
}

func TestParticipantReady_Lists_Others_And_Notifies_Room(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := threeInRoom(t, newFakeStorage())

	send(t, alice, `{"type":"call_participant_ready"}`)

	// The sender gets the roster of everyone but itself
	env := readEnvelope(t, alice)
	req.Equal(TypeParticipantsList, env["type"])
	req.Equal("g1", env["group_id"])
	list, ok := env["participants"].([]any)
	req.True(ok)
	req.ElementsMatch([]any{"bob", "carol"}, list)

	// The others each get one ready notice
	for _, peer := range []*websocket.Conn{bob, carol} {
		env := readEnvelope(t, peer)
		req.Equal(TypeParticipantReady, env["type"])
		req.Equal("alice", env["user_id"])
	}
}

func TestParticipantReady_Alone_Gets_Empty_List(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	srv := newTestServer(t, fs)
	alice := dial(t, srv, "g1", "alice")

	send(t, alice, `{"type":"call_participant_ready"}`)

	env := readEnvelope(t, alice)
	req.Equal(TypeParticipantsList, env["type"])
	list, ok := env["participants"].([]any)
	req.True(ok)
	req.Empty(list)
}
