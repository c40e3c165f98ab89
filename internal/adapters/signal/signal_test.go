package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/core"
	"github.com/circlechat/server/internal/domain"
)

type fakeStorage struct {
	mu        sync.Mutex
	members   map[string]bool
	memberErr error
	saveErr   error
	saved     []domain.Message
	seq       int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{members: make(map[string]bool)}
}

func (f *fakeStorage) allow(group string, user domain.UserID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[group+"/"+string(user)] = true
}

func (f *fakeStorage) IsMember(_ context.Context, group string, user domain.UserID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.members[group+"/"+string(user)], nil
}

func (f *fakeStorage) DisplayNameFor(_ context.Context, user domain.UserID, hint string) string {
	if hint != "" {
		return hint
	}
	return domain.DefaultDisplayName
}

func (f *fakeStorage) SaveMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return domain.Message{}, f.saveErr
	}
	f.seq++
	msg.ID = fmt.Sprintf("%024x", f.seq)
	msg.CreatedAt = time.Now().UTC()
	f.saved = append(f.saved, msg)
	return msg, nil
}

func (f *fakeStorage) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func newTestServer(t *testing.T, storage Storage) *httptest.Server {
	return newTestServerLimits(t, storage, DefaultLimits)
}

func newTestServerLimits(t *testing.T, storage Storage, limits Limits) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := core.NewRegistry()
	ctl := NewController(reg, core.NewRouter(reg), auth.NewResolver(""), storage, limits)

	r := gin.New()
	r.GET("/ws/:group", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      sub,
		"username": sub,
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func wsURL(srv *httptest.Server, group, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + group + "?token=" + token
}

func dial(t *testing.T, srv *httptest.Server, group, user string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, group, signToken(t, user)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func readEnvelope(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

// expectSilence must be the last read on its socket: a fired read deadline
// poisons the connection for later reads.
func expectSilence(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, data, err := ws.ReadMessage()
	require.Error(t, err, "expected silence, got %s", data)
}

func TestJoin_Announces_To_Earlier_Members_Only(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")

	// The earlier joiner hears about the later one
	env := readEnvelope(t, alice)
	req.Equal(TypeUserJoined, env["type"])
	req.Equal("bob", env["user_id"])
	req.Equal("g1", env["group_id"])

	// The later joiner hears nothing, its own join included
	expectSilence(t, bob)
}

func TestMessage_Persisted_And_Broadcast_To_All(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"]) // bob is in

	send(t, alice, `{"type":"message","content":"hi"}`)

	// Sender included in the fanout, projection carries a server id
	own := readEnvelope(t, alice)
	req.Equal(TypeNewMessage, own["type"])
	req.Equal("hi", own["content"])
	req.NotEmpty(own["id"])
	req.NotEmpty(own["created_at"])

	got := readEnvelope(t, bob)
	req.Equal(TypeNewMessage, got["type"])
	req.Equal("alice", got["user_id"])
	req.Equal("alice", got["username"])
	req.Equal("hi", got["content"])
	req.Equal(own["id"], got["id"])

	req.Equal(1, fs.savedCount())
}

func TestMessage_From_Non_Member_Dropped(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	// Membership is revoked after admission; the chat gate still applies
	fs.mu.Lock()
	delete(fs.members, "g1/alice")
	fs.mu.Unlock()

	send(t, alice, `{"type":"message","content":"should not land"}`)

	req.Zero(fs.savedCount())
	expectSilence(t, bob)
}

func TestMessage_Persist_Failure_Degrades_To_Unsaved_Broadcast(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	fs.saveErr = errors.New("db down")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	send(t, alice, `{"type":"message","content":"still here"}`)

	got := readEnvelope(t, bob)
	req.Equal(TypeNewMessage, got["type"])
	req.Equal("still here", got["content"])
	req.Empty(got["id"])
	req.NotEmpty(got["created_at"])
	req.Zero(fs.savedCount())
}

func TestMembership_Check_Failure_Admits_And_Relays(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.memberErr = errors.New("store unreachable")
	srv := newTestServer(t, fs)

	// Nobody is provably a member, but the store is down, so both get in
	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	send(t, alice, `{"type":"message","content":"over the gap"}`)

	got := readEnvelope(t, bob)
	req.Equal(TypeNewMessage, got["type"])
	req.Equal("over the gap", got["content"])
	req.Empty(got["id"])
	req.Zero(fs.savedCount())
}

func TestNon_Member_Rejected_Before_Upgrade(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	srv := newTestServer(t, fs)

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "g1", signToken(t, "mallory")), nil)
	req.Error(err)
	req.Nil(ws)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestMissing_Token_Resolves_To_Anonymous(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", domain.AnonymousID)
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "g1", ""), nil)
	req.NoError(err)
	t.Cleanup(func() { _ = ws.Close() })

	env := readEnvelope(t, alice)
	req.Equal(TypeUserJoined, env["type"])
	req.Equal(string(domain.AnonymousID), env["user_id"])
}

func TestDisconnect_Announces_Departure_Exactly_Once(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	req.NoError(bob.Close())

	env := readEnvelope(t, alice)
	req.Equal(TypeUserLeft, env["type"])
	req.Equal("bob", env["user_id"])
	req.Equal("g1", env["group_id"])

	// No second notice for the same socket
	expectSilence(t, alice)
}

func TestGarbage_And_Unknown_Types_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	send(t, alice, `this is not json`)
	send(t, alice, `{"type":"frobnicate","x":1}`)
	send(t, alice, `{"type":"message","content":""}`)
	send(t, alice, `{"type":"message","content":"survived"}`)

	// The only thing bob ever sees is the valid message
	got := readEnvelope(t, bob)
	req.Equal(TypeNewMessage, got["type"])
	req.Equal("survived", got["content"])
	req.Equal(1, fs.savedCount())
}

func TestPing_Answered_With_Pong(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	srv := newTestServer(t, fs)
	alice := dial(t, srv, "g1", "alice")

	send(t, alice, `{"type":"ping"}`)

	env := readEnvelope(t, alice)
	req.Equal(TypePong, env["type"])
}

func TestOversized_Frame_Disconnects_Sender(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	srv := newTestServerLimits(t, fs, Limits{ReadLimit: 256, WriteTimeout: time.Second})

	alice := dial(t, srv, "g1", "alice")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	// Within the limit the message flows normally
	send(t, alice, `{"type":"message","content":"small"}`)
	req.Equal("small", readEnvelope(t, bob)["content"])

	// Over the limit the read fails and alice is torn down, not buffered
	huge := fmt.Sprintf(`{"type":"message","content":"%s"}`, strings.Repeat("x", 4096))
	send(t, alice, huge)

	env := readEnvelope(t, bob)
	req.Equal(TypeUserLeft, env["type"])
	req.Equal("alice", env["user_id"])
	req.Equal(1, fs.savedCount())
}

func TestRooms_Are_Isolated(t *testing.T) {
	req := require.New(t)
	fs := newFakeStorage()
	fs.allow("g1", "alice")
	fs.allow("g1", "bob")
	fs.allow("g2", "carol")
	srv := newTestServer(t, fs)

	alice := dial(t, srv, "g1", "alice")
	carol := dial(t, srv, "g2", "carol")
	bob := dial(t, srv, "g1", "bob")
	req.Equal(TypeUserJoined, readEnvelope(t, alice)["type"])

	send(t, alice, `{"type":"message","content":"g1 only"}`)

	got := readEnvelope(t, bob)
	req.Equal("g1 only", got["content"])

	// carol shares the server but not the room
	expectSilence(t, carol)
}
