package signal

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/core"
	"github.com/circlechat/server/internal/domain"
)

// stubConn lets cascade behavior be driven without sockets.
type stubConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (s *stubConn) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("stalled")
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *stubConn) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *stubConn) receivedUserIDs(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		var env struct {
			Type   string `json:"type"`
			UserID string `json:"user_id"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		require.Equal(t, TypeUserLeft, env.Type)
		out = append(out, env.UserID)
	}
	return out
}

func TestDeparture_Cascade_Settles_Room(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry()
	ctl := NewController(reg, core.NewRouter(reg), auth.NewResolver(""), newFakeStorage(), DefaultLimits)
	room := domain.RoomID("g1")

	healthy := &stubConn{}
	stuckBob := &stubConn{fail: true}
	stuckCarol := &stubConn{fail: true}
	reg.Add(room, healthy, "alice")
	reg.Add(room, stuckBob, "bob")
	reg.Add(room, stuckCarol, "carol")

	// Announcing dave's departure exposes the two stalled peers; their
	// departures are announced in turn until the room settles.
	ctl.announceDepartures(room, []domain.UserID{"dave"})

	req.Equal(1, reg.MemberCount(room))
	req.True(stuckBob.closed)
	req.True(stuckCarol.closed)

	ids := healthy.receivedUserIDs(t)
	req.Len(ids, 3)
	req.Equal("dave", ids[0])
	req.ElementsMatch([]string{"bob", "carol"}, ids[1:])
}

func TestDeparture_Of_Last_Member_Leaves_No_Room(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry()
	ctl := NewController(reg, core.NewRouter(reg), auth.NewResolver(""), newFakeStorage(), DefaultLimits)
	room := domain.RoomID("g1")

	only := &stubConn{}
	reg.Add(room, only, "alice")

	user, ok := reg.Remove(room, only)
	req.True(ok)
	ctl.announceDepartures(room, []domain.UserID{user})

	req.Empty(reg.Snapshot())
	req.Empty(only.frames)
}

func TestBackpressured_Sender_Evicted_On_Direct_Reply(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry()
	ctl := NewController(reg, core.NewRouter(reg), auth.NewResolver(""), newFakeStorage(), DefaultLimits)
	room := domain.RoomID("g1")

	// An unbuffered send channel with no pump behind it refuses every frame
	stuffed := &wsConn{send: make(chan core.Frame), sid: "s-alice", room: room, identity: "alice"}
	peer := &stubConn{}
	reg.Add(room, stuffed, "alice")
	reg.Add(room, peer, "bob")

	// The roster reply cannot be queued, so the sender is torn down; the
	// peer hears the departure and never a ready notice.
	ctl.handleParticipantReady(stuffed)

	req.Equal(1, reg.MemberCount(room))
	_, ok := reg.IdentityOf(stuffed)
	req.False(ok)

	ids := peer.receivedUserIDs(t)
	req.Equal([]string{"alice"}, ids)
}
