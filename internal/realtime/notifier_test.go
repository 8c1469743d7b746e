package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/studio/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// statusServer answers the status and sync endpoints from mutable state.
type statusServer struct {
	*httptest.Server

	mu       sync.Mutex
	fail     bool
	hang     bool
	hold     chan struct{}
	entered  chan struct{}
	updates  []models.ContentUpdate
	cursor   uint64
	cursors  []string
	requests atomic.Int32
	syncs    atomic.Int32
}

func newStatusServer(t *testing.T) *statusServer {
	s := &statusServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *statusServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail, hang := s.fail, s.hang
	s.mu.Unlock()

	if hang {
		<-r.Context().Done()
		return
	}
	if fail {
		http.Error(w, "boom", http.StatusBadGateway)
		return
	}

	if r.URL.Path == statusPath {
		s.mu.Lock()
		hold, entered := s.hold, s.entered
		s.hold, s.entered = nil, nil
		s.mu.Unlock()
		if hold != nil {
			close(entered)
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case statusPath:
		s.requests.Add(1)
		s.mu.Lock()
		s.cursors = append(s.cursors, r.URL.Query().Get("cursor"))
		resp := models.StatusResponse{
			HasUpdates: len(s.updates) > 0,
			Updates:    s.updates,
			Cursor:     s.cursor,
			Source:     "github",
		}
		s.updates = nil
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(resp)
	case syncPath:
		s.syncs.Add(1)
		_, _ = w.Write([]byte(`{"synced":true,"source":"github","projects":2,"posts":1}`))
	default:
		http.NotFound(w, r)
	}
}

func (s *statusServer) set(fn func(s *statusServer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *statusServer) seenCursors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cursors...)
}

type recorder struct {
	mu       sync.Mutex
	events   []models.ContentUpdate
	statuses []Status
}

func (r *recorder) update(u models.ContentUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, u)
}

func (r *recorder) status(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) seenStatuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func newTestNotifier(t *testing.T, srv *statusServer, clock clockwork.Clock) *Notifier {
	n := New(Config{
		BaseURL:              srv.URL,
		PollInterval:         10 * time.Second,
		ConnectTimeout:       100 * time.Millisecond,
		MaxReconnectAttempts: 2,
		Clock:                clock,
	})
	t.Cleanup(n.Disconnect)
	return n
}

func TestConnectSuccess(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.cursor = 7 })
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())

	rec := &recorder{}
	n.OnStatusChange(rec.status)

	require.NoError(t, n.Connect(context.Background()))

	assert.Equal(t, StatusConnected, n.Status())
	assert.Equal(t, []Status{StatusConnecting, StatusConnected}, rec.seenStatuses())
	assert.Equal(t, 0, n.Failures())
	assert.False(t, n.LastUpdate().IsZero())
	assert.Equal(t, []string{""}, srv.seenCursors(), "first probe carries no cursor")
}

func TestConnectDegradesToPolling(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.fail = true })
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())

	require.NoError(t, n.Connect(context.Background()))

	assert.Equal(t, StatusPolling, n.Status())
	assert.True(t, n.Status().Working())
	assert.Equal(t, 1, n.Failures())
}

func TestConnectTimeoutDegradesToPolling(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.hang = true })
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())

	start := time.Now()
	require.NoError(t, n.Connect(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusPolling, n.Status())

	srv.set(func(s *statusServer) { s.hang = false })
}

func TestPollFansOutUpdates(t *testing.T) {
	srv := newStatusServer(t)
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	projects, wildcard, messages := &recorder{}, &recorder{}, &recorder{}
	n.Subscribe("projects", projects.update)
	n.Subscribe(Wildcard, wildcard.update)
	n.OnMessage(messages.update)

	require.NoError(t, n.Connect(context.Background()))
	assert.Equal(t, []string{models.UpdateHeartbeat}, messages.types())

	srv.set(func(s *statusServer) {
		s.cursor = 2
		s.updates = []models.ContentUpdate{
			{Type: "projects", Action: "create"},
			{Type: "blog", Action: "update"},
		}
	})
	clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool { return len(messages.types()) == 4 }, waitFor, tick)

	assert.Equal(t, []string{"projects"}, projects.types())
	assert.Equal(t, []string{"projects", "blog"}, wildcard.types())
	assert.Equal(t,
		[]string{models.UpdateHeartbeat, "projects", "blog", models.UpdateHeartbeat},
		messages.types())
	assert.Equal(t, StatusConnected, n.Status())
}

func TestPollSendsCursor(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.cursor = 5 })
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	require.NoError(t, n.Connect(context.Background()))
	clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool { return srv.requests.Load() == 2 }, waitFor, tick)
	assert.Equal(t, []string{"", "5"}, srv.seenCursors())
}

func TestPollErrorsAfterMaxFailures(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.fail = true })
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	rec := &recorder{}
	n.OnStatusChange(rec.status)

	require.NoError(t, n.Connect(context.Background()))
	require.Equal(t, 1, n.Failures())

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return n.Failures() == 2 }, waitFor, tick)
	assert.Equal(t, StatusPolling, n.Status())

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return n.Status() == StatusError }, waitFor, tick)
	assert.Equal(t, 3, n.Failures())
	assert.Equal(t, []Status{StatusConnecting, StatusPolling, StatusError}, rec.seenStatuses())

	// Polling has stopped; a recovered server is not contacted again.
	srv.set(func(s *statusServer) { s.fail = false })
	before := srv.requests.Load()
	clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, srv.requests.Load())
	assert.Equal(t, StatusError, n.Status())
}

func TestPollRecoversAfterTransientFailure(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.fail = true })
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	require.NoError(t, n.Connect(context.Background()))
	require.Equal(t, StatusPolling, n.Status())

	srv.set(func(s *statusServer) { s.fail = false })
	clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool { return n.Status() == StatusConnected }, waitFor, tick)
	assert.Equal(t, 0, n.Failures())
}

func TestForceSyncResumesAfterError(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.fail = true })
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	require.NoError(t, n.Connect(context.Background()))
	for i := 0; i < 2; i++ {
		want := n.Failures() + 1
		clock.Advance(10 * time.Second)
		require.Eventually(t, func() bool { return n.Failures() == want }, waitFor, tick)
	}
	require.Eventually(t, func() bool { return n.Status() == StatusError }, waitFor, tick)

	syncs := &recorder{}
	n.Subscribe(models.UpdateSync, syncs.update)

	srv.set(func(s *statusServer) { s.fail = false })
	data, err := n.ForceSync(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, `{"synced":true,"source":"github","projects":2,"posts":1}`, string(data))
	assert.Equal(t, []string{models.UpdateSync}, syncs.types())
	assert.Equal(t, StatusConnected, n.Status())
	assert.Equal(t, 0, n.Failures())

	before := srv.requests.Load()
	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return srv.requests.Load() == before+1 }, waitFor, tick)
}

func TestForceSyncFailureIsReturned(t *testing.T) {
	srv := newStatusServer(t)
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())
	require.NoError(t, n.Connect(context.Background()))

	srv.set(func(s *statusServer) { s.fail = true })
	_, err := n.ForceSync(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, StatusError, n.Status())
	assert.Equal(t, int32(0), srv.syncs.Load())
}

func TestDisconnectClearsSubscribers(t *testing.T) {
	srv := newStatusServer(t)
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	statuses, messages := &recorder{}, &recorder{}
	n.OnStatusChange(statuses.status)
	n.OnMessage(messages.update)

	require.NoError(t, n.Connect(context.Background()))
	n.Disconnect()

	assert.Equal(t, StatusDisconnected, n.Status())
	assert.Equal(t,
		[]Status{StatusConnecting, StatusConnected, StatusDisconnected},
		statuses.seenStatuses())

	heartbeats := len(messages.types())
	before := srv.requests.Load()
	clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, srv.requests.Load())
	assert.Len(t, messages.types(), heartbeats)

	// A disconnected notifier can connect again.
	require.NoError(t, n.Connect(context.Background()))
	assert.Equal(t, StatusConnected, n.Status())
}

func TestDisconnectDuringConnectStopsPolling(t *testing.T) {
	srv := newStatusServer(t)
	hold, entered := make(chan struct{}), make(chan struct{})
	srv.set(func(s *statusServer) { s.hold, s.entered = hold, entered })

	clock := clockwork.NewFakeClock()
	n := New(Config{
		BaseURL:              srv.URL,
		PollInterval:         10 * time.Second,
		ConnectTimeout:       5 * time.Second,
		MaxReconnectAttempts: 2,
		Clock:                clock,
	})
	t.Cleanup(n.Disconnect)

	done := make(chan error, 1)
	go func() { done <- n.Connect(context.Background()) }()

	<-entered
	n.Disconnect()
	close(hold)
	require.NoError(t, <-done)

	assert.Equal(t, StatusDisconnected, n.Status())

	before := srv.requests.Load()
	clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, srv.requests.Load())

	// A sync on a disconnected notifier does not restart polling either.
	_, err := n.ForceSync(context.Background())
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, srv.requests.Load())
	assert.Equal(t, StatusDisconnected, n.Status())
}

func TestReconnectAfterErrorGetsFreshBudget(t *testing.T) {
	srv := newStatusServer(t)
	srv.set(func(s *statusServer) { s.fail = true })
	clock := clockwork.NewFakeClock()
	n := newTestNotifier(t, srv, clock)

	require.NoError(t, n.Connect(context.Background()))
	for i := 0; i < 2; i++ {
		want := n.Failures() + 1
		clock.Advance(10 * time.Second)
		require.Eventually(t, func() bool { return n.Failures() == want }, waitFor, tick)
	}
	require.Eventually(t, func() bool { return n.Status() == StatusError }, waitFor, tick)

	require.NoError(t, n.Connect(context.Background()))
	assert.Equal(t, StatusPolling, n.Status())
	assert.Equal(t, 1, n.Failures())

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return n.Failures() == 2 }, waitFor, tick)
	assert.Equal(t, StatusPolling, n.Status())
}

func TestUnsubscribe(t *testing.T) {
	srv := newStatusServer(t)
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())

	rec := &recorder{}
	unsubscribe := n.OnMessage(rec.update)
	unsubscribe()

	require.NoError(t, n.Connect(context.Background()))
	assert.Empty(t, rec.types())
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	srv := newStatusServer(t)
	n := newTestNotifier(t, srv, clockwork.NewFakeClock())

	rec := &recorder{}
	n.OnMessage(func(models.ContentUpdate) { panic("bad handler") })
	n.OnMessage(rec.update)

	require.NoError(t, n.Connect(context.Background()))
	assert.Equal(t, []string{models.UpdateHeartbeat}, rec.types())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDisconnected, StatusConnecting, true},
		{StatusDisconnected, StatusConnected, false},
		{StatusDisconnected, StatusError, false},
		{StatusConnecting, StatusConnected, true},
		{StatusConnecting, StatusPolling, true},
		{StatusConnected, StatusPolling, true},
		{StatusPolling, StatusConnected, true},
		{StatusPolling, StatusError, true},
		{StatusError, StatusPolling, false},
		{StatusError, StatusConnected, true},
		{StatusError, StatusDisconnected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
