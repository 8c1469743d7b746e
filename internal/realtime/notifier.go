package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/studio/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	statusPath = "/api/github/status"
	syncPath   = "/api/github/sync"

	// Wildcard subscribers receive every content update.
	Wildcard = "*"
)

// Config configures a Notifier. Zero durations fall back to the defaults.
type Config struct {
	BaseURL              string
	PollInterval         time.Duration
	ConnectTimeout       time.Duration
	MaxReconnectAttempts int
	Clock                clockwork.Clock
	Logger               *zerolog.Logger
}

type UpdateHandler func(models.ContentUpdate)
type StatusHandler func(Status)

// Notifier polls the status endpoint and fans updates out to subscribers.
type Notifier struct {
	client *resty.Client
	cfg    Config
	clock  clockwork.Clock
	log    zerolog.Logger

	mu         sync.Mutex
	status     Status
	failures   int
	lastUpdate time.Time
	cursor     uint64
	hasCursor  bool
	cancel     context.CancelFunc
	// session is bumped by Disconnect so an in-flight Connect can tell it
	// was cancelled.
	session uint64

	nextID     int
	typeSubs   map[string]map[int]UpdateHandler
	statusSubs map[int]StatusHandler
	msgSubs    map[int]UpdateHandler
}

func New(cfg Config) *Notifier {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Notifier{
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("Accept", "application/json"),
		cfg:        cfg,
		clock:      cfg.Clock,
		log:        log,
		status:     StatusDisconnected,
		typeSubs:   make(map[string]map[int]UpdateHandler),
		statusSubs: make(map[int]StatusHandler),
		msgSubs:    make(map[int]UpdateHandler),
	}
}

// Connect probes the status endpoint once and starts polling. A failed or
// timed-out probe leaves the notifier polling in degraded mode; Connect
// itself never fails.
func (n *Notifier) Connect(ctx context.Context) error {
	n.setStatus(StatusConnecting)

	n.mu.Lock()
	n.failures = 0
	session := n.session
	n.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, n.cfg.ConnectTimeout)
	defer cancel()

	resp, err := n.fetchStatus(probeCtx)

	n.mu.Lock()
	stale := n.session != session
	n.mu.Unlock()
	if stale {
		n.log.Debug().Msg("Disconnected while connecting, not starting to poll")
		return nil
	}

	if err != nil {
		n.log.Warn().Err(err).Msg("Initial status check failed, falling back to polling")
		n.mu.Lock()
		n.failures++
		n.mu.Unlock()
		n.setStatus(StatusPolling)
	} else {
		n.deliver(resp)
		n.setStatus(StatusConnected)
	}

	n.startPolling()
	return nil
}

// ForceSync asks the server to resync. Unlike polling, a failure here is
// returned to the caller.
func (n *Notifier) ForceSync(ctx context.Context) (json.RawMessage, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		Post(syncPath)
	if err == nil && resp.IsError() {
		err = fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	if err != nil {
		n.log.Error().Err(err).Msg("Force sync failed")
		n.setStatus(StatusError)
		return nil, fmt.Errorf("force sync: %w", err)
	}

	data := json.RawMessage(resp.Body())
	now := n.clock.Now()

	n.mu.Lock()
	n.failures = 0
	n.lastUpdate = now
	st := n.status
	n.mu.Unlock()

	n.emit(models.ContentUpdate{
		Type:      models.UpdateSync,
		Action:    models.UpdateSync,
		Data:      data,
		Timestamp: models.FormatTime(now),
	})

	if st != StatusDisconnected {
		n.setStatus(StatusConnected)
		n.startPolling()
	}
	return data, nil
}

// Disconnect stops polling, reports StatusDisconnected and drops every
// subscriber. A Connect still waiting on its probe will not start polling.
func (n *Notifier) Disconnect() {
	n.mu.Lock()
	n.session++
	n.mu.Unlock()

	n.setStatus(StatusDisconnected)
	n.stopPolling()

	n.mu.Lock()
	n.typeSubs = make(map[string]map[int]UpdateHandler)
	n.statusSubs = make(map[int]StatusHandler)
	n.msgSubs = make(map[int]UpdateHandler)
	n.mu.Unlock()
}

// Subscribe registers fn for updates of one type, or Wildcard for all.
func (n *Notifier) Subscribe(typ string, fn UpdateHandler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	if n.typeSubs[typ] == nil {
		n.typeSubs[typ] = make(map[int]UpdateHandler)
	}
	n.typeSubs[typ][id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.typeSubs[typ], id)
	}
}

func (n *Notifier) OnStatusChange(fn StatusHandler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.statusSubs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.statusSubs, id)
	}
}

// OnMessage registers fn for every event, heartbeats included.
func (n *Notifier) OnMessage(fn UpdateHandler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.msgSubs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.msgSubs, id)
	}
}

func (n *Notifier) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// LastUpdate is the time of the last successful status request or sync.
func (n *Notifier) LastUpdate() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastUpdate
}

func (n *Notifier) Failures() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failures
}

func (n *Notifier) startPolling() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil || n.status == StatusDisconnected {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := n.clock.NewTicker(n.cfg.PollInterval)
	n.cancel = cancel

	go n.loop(ctx, ticker)
}

func (n *Notifier) stopPolling() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (n *Notifier) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !n.poll(ctx) {
				return
			}
		}
	}
}

// poll runs one tick. It returns false once polling must stop.
func (n *Notifier) poll(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, n.cfg.PollInterval)
	defer cancel()

	resp, err := n.fetchStatus(reqCtx)
	if ctx.Err() != nil {
		return false
	}
	if err == nil {
		n.deliver(resp)
		n.setStatus(StatusConnected)
		return true
	}

	n.mu.Lock()
	n.failures++
	failures := n.failures
	exceeded := failures > n.cfg.MaxReconnectAttempts
	var stop context.CancelFunc
	if exceeded {
		stop, n.cancel = n.cancel, nil
	}
	n.mu.Unlock()

	if !exceeded {
		n.log.Warn().Err(err).Int("failures", failures).Msg("Status poll failed")
		n.setStatus(StatusPolling)
		return true
	}

	n.log.Error().Err(err).Int("failures", failures).Msg("Status poll failed too often, polling stopped")
	n.setStatus(StatusError)
	if stop != nil {
		stop()
	}
	return false
}

func (n *Notifier) fetchStatus(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse

	req := n.client.R().
		SetContext(ctx).
		SetResult(&out)

	n.mu.Lock()
	if n.hasCursor {
		req.SetQueryParam("cursor", strconv.FormatUint(n.cursor, 10))
	}
	n.mu.Unlock()

	resp, err := req.Get(statusPath)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode())
	}
	return &out, nil
}

// deliver records a successful status response and emits its updates
// followed by a heartbeat.
func (n *Notifier) deliver(resp *models.StatusResponse) {
	now := n.clock.Now()

	n.mu.Lock()
	n.failures = 0
	n.lastUpdate = now
	n.cursor = resp.Cursor
	n.hasCursor = true
	n.mu.Unlock()

	if resp.HasUpdates {
		for _, u := range resp.Updates {
			n.emit(u)
		}
	}

	heartbeat := models.ContentUpdate{
		Type:      models.UpdateHeartbeat,
		Action:    models.UpdateHeartbeat,
		Timestamp: models.FormatTime(now),
	}
	for _, fn := range n.messageHandlers() {
		n.safeCall(func() { fn(heartbeat) })
	}
}

// emit sends u to its type subscribers, wildcard subscribers and message
// subscribers, in that order.
func (n *Notifier) emit(u models.ContentUpdate) {
	n.mu.Lock()
	var handlers []UpdateHandler
	for _, fn := range n.typeSubs[u.Type] {
		handlers = append(handlers, fn)
	}
	if u.Type != Wildcard {
		for _, fn := range n.typeSubs[Wildcard] {
			handlers = append(handlers, fn)
		}
	}
	for _, fn := range n.msgSubs {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()

	for _, fn := range handlers {
		n.safeCall(func() { fn(u) })
	}
}

func (n *Notifier) messageHandlers() []UpdateHandler {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]UpdateHandler, 0, len(n.msgSubs))
	for _, fn := range n.msgSubs {
		out = append(out, fn)
	}
	return out
}

func (n *Notifier) setStatus(next Status) {
	n.mu.Lock()
	prev := n.status
	if prev == next {
		n.mu.Unlock()
		return
	}
	if !CanTransition(prev, next) {
		n.mu.Unlock()
		n.log.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("Ignoring status transition")
		return
	}
	n.status = next
	handlers := make([]StatusHandler, 0, len(n.statusSubs))
	for _, fn := range n.statusSubs {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()

	n.log.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("Status changed")
	for _, fn := range handlers {
		n.safeCall(func() { fn(next) })
	}
}

// safeCall keeps a panicking subscriber from killing the poll loop.
func (n *Notifier) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Interface("panic", r).Msg("Subscriber panicked")
		}
	}()
	fn()
}
