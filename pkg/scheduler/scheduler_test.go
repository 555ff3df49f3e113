package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/querycache"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   map[string][]*protocol.Envelope
	broken map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:   make(map[string][]*protocol.Envelope),
		broken: make(map[string]error),
	}
}

func (f *fakeSender) Send(clientID string, env *protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.broken[clientID]; ok {
		return err
	}

	f.sent[clientID] = append(f.sent[clientID], env)

	return nil
}

func (f *fakeSender) count(clientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sent[clientID])
}

func (f *fakeSender) last(t *testing.T, clientID string) *models.ContentPackage {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	envs := f.sent[clientID]
	require.NotEmpty(t, envs)

	var push protocol.ContentPush
	require.NoError(t, protocol.DecodePayload(envs[len(envs)-1], &push))

	return &push.Package
}

type mapResolver struct {
	mu      sync.Mutex
	content map[string]map[string]string
	failing map[string]error
	calls   map[string]int
}

func newMapResolver() *mapResolver {
	return &mapResolver{
		content: make(map[string]map[string]string),
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (r *mapResolver) Resolve(_ context.Context, contentID string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[contentID]++

	if err, ok := r.failing[contentID]; ok {
		return nil, err
	}

	data, ok := r.content[contentID]
	if !ok {
		return nil, fmt.Errorf("no such content %s", contentID)
	}

	return data, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func (c *manualClock) Ticker(_ time.Duration) Ticker {
	return &manualTicker{c: make(chan time.Time)}
}

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) Chan() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()                  {}

func testSchedulerConfig() Config {
	return Config{
		ScanInterval:    models.Duration(30 * time.Second),
		RefreshInterval: models.Duration(60 * time.Second),
		PackageTTL:      models.Duration(24 * time.Hour),
		QueryTTL:        models.Duration(time.Nanosecond),
	}
}

func newTestScheduler(t *testing.T, clock Clock, sender Sender, res Resolver) (*Scheduler, *registry.ClientStore) {
	t.Helper()

	clients := registry.NewClientStore(nil)
	s := New(testSchedulerConfig(), clients, sender, res, querycache.New(nil), clock, logger.NewTestLogger())

	return s, clients
}

func onlineAssigned(clients *registry.ClientStore, id, contentID string) {
	clients.UpsertFromHandshake(id, "", nil)
	clients.SetAssignment(id, contentID)
	clients.SetStatus(id, models.ClientOnline)
}

func TestScanPushesToOnlineAssignedClients(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["weather-board"] = map[string]string{"temp": "21C"}

	s, clients := newTestScheduler(t, clock, sender, res)

	onlineAssigned(clients, "dsp-1", "weather-board")

	// Offline and unassigned clients are skipped.
	clients.UpsertFromHandshake("dsp-2", "", nil)
	clients.SetAssignment("dsp-2", "weather-board")
	clients.SetStatus("dsp-2", models.ClientOffline)
	onlineAssigned(clients, "dsp-3", "")

	s.Scan(context.Background())

	assert.Equal(t, 1, sender.count("dsp-1"))
	assert.Equal(t, 0, sender.count("dsp-2"))
	assert.Equal(t, 0, sender.count("dsp-3"))

	pkg := sender.last(t, "dsp-1")
	assert.Equal(t, "weather-board", pkg.ContentID)
	assert.Equal(t, "21C", pkg.ResolvedData["temp"])
	assert.Equal(t, clock.Now().Add(24*time.Hour), pkg.ExpiresAt)
}

func TestScanIsolatesFailingResolver(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["lobby-news"] = map[string]string{"headline": "ok"}
	res.failing["weather-board"] = errors.New("upstream 500")

	s, clients := newTestScheduler(t, clock, sender, res)

	onlineAssigned(clients, "dsp-1", "weather-board")
	onlineAssigned(clients, "dsp-2", "lobby-news")

	s.Scan(context.Background())

	// The failing content must not block the healthy one.
	assert.Equal(t, 0, sender.count("dsp-1"))
	assert.Equal(t, 1, sender.count("dsp-2"))
}

func TestScanIsolatesDisconnectedClient(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	sender.broken["dsp-1"] = fmt.Errorf("%w: dsp-1", dispatcher.ErrNotConnected)

	res := newMapResolver()
	res.content["weather-board"] = map[string]string{"temp": "21C"}

	s, clients := newTestScheduler(t, clock, sender, res)

	onlineAssigned(clients, "dsp-1", "weather-board")
	onlineAssigned(clients, "dsp-2", "weather-board")

	s.Scan(context.Background())

	assert.Equal(t, 1, sender.count("dsp-2"))
}

func TestScanRespectsRefreshInterval(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["weather-board"] = map[string]string{"temp": "21C"}

	s, clients := newTestScheduler(t, clock, sender, res)
	onlineAssigned(clients, "dsp-1", "weather-board")

	s.Scan(context.Background())
	require.Equal(t, 1, sender.count("dsp-1"))

	// Not due yet.
	clock.advance(30 * time.Second)
	s.Scan(context.Background())
	assert.Equal(t, 1, sender.count("dsp-1"))

	// Due again after the refresh interval.
	clock.advance(30 * time.Second)
	s.Scan(context.Background())
	assert.Equal(t, 2, sender.count("dsp-1"))
}

func TestPerContentRefreshOverride(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["ticker"] = map[string]string{"v": "1"}

	cfg := testSchedulerConfig()
	cfg.ContentRefresh = map[string]models.Duration{
		"ticker": models.Duration(10 * time.Second),
	}

	clients := registry.NewClientStore(nil)
	s := New(cfg, clients, sender, res, querycache.New(nil), clock, logger.NewTestLogger())

	onlineAssigned(clients, "dsp-1", "ticker")

	s.Scan(context.Background())
	clock.advance(10 * time.Second)
	s.Scan(context.Background())

	assert.Equal(t, 2, sender.count("dsp-1"))
}

func TestPushNowBypassesDueCheck(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["weather-board"] = map[string]string{"temp": "21C"}

	s, clients := newTestScheduler(t, clock, sender, res)
	onlineAssigned(clients, "dsp-1", "weather-board")

	s.Scan(context.Background())
	require.NoError(t, s.PushNow(context.Background(), "dsp-1"))

	assert.Equal(t, 2, sender.count("dsp-1"))
}

func TestPushNowWithoutAssignment(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	s, clients := newTestScheduler(t, clock, newFakeSender(), newMapResolver())

	clients.UpsertFromHandshake("dsp-1", "", nil)

	err := s.PushNow(context.Background(), "dsp-1")
	assert.ErrorIs(t, err, ErrNoAssignment)

	err = s.PushNow(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNoAssignment)
}

func TestResolutionErrorWrapped(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.failing["weather-board"] = errors.New("upstream 500")

	s, clients := newTestScheduler(t, clock, sender, res)
	onlineAssigned(clients, "dsp-1", "weather-board")

	err := s.PushNow(context.Background(), "dsp-1")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestSharedContentResolvedOncePerCycle(t *testing.T) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	sender := newFakeSender()
	res := newMapResolver()
	res.content["weather-board"] = map[string]string{"temp": "21C"}

	cfg := testSchedulerConfig()
	cfg.QueryTTL = models.Duration(30 * time.Second)

	clients := registry.NewClientStore(nil)
	s := New(cfg, clients, sender, res, querycache.New(nil), clock, logger.NewTestLogger())

	onlineAssigned(clients, "dsp-1", "weather-board")
	onlineAssigned(clients, "dsp-2", "weather-board")
	onlineAssigned(clients, "dsp-3", "weather-board")

	s.Scan(context.Background())

	assert.Equal(t, 3, sender.count("dsp-1")+sender.count("dsp-2")+sender.count("dsp-3"))
	assert.Equal(t, 1, res.calls["weather-board"])
}
