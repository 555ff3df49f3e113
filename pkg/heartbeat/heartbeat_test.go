package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) WriteMessage(_ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("write on closed conn")
	}

	return nil
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *fakeConn) RemoteAddr() string { return "10.0.0.1:4242" }

// scriptedAwaiter answers (or ignores) each beat according to its script.
// Beats past the end of the script go unanswered.
type scriptedAwaiter struct {
	mu     sync.Mutex
	script []bool
	beats  int
}

func (a *scriptedAwaiter) AwaitReply(_ string) (<-chan *protocol.Envelope, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan *protocol.Envelope, 1)

	if a.beats < len(a.script) && a.script[a.beats] {
		ch <- &protocol.Envelope{Type: protocol.KindHeartbeatAck}
	}

	a.beats++

	return ch, func() {}
}

type recordingUnregisterer struct {
	mu    sync.Mutex
	calls []string
}

func (u *recordingUnregisterer) Unregister(clientID string, _ *registry.Session) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.calls = append(u.calls, clientID)
}

func (u *recordingUnregisterer) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.calls)
}

type fakeClock struct {
	tickCh chan time.Time
}

func (c *fakeClock) Now() time.Time { return time.Now() }

func (c *fakeClock) Ticker(_ time.Duration) Ticker {
	return &fakeTicker{c: c.tickCh}
}

type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()                  {}

func newWatchedSession(t *testing.T) *registry.Session {
	t.Helper()

	reg := registry.NewSessionRegistry(registry.NewClientStore(nil), logger.NewTestLogger())

	s, err := reg.Register("dsp-1", &fakeConn{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testConfig() Config {
	return Config{
		Interval:  models.Duration(time.Second),
		Timeout:   models.Duration(10 * time.Millisecond),
		MaxMissed: 2,
	}
}

func TestOfflineAfterExactlyMaxMissed(t *testing.T) {
	clock := &fakeClock{tickCh: make(chan time.Time)}
	unreg := &recordingUnregisterer{}
	awaiter := &scriptedAwaiter{} // never answers

	m := NewMonitor(testConfig(), awaiter, unreg, clock, logger.NewTestLogger())
	s := newWatchedSession(t)

	done := make(chan error, 1)

	go func() {
		done <- m.Watch(context.Background(), s)
	}()

	// First unanswered beat is tolerated as jitter.
	clock.tickCh <- time.Now()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, unreg.count())

	// Second consecutive miss crosses the threshold.
	clock.tickCh <- time.Now()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after threshold")
	}

	require.Equal(t, 1, unreg.count())
	assert.Equal(t, "dsp-1", unreg.calls[0])
}

func TestAckResetsMissedCount(t *testing.T) {
	clock := &fakeClock{tickCh: make(chan time.Time)}
	unreg := &recordingUnregisterer{}

	// Miss, ack, miss, miss: the ack in between must reset the counter,
	// so the threshold is only reached on the fourth beat.
	awaiter := &scriptedAwaiter{script: []bool{false, true, false, false}}

	m := NewMonitor(testConfig(), awaiter, unreg, clock, logger.NewTestLogger())
	s := newWatchedSession(t)

	done := make(chan error, 1)

	go func() {
		done <- m.Watch(context.Background(), s)
	}()

	for i := 0; i < 3; i++ {
		clock.tickCh <- time.Now()
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, unreg.count())

	clock.tickCh <- time.Now()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after threshold")
	}

	assert.Equal(t, 1, unreg.count())
}

func TestWatchStopsWhenSessionCloses(t *testing.T) {
	clock := &fakeClock{tickCh: make(chan time.Time)}
	m := NewMonitor(testConfig(), &scriptedAwaiter{}, &recordingUnregisterer{}, clock, logger.NewTestLogger())
	s := newWatchedSession(t)

	done := make(chan error, 1)

	go func() {
		done <- m.Watch(context.Background(), s)
	}()

	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after session close")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	clock := &fakeClock{tickCh: make(chan time.Time)}
	m := NewMonitor(testConfig(), &scriptedAwaiter{}, &recordingUnregisterer{}, clock, logger.NewTestLogger())
	s := newWatchedSession(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- m.Watch(ctx, s)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
