package discovery

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
)

func TestBeaconCodecRoundTrip(t *testing.T) {
	b := &Beacon{
		ServiceID:          DefaultServiceID,
		CoordinatorAddress: "192.168.1.10",
		CoordinatorPort:    9180,
	}

	data, err := encodeBeacon(b)
	require.NoError(t, err)

	decoded, err := decodeBeacon(data)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}

func TestDecodeBeaconMalformed(t *testing.T) {
	_, err := decodeBeacon([]byte("\x00\x01 definitely not json"))
	assert.Error(t, err)
}

func TestBeaconAddr(t *testing.T) {
	b := &Beacon{CoordinatorAddress: "192.168.1.10", CoordinatorPort: 9180}
	assert.Equal(t, "192.168.1.10:9180", b.Addr())
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()

	assert.Equal(t, DefaultServiceID, cfg.ServiceID)
	assert.Equal(t, DefaultPort, cfg.BeaconPort)
	assert.Equal(t, 10*time.Second, cfg.AnnounceInterval.Duration())
}

func freeUDPPort(t *testing.T) int {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())

	return port
}

func TestWaitForBeaconSkipsForeignServices(t *testing.T) {
	port := freeUDPPort(t)

	l := NewListener(Config{BeaconPort: port}, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		beacon *Beacon
		err    error
	}

	resCh := make(chan result, 1)

	go func() {
		b, err := l.WaitForBeacon(ctx)
		resCh <- result{beacon: b, err: err}
	}()

	send, err := net.Dial("udp4", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)

	defer send.Close()

	// Garbage and a foreign service id must both be skipped; only the
	// matching beacon resolves the wait. Datagrams are resent until the
	// listener picks one up, since its socket may not be bound yet.
	foreign, err := encodeBeacon(&Beacon{ServiceID: "some-other-fleet", CoordinatorAddress: "10.0.0.1", CoordinatorPort: 1})
	require.NoError(t, err)

	matching, err := encodeBeacon(&Beacon{
		ServiceID:          DefaultServiceID,
		CoordinatorAddress: "192.168.1.10",
		CoordinatorPort:    9180,
	})
	require.NoError(t, err)

	for {
		select {
		case res := <-resCh:
			require.NoError(t, res.err)
			assert.Equal(t, "192.168.1.10:9180", res.beacon.Addr())
			return
		case <-ctx.Done():
			t.Fatal("listener never resolved the matching beacon")
		default:
		}

		_, _ = send.Write([]byte("junk"))
		_, _ = send.Write(foreign)
		_, _ = send.Write(matching)

		time.Sleep(20 * time.Millisecond)
	}
}

func TestWaitForBeaconCancellation(t *testing.T) {
	port := freeUDPPort(t)

	l := NewListener(Config{BeaconPort: port}, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() {
		_, err := l.WaitForBeacon(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not stop the beacon wait")
	}
}

func TestAnnounceIntervalUnmarshal(t *testing.T) {
	// Config files may give the interval as a duration string.
	var cfg Config

	err := cfg.AnnounceInterval.UnmarshalJSON([]byte(`"15s"`))
	require.NoError(t, err)
	assert.Equal(t, models.Duration(15*time.Second), cfg.AnnounceInterval)
}
