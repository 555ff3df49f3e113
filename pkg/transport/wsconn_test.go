package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenwall/lumenwall/pkg/registry"
)

// startEchoServer upgrades every request and echoes text frames back,
// prefixing binary frames with a binary echo so tests can tell them apart.
func startEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		defer ws.Close()

		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			if err := ws.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))

	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTestConn(t *testing.T, url string) registry.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	conn := NewConn(ws)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestWriteReadRoundTrip(t *testing.T) {
	_, url := startEchoServer(t)
	conn := dialTestConn(t, url)

	require.NoError(t, conn.WriteMessage([]byte(`{"type":"heartbeat"}`)))

	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"heartbeat"}`, string(data))
}

func TestConcurrentWritersSerialized(t *testing.T) {
	_, url := startEchoServer(t)
	conn := dialTestConn(t, url)

	const writers = 8

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// gorilla/websocket allows a single concurrent writer; the
			// adapter must make this safe.
			assert.NoError(t, conn.WriteMessage([]byte("frame")))
		}()
	}

	wg.Wait()

	for i := 0; i < writers; i++ {
		data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "frame", string(data))
	}
}

func TestReadSkipsBinaryFrames(t *testing.T) {
	_, url := startEchoServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	conn := NewConn(ws)
	defer conn.Close()

	// The echo server mirrors the frame type, so a binary write comes
	// back binary and must be skipped in favor of the text frame.
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	require.NoError(t, conn.WriteMessage([]byte("text frame")))

	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "text frame", string(data))
}

func TestReadAfterClose(t *testing.T) {
	_, url := startEchoServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	conn := NewConn(ws)
	require.NoError(t, conn.Close())

	_, err = conn.ReadMessage()
	assert.Error(t, err)
}
