package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(server *httptest.Server) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = wsURL(server)
	cfg.BufferSize = 100
	return cfg
}

// drain reads until the peer goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}

func TestClient_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	assert.Error(t, client.Connect(context.Background()))
	assert.False(t, client.IsConnected())
}

func TestClient_Send(t *testing.T) {
	received := make(chan []byte, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage {
			received <- msg
		}
		drain(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	testMsg := []byte(`{"event":"subscribe","channel":"trades","symbol":"tBTCUSD"}`)
	require.NoError(t, client.Send(testMsg))

	select {
	case msg := <-received:
		assert.Equal(t, string(testMsg), string(msg))
	case <-time.After(time.Second):
		t.Fatal("server did not receive the frame")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(DefaultClientConfig(), nil)
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrNotConnected)
}

func TestClient_Messages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`[5,"hb"]`))
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
		conn.WriteMessage(websocket.TextMessage, []byte(`[5,"te",[1,1000,0.1,50000.0]]`))
		drain(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	var got []TimestampedMessage
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case msg := <-client.Messages():
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("received %d messages, want 3", len(got))
		}
	}

	assert.Equal(t, `[5,"hb"]`, string(got[0].Data))
	assert.False(t, got[0].Binary)
	assert.True(t, got[1].Binary)
	assert.Equal(t, `[5,"te",[1,1000,0.1,50000.0]]`, string(got[2].Data))
	assert.False(t, got[2].Binary)
	for _, m := range got {
		assert.False(t, m.ReceivedAt.IsZero())
	}
}

func TestClient_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "maintenance"))
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a connection error")
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Connect(context.Background()), ErrAlreadyClosed)
}

func TestClient_CloseSendsNormalClosure(t *testing.T) {
	closeCode := make(chan int, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					closeCode <- ce.Code
				} else {
					closeCode <- -1
				}
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Close())

	select {
	case code := <-closeCode:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe the close")
	}
}

// TestRecorder_EndToEnd runs the dispatcher with file-backed writers against
// a scripted feed.
func TestRecorder_EndToEnd(t *testing.T) {
	var (
		mu         sync.Mutex
		subscribes []string
	)
	closeCode := make(chan int, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"info","version":2,"serverId":"abc","platform":{"status":1}}`))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		mu.Lock()
		subscribes = append(subscribes, string(msg))
		mu.Unlock()

		frames := []string{
			`{"event":"subscribed","channel":"trades","chanId":5,"symbol":"tBTCUSD","pair":"BTCUSD"}`,
			`[5,[[1,1000,0.1,50000.0]]]`,
			`[5,"hb"]`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					closeCode <- ce.Code
				}
				return
			}
		}
	})
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(testClientConfig(server), nil)

	cfg := DefaultDispatcherConfig()
	cfg.Instruments = []string{"tBTCUSD"}
	cfg.OutputDir = dir
	cfg.IdleInterval = 20 * time.Millisecond
	d := NewDispatcher(cfg, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := runDispatcher(ctx, d)

	path := filepath.Join(dir, "trades.BTCUSD.5.csv")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), "1,1000,0.1,50000\n")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitRun(t, errCh))
	assert.Equal(t, StateClosed, d.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "trades.BTCUSD.5.csv", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID,MTS,AMOUNT,PRICE\n1,1000,0.1,50000\n", string(data))

	mu.Lock()
	assert.Equal(t, []string{`{"event":"subscribe","channel":"trades","symbol":"tBTCUSD"}`}, subscribes)
	mu.Unlock()

	select {
	case code := <-closeCode:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe a normal closure")
	}
}
