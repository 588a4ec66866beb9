package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rickgao/bitfinex-recorder/internal/protocol"
)

// mockClient is an in-memory Client driven by tests.
type mockClient struct {
	mu         sync.Mutex
	sent       [][]byte
	closed     int
	connected  bool
	connectErr error
	sendErr    func(data []byte) error

	messages chan TimestampedMessage
	errors   chan error
}

func newMockClient() *mockClient {
	return &mockClient{
		messages: make(chan TimestampedMessage, 100),
		errors:   make(chan error, 1),
	}
}

func (m *mockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	m.connected = false
	return nil
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	if m.sendErr != nil {
		if err := m.sendErr(data); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

func (m *mockClient) Messages() <-chan TimestampedMessage { return m.messages }
func (m *mockClient) Errors() <-chan error                { return m.errors }

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// push queues a text frame.
func (m *mockClient) push(raw string) {
	m.messages <- text(raw)
}

func (m *mockClient) sentFrames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = string(s)
	}
	return out
}

func (m *mockClient) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// pingCount returns how many keepalive pings were sent.
func (m *mockClient) pingCount() int {
	ping := string(protocol.PingRequest(protocol.KeepaliveCID))
	n := 0
	for _, s := range m.sentFrames() {
		if s == ping {
			n++
		}
	}
	return n
}

func text(raw string) TimestampedMessage {
	return TimestampedMessage{Data: []byte(raw), ReceivedAt: time.Now()}
}

// recordingWriter records pushes and shutdowns.
type recordingWriter struct {
	mu                  sync.Mutex
	sub                 protocol.Subscribed
	updates             []protocol.Update
	shutdowns           int
	pushedAfterShutdown bool
}

func (w *recordingWriter) Push(u protocol.Update) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.shutdowns > 0 {
		w.pushedAfterShutdown = true
		return false
	}
	w.updates = append(w.updates, u)
	return true
}

func (w *recordingWriter) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shutdowns++
	return nil
}

func (w *recordingWriter) snapshot() ([]protocol.Update, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]protocol.Update(nil), w.updates...), w.shutdowns, w.pushedAfterShutdown
}

// writerRecorder is a WriterFactory that keeps every writer it creates.
type writerRecorder struct {
	mu      sync.Mutex
	created []*recordingWriter
	failFor map[int64]bool
}

func (r *writerRecorder) create(sub protocol.Subscribed) (ChannelWriter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[sub.ChanID] {
		return nil, errors.New("open failed")
	}
	w := &recordingWriter{sub: sub}
	r.created = append(r.created, w)
	return w, nil
}

func (r *writerRecorder) all() []*recordingWriter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*recordingWriter(nil), r.created...)
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
