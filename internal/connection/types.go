package connection

import (
	"errors"
	"time"

	"github.com/rickgao/bitfinex-recorder/internal/protocol"
)

// Errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyClosed  = errors.New("already closed")
	ErrConnectionLost = errors.New("connection lost")
)

// DefaultURL is the Bitfinex public WebSocket endpoint.
const DefaultURL = "wss://api.bitfinex.com/ws/2"

// TimestampedMessage wraps one inbound frame with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame payload
	Binary     bool      // True for binary frames, which are never decoded
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://api.bitfinex.com/ws/2)
	HandshakeTimeout time.Duration // Dial + upgrade timeout
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Inbound frame channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              DefaultURL,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       10000,
	}
}

// DispatcherConfig configures the Dispatcher.
type DispatcherConfig struct {
	Channel           string        // Channel kind to subscribe (e.g., "trades")
	Instruments       []string      // Symbols to subscribe, in order (e.g., "tBTCUSD")
	OutputDir         string        // Directory for per-channel output files
	QueueCapacity     int           // Initial queue capacity per channel writer
	KeepaliveInterval time.Duration // Max time between pings
	IdleInterval      time.Duration // Liveness check period when no frames arrive
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Channel:           "trades",
		QueueCapacity:     1024,
		KeepaliveInterval: 300 * time.Second,
		IdleInterval:      10 * time.Second,
	}
}

// State is the Dispatcher lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ChannelWriter receives the updates of one channel id.
type ChannelWriter interface {
	// Push enqueues an update. Returns false if the writer has stopped.
	Push(update protocol.Update) bool

	// Shutdown stops the writer after everything pushed so far is written.
	Shutdown() error
}

// WriterFactory creates the writer for a newly acknowledged subscription.
type WriterFactory func(sub protocol.Subscribed) (ChannelWriter, error)
