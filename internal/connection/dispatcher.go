package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/bitfinex-recorder/internal/metrics"
	"github.com/rickgao/bitfinex-recorder/internal/protocol"
	"github.com/rickgao/bitfinex-recorder/internal/writer"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWriterFactory replaces the file-backed channel writers.
func WithWriterFactory(f WriterFactory) Option {
	return func(d *Dispatcher) {
		d.newWriter = f
	}
}

// WithClock sets the time source used for keepalive decisions.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher owns the feed connection and routes channel data to writers.
//
// The writers map and lastPing are only touched by the goroutine running
// Run (or by tests driving handleFrame directly), so they need no lock.
type Dispatcher struct {
	cfg    DispatcherConfig
	client Client
	logger *slog.Logger

	newWriter WriterFactory
	now       func() time.Time

	state    atomic.Int32
	writers  map[int64]ChannelWriter // chanId → writer
	lastPing time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewDispatcher creates a Dispatcher for the given client.
func NewDispatcher(cfg DispatcherConfig, client Client, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		now:     time.Now,
		writers: make(map[int64]ChannelWriter),
	}
	d.newWriter = d.openFileWriter

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run connects, subscribes and processes frames until ctx is cancelled or
// the connection fails. Cancellation is observed after the next frame or
// idle tick; all writers are then drained before the connection is closed
// and Run returns nil. Send and transport failures are returned as errors,
// after the writers have been drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.setState(StateConnecting)
	if err := d.client.Connect(ctx); err != nil {
		d.setState(StateClosed)
		return fmt.Errorf("connect: %w", err)
	}

	if err := d.open(); err != nil {
		d.close()
		return err
	}

	idle := time.NewTicker(d.cfg.IdleInterval)
	defer idle.Stop()

	for {
		select {
		case msg := <-d.client.Messages():
			if err := d.handleFrame(msg); err != nil {
				d.close()
				return err
			}

		case err := <-d.client.Errors():
			d.logger.Error("connection error", "error", err)
			d.drainPending()
			d.close()
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)

		case <-idle.C:
			if err := d.keepalive(); err != nil {
				d.close()
				return err
			}
		}

		if ctx.Err() != nil {
			d.logger.Info("shutdown requested, closing dispatcher")
			return d.close()
		}
	}
}

// open subscribes every instrument in input order without waiting for acks.
func (d *Dispatcher) open() error {
	d.setState(StateOpen)
	d.lastPing = d.now()

	d.logger.Info("connection open, subscribing",
		"channel", d.cfg.Channel,
		"instruments", len(d.cfg.Instruments),
	)

	for _, symbol := range d.cfg.Instruments {
		if err := d.client.Send(protocol.SubscribeRequest(d.cfg.Channel, symbol)); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}
	return nil
}

// handleFrame decodes and dispatches one inbound frame, then runs the
// keepalive check. Only send failures are returned.
func (d *Dispatcher) handleFrame(msg TimestampedMessage) error {
	if msg.Binary {
		metrics.FramesTotal.WithLabelValues("binary").Inc()
		return d.keepalive()
	}

	m, err := protocol.Decode(msg.Data)
	if err != nil {
		metrics.DecodeErrorsTotal.Inc()
		d.logger.Warn("failed to decode message",
			"error", err,
			"raw", string(msg.Data),
		)
		return d.keepalive()
	}

	d.dispatch(m)
	return d.keepalive()
}

// drainPending dispatches frames that were read before the connection
// failed, so their updates still reach the writers.
func (d *Dispatcher) drainPending() {
	for {
		select {
		case msg := <-d.client.Messages():
			if msg.Binary {
				continue
			}
			if m, err := protocol.Decode(msg.Data); err == nil {
				d.dispatch(m)
			}
		default:
			return
		}
	}
}

// dispatch applies one decoded message to the registration map.
func (d *Dispatcher) dispatch(m protocol.Message) {
	switch msg := m.(type) {
	case protocol.Subscribed:
		metrics.FramesTotal.WithLabelValues("subscribed").Inc()
		d.register(msg)

	case protocol.Unsubscribed:
		metrics.FramesTotal.WithLabelValues("unsubscribed").Inc()
		if w, ok := d.writers[msg.ChanID]; ok {
			d.stopWriter(msg.ChanID, w, "unsubscribed")
		}

	case protocol.Snapshot:
		metrics.FramesTotal.WithLabelValues("snapshot").Inc()
		w, ok := d.writers[msg.ChanID]
		if !ok {
			metrics.UpdatesUnroutedTotal.Add(float64(len(msg.Updates)))
			d.logger.Debug("snapshot for unknown channel", "chan_id", msg.ChanID)
			return
		}
		for _, u := range msg.Updates {
			if w.Push(u) {
				metrics.UpdatesRoutedTotal.Inc()
			}
		}

	case protocol.TradeUpdate:
		metrics.FramesTotal.WithLabelValues("update").Inc()
		w, ok := d.writers[msg.ChanID]
		if !ok {
			metrics.UpdatesUnroutedTotal.Inc()
			d.logger.Debug("update for unknown channel", "chan_id", msg.ChanID, "kind", msg.Kind)
			return
		}
		if w.Push(msg.Update) {
			metrics.UpdatesRoutedTotal.Inc()
		}

	case protocol.Info:
		metrics.FramesTotal.WithLabelValues("info").Inc()
		d.logger.Info("info message",
			"version", msg.Version,
			"server_id", msg.ServerID,
			"platform_status", msg.PlatformStatus,
			"code", msg.Code,
			"msg", msg.Msg,
		)

	case protocol.HeartBeat:
		metrics.FramesTotal.WithLabelValues("heartbeat").Inc()
		d.logger.Debug("heartbeat", "chan_id", msg.ChanID)

	case protocol.Pong:
		metrics.FramesTotal.WithLabelValues("pong").Inc()
		d.logger.Debug("pong", "cid", msg.CID, "ts", msg.TS)

	case protocol.Error:
		metrics.FramesTotal.WithLabelValues("error").Inc()
		d.logger.Error("received error", "msg", msg.Msg, "code", msg.Code)
	}
}

// register creates the writer for a subscription ack. A writer already
// registered under the same id is stopped first.
func (d *Dispatcher) register(sub protocol.Subscribed) {
	if prev, ok := d.writers[sub.ChanID]; ok {
		d.stopWriter(sub.ChanID, prev, "replaced")
	}

	w, err := d.newWriter(sub)
	if err != nil {
		d.logger.Error("failed to create channel writer",
			"chan_id", sub.ChanID,
			"symbol", sub.Symbol,
			"error", err,
		)
		return
	}

	d.writers[sub.ChanID] = w
	metrics.ActiveWriters.Set(float64(len(d.writers)))

	d.logger.Info("subscribed",
		"channel", sub.Channel,
		"symbol", sub.Symbol,
		"chan_id", sub.ChanID,
	)
}

// stopWriter unregisters a writer and waits for it to flush.
// The entry is removed first so nothing else is routed to it.
func (d *Dispatcher) stopWriter(chanID int64, w ChannelWriter, reason string) {
	delete(d.writers, chanID)
	metrics.ActiveWriters.Set(float64(len(d.writers)))

	if err := w.Shutdown(); err != nil {
		d.logger.Error("channel writer terminated abnormally",
			"chan_id", chanID,
			"reason", reason,
			"error", err,
		)
		return
	}
	d.logger.Info("channel writer stopped", "chan_id", chanID, "reason", reason)
}

// keepalive sends a ping once more than KeepaliveInterval has passed
// since the previous one.
func (d *Dispatcher) keepalive() error {
	now := d.now()
	if now.Sub(d.lastPing) <= d.cfg.KeepaliveInterval {
		return nil
	}

	if err := d.client.Send(protocol.PingRequest(protocol.KeepaliveCID)); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	d.lastPing = now
	metrics.PingsSentTotal.Inc()

	d.logger.Debug("keepalive ping sent")
	return nil
}

// close stops every writer and then closes the connection. Runs once.
func (d *Dispatcher) close() error {
	d.closeOnce.Do(func() {
		d.setState(StateClosing)

		for chanID, w := range d.writers {
			d.stopWriter(chanID, w, "closing")
		}

		if err := d.client.Close(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
			d.closeErr = fmt.Errorf("close connection: %w", err)
		}

		d.setState(StateClosed)
		d.logger.Info("dispatcher closed")
	})
	return d.closeErr
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}

// openFileWriter is the default WriterFactory.
func (d *Dispatcher) openFileWriter(sub protocol.Subscribed) (ChannelWriter, error) {
	pair := sub.Pair
	if pair == "" {
		pair = strings.TrimPrefix(sub.Symbol, "t")
	}

	path := writer.OutputPath(d.cfg.OutputDir, sub.Channel, pair, sub.ChanID)
	w, err := writer.Open(path, d.cfg.QueueCapacity, d.logger.With("chan_id", sub.ChanID, "pair", pair))
	if err != nil {
		return nil, err
	}
	return w, nil
}
