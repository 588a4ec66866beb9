package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rickgao/bitfinex-recorder/internal/metrics"
	"github.com/rickgao/bitfinex-recorder/internal/protocol"
)

// Header is the first line of every output file.
const Header = "ID,MTS,AMOUNT,PRICE"

// DefaultQueueCapacity is the initial queue capacity of a writer.
const DefaultQueueCapacity = 1024

// entry is one queued item. stop marks the shutdown sentinel.
type entry struct {
	update protocol.Update
	stop   bool
}

// Stats is a point-in-time view of a writer.
type Stats struct {
	Written     int64
	WriteErrors int64
	Queued      int
}

// ChannelWriter appends the updates of one channel to its own output.
type ChannelWriter struct {
	label  string
	logger *slog.Logger

	out   io.WriteCloser
	queue *Queue[entry]
	done  chan struct{}

	mu      sync.Mutex
	stats   Stats
	exitErr error
}

// Open creates or opens path for appending and starts a writer on it.
// The header is written only when the file is empty.
func Open(path string, queueCapacity int, logger *slog.Logger) (*ChannelWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output: %w", err)
	}

	return start(f, filepath.Base(path), info.Size() == 0, queueCapacity, logger), nil
}

// New starts a writer on an already opened output and writes the header.
func New(out io.WriteCloser, label string, queueCapacity int, logger *slog.Logger) *ChannelWriter {
	return start(out, label, true, queueCapacity, logger)
}

func start(out io.WriteCloser, label string, writeHeader bool, queueCapacity int, logger *slog.Logger) *ChannelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCapacity < 1 {
		queueCapacity = DefaultQueueCapacity
	}

	w := &ChannelWriter{
		label:  label,
		logger: logger.With("output", label),
		out:    out,
		queue:  NewQueue[entry](queueCapacity),
		done:   make(chan struct{}),
	}

	if writeHeader {
		if _, err := io.WriteString(out, Header+"\n"); err != nil {
			w.recordWriteError(err)
		}
	}

	go w.run()

	w.logger.Debug("channel writer started")
	return w
}

// Push enqueues an update for asynchronous append.
// Returns false if the writer has already stopped.
func (w *ChannelWriter) Push(u protocol.Update) bool {
	if !w.queue.Send(entry{update: u}) {
		w.logger.Warn("push to stopped writer", "id", u.ID)
		return false
	}
	return true
}

// Shutdown enqueues the stop sentinel and waits until every update pushed
// before it has been appended and the output is closed. Calling it again
// on a stopped writer logs and returns immediately.
func (w *ChannelWriter) Shutdown() error {
	if !w.queue.Send(entry{stop: true}) {
		w.logger.Warn("shutdown requested on stopped writer")
	}
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitErr
}

// Done is closed once the worker has exited.
func (w *ChannelWriter) Done() <-chan struct{} {
	return w.done
}

// Label returns the output name used in logs.
func (w *ChannelWriter) Label() string {
	return w.label
}

// Stats returns current counters.
func (w *ChannelWriter) Stats() Stats {
	w.mu.Lock()
	stats := w.stats
	w.mu.Unlock()

	stats.Queued = w.queue.Len()
	return stats
}

// run consumes the queue until the sentinel.
func (w *ChannelWriter) run() {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.queue.Close()
			w.out.Close()
			w.mu.Lock()
			w.exitErr = fmt.Errorf("channel writer %s panicked: %v", w.label, r)
			w.mu.Unlock()
		}
	}()

	line := make([]byte, 0, 64)
	for {
		e, ok := w.queue.Receive()
		if !ok || e.stop {
			break
		}

		line = appendRecord(line[:0], e.update)
		if _, err := w.out.Write(line); err != nil {
			w.recordWriteError(err)
			continue
		}

		w.mu.Lock()
		w.stats.Written++
		w.mu.Unlock()
		metrics.RecordsWrittenTotal.Inc()
	}

	w.queue.Close()

	var exitErr error
	if err := w.out.Close(); err != nil {
		exitErr = fmt.Errorf("close output: %w", err)
	}

	w.mu.Lock()
	w.exitErr = exitErr
	written := w.stats.Written
	w.mu.Unlock()

	w.logger.Info("channel writer stopped", "written", written)
}

func (w *ChannelWriter) recordWriteError(err error) {
	w.logger.Error("output write failed", "error", err)

	w.mu.Lock()
	w.stats.WriteErrors++
	w.mu.Unlock()
	metrics.WriteErrorsTotal.Inc()
}

// appendRecord formats id,mts,amount,price followed by a newline.
// Floats use the shortest representation that round-trips (50000 not 50000.0).
func appendRecord(dst []byte, u protocol.Update) []byte {
	dst = strconv.AppendUint(dst, u.ID, 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, u.MTS, 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, u.Amount, 'f', -1, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, u.Price, 'f', -1, 64)
	return append(dst, '\n')
}
