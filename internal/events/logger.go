package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sink persists decision events. storage.Storage satisfies it.
type Sink interface {
	StoreDecisionEvent(ctx context.Context, event *DecisionEvent) error
}

// Logger records decision events in the background. Log never blocks and
// never fails the caller: a full queue or a sink error drops the event with
// a warning.
type Logger struct {
	sink         Sink
	logger       zerolog.Logger
	queue        chan *DecisionEvent
	storeTimeout time.Duration
	warn         rate.Sometimes
	done         chan struct{}

	mu     sync.RWMutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithQueueSize sets how many events may wait for the sink. Default: 256
func WithQueueSize(n int) LoggerOption {
	return func(l *Logger) {
		if n > 0 {
			l.queue = make(chan *DecisionEvent, n)
		}
	}
}

// WithZerolog sets the logger used for drop and failure warnings.
func WithZerolog(logger zerolog.Logger) LoggerOption {
	return func(l *Logger) {
		l.logger = logger
	}
}

// WithStoreTimeout bounds each sink write. Default: 5s
func WithStoreTimeout(d time.Duration) LoggerOption {
	return func(l *Logger) {
		if d > 0 {
			l.storeTimeout = d
		}
	}
}

// NewLogger starts a logger writing to sink.
func NewLogger(sink Sink, opts ...LoggerOption) *Logger {
	l := &Logger{
		sink:         sink,
		logger:       zerolog.Nop(),
		queue:        make(chan *DecisionEvent, 256),
		storeTimeout: 5 * time.Second,
		warn:         rate.Sometimes{First: 3, Interval: 10 * time.Second},
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// Log queues event for storage.
func (l *Logger) Log(event *DecisionEvent) {
	if event == nil {
		return
	}
	if err := event.Validate(); err != nil {
		l.dropped.Add(1)
		l.logger.Warn().Err(err).Str("action", string(event.Action)).Msg("dropping invalid decision event")
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		l.logger.Warn().Str("event_id", event.ID).Msg("decision logger closed, dropping event")
		return
	}

	select {
	case l.queue <- event:
	default:
		l.dropped.Add(1)
		l.warn.Do(func() {
			l.logger.Warn().
				Str("event_id", event.ID).
				Uint64("dropped_total", l.dropped.Load()).
				Msg("decision log queue full, dropping event")
		})
	}
}

// Close stops accepting events and waits for queued ones to reach the sink.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("decision logger did not drain: %w", ctx.Err())
	}
}

// LoggerStats counts what happened to logged events.
type LoggerStats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
}

// Stats returns the current counters.
func (l *Logger) Stats() LoggerStats {
	return LoggerStats{
		Written: l.written.Load(),
		Dropped: l.dropped.Load(),
		Failed:  l.failed.Load(),
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for event := range l.queue {
		l.store(event)
	}
}

func (l *Logger) store(event *DecisionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), l.storeTimeout)
	defer cancel()

	if err := l.sink.StoreDecisionEvent(ctx, event); err != nil {
		l.failed.Add(1)
		l.warn.Do(func() {
			l.logger.Warn().
				Err(err).
				Str("event_id", event.ID).
				Str("action", string(event.Action)).
				Uint64("failed_total", l.failed.Load()).
				Msg("failed to store decision event")
		})
		return
	}
	l.written.Add(1)
}
