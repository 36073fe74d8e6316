// Package publisher fans committed audit entries out to external sinks and
// in-process subscribers.
//
// Entries reach the publisher from ledger after-commit hooks, which run in
// commit order, so every sink and subscriber observes sequences in order.
// Delivery failures are logged and counted; the audit log itself is the
// durable record and consumers that fall behind re-read it by sequence.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"didledger/internal/auditlog/models"
	"didledger/internal/platform/metrics"
)

// ErrBufferFull is returned by Publish in async mode when the buffer is full.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("audit publisher closed")

// Sink delivers one entry to an external system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, entry models.Entry) error
}

// Publisher delivers entries synchronously, or through a bounded buffer
// drained by a single worker goroutine when WithAsyncBuffer is set.
type Publisher struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	buffer chan models.Entry
	done   chan struct{}

	mu          sync.RWMutex
	closed      bool
	subscribers map[int]chan models.Entry
	nextSubID   int
}

type Option func(*Publisher)

func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithAsyncBuffer delivers entries from a background worker through a buffer
// of the given size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan models.Entry, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		logger:      slog.New(slog.DiscardHandler),
		subscribers: make(map[int]chan models.Entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Publish hands entry to every sink and subscriber.
func (p *Publisher) Publish(ctx context.Context, entry models.Entry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.buffer == nil {
		p.deliver(ctx, entry)
		return nil
	}
	select {
	case p.buffer <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit buffer full, entry not fanned out",
			"sequence", entry.Sequence,
			"event_type", entry.EventType,
		)
		p.metrics.IncrementPublishFailure("buffer")
		return ErrBufferFull
	}
}

// Subscribe returns a channel receiving every entry published after the call,
// and a cancel function that unsubscribes and closes the channel. Entries
// are dropped for a subscriber whose channel is full.
func (p *Publisher) Subscribe(buffer int) (<-chan models.Entry, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan models.Entry, buffer)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	subID := p.nextSubID
	p.nextSubID++
	p.subscribers[subID] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subscribers[subID]; ok {
				delete(p.subscribers, subID)
				close(sub)
			}
		})
	}
}

// Close stops accepting entries, drains the async buffer and closes every
// subscriber channel.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for subID, ch := range p.subscribers {
		delete(p.subscribers, subID)
		close(ch)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for entry := range p.buffer {
		p.mu.RLock()
		p.deliver(context.Background(), entry)
		p.mu.RUnlock()
	}
}

// deliver must be called with p.mu held for reading.
func (p *Publisher) deliver(ctx context.Context, entry models.Entry) {
	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, entry); err != nil {
			p.logger.ErrorContext(ctx, "audit sink delivery failed",
				"sink", sink.Name(),
				"sequence", entry.Sequence,
				"error", err,
			)
			p.metrics.IncrementPublishFailure(sink.Name())
		}
	}
	for _, ch := range p.subscribers {
		select {
		case ch <- entry:
		default:
			p.logger.WarnContext(ctx, "audit subscriber lagging, entry dropped",
				"sequence", entry.Sequence,
			)
			p.metrics.IncrementPublishFailure("subscriber")
		}
	}
}
