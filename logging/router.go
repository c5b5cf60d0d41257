package logging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives routed events. Implementations must be safe for use from the
// router's dispatch goroutine only.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans events out to the configured sinks through a bounded queue.
// Publishing never blocks; events are dropped when the queue is full and the
// drop total is reported at a throttled cadence.
type Router struct {
	cfg         Config
	queue       chan Event
	sinks       []NamedSink
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any

	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.Default()
	}

	enabled := make([]NamedSink, 0, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		sink, ok := sinks[name]
		if !ok {
			return nil, fmt.Errorf("logging: sink %q enabled but not provided", name)
		}
		enabled = append(enabled, NamedSink{Name: name, Sink: sink})
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		cfg:         cfg,
		queue:       make(chan Event, bufferSize),
		sinks:       enabled,
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.CloneFields(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.dispatch(ctx)

	return r, nil
}

// Publish enqueues the event, stamping time and process-wide fields.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || r.closed.Load() {
		return
	}
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		merged := make(map[string]any, len(r.fields)+len(event.Extra))
		for k, v := range r.fields {
			merged[k] = v
		}
		for k, v := range event.Extra {
			merged[k] = v
		}
		event.Extra = merged
	}

	select {
	case r.queue <- event:
		r.eventsTotal.Add(1)
	default:
		r.noteDrop()
	}
}

func (r *Router) noteDrop() {
	dropped := r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := r.clock.Now().UnixNano()
	last := r.lastDropLog.Load()
	if now-last >= int64(interval) && r.lastDropLog.CompareAndSwap(last, now) {
		r.fallback.Printf("logging: queue full, %d events dropped so far", dropped)
	}
}

func (r *Router) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.done)
	for {
		select {
		case event := <-r.queue:
			r.deliver(event)
		case <-ctx.Done():
			// Drain whatever is already queued before shutting down.
			for {
				select {
				case event := <-r.queue:
					r.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) deliver(event Event) {
	for _, named := range r.sinks {
		if err := named.Sink.Write(event); err != nil {
			r.fallback.Printf("logging: sink %s failed to write event %s: %v", named.Name, event.Type, err)
		}
	}
}

// Close stops the dispatcher, drains the queue, and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.wg.Wait()

	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logging: close sink %s: %w", named.Name, err)
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}
