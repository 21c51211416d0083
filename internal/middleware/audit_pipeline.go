package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	applogger "CardioStage/pkg/logger"
	"CardioStage/pkg/metrics"
)

// ErrBufferFull is returned by Submit when the pipeline cannot accept more
// events without blocking.
var ErrBufferFull = errors.New("audit buffer full")

// Forwarder delivers a batch of audit events to a backend.
type Forwarder interface {
	Forward(ctx context.Context, events []*models.PredictionEvent) error
}

// AuditPipeline sits between the evaluator and the audit backend. Submit
// only enqueues; a background worker batches events and forwards them,
// backing off while the backend is unavailable.
type AuditPipeline struct {
	fwd        Forwarder
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	bufSize    int
	batchSize  int
	flushEvery time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	maxRetries int

	bufCh   chan *models.PredictionEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

type PipelineOption func(*AuditPipeline)

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush size and the maximum time an event waits in a
// partial batch.
func WithBatch(size int, every time.Duration) PipelineOption {
	return func(p *AuditPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushEvery = every
		}
	}
}

// WithBackoff bounds the retry delay and the number of retries per batch.
func WithBackoff(min, max time.Duration, retries int) PipelineOption {
	return func(p *AuditPipeline) {
		if min > 0 {
			p.minBackoff = min
		}
		if max >= p.minBackoff {
			p.maxBackoff = max
		}
		if retries >= 0 {
			p.maxRetries = retries
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *AuditPipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewAuditPipeline(fwd Forwarder, m domrepo.Metrics, opts ...PipelineOption) *AuditPipeline {
	if m == nil {
		m = metrics.Nop{}
	}
	p := &AuditPipeline{
		fwd:        fwd,
		metrics:    m,
		logger:     applogger.NewNop(),
		bufSize:    1000,
		batchSize:  100,
		flushEvery: time.Second,
		minBackoff: 50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PredictionEvent, p.bufSize)
	return p
}

// Submit enqueues e without blocking.
func (p *AuditPipeline) Submit(_ context.Context, e *models.PredictionEvent) error {
	if e == nil || e.ID == "" {
		p.metrics.RecordError("audit_invalid")
		return fmt.Errorf("audit event without id")
	}
	select {
	case p.bufCh <- e:
		return nil
	default:
		p.metrics.RecordError("audit_buffer_full")
		return ErrBufferFull
	}
}

// Pending is the number of buffered, undelivered events.
func (p *AuditPipeline) Pending() int { return len(p.bufCh) }

// Start launches the delivery worker. It is a no-op if already started.
// Canceling ctx makes the worker drain the buffer and exit; deliveries
// themselves are not bound to ctx.
func (p *AuditPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.run(ctx, p.stopCh, p.doneCh)
}

// Stop stops the worker after it flushes what is already buffered, or when
// ctx expires.
func (p *AuditPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop audit pipeline: %w", ctx.Err())
	}
}

func (p *AuditPipeline) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	deliverCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]*models.PredictionEvent, 0, p.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.deliver(deliverCtx, batch)
		batch = make([]*models.PredictionEvent, 0, p.batchSize)
	}
	drain := func() {
		for {
			select {
			case e := <-p.bufCh:
				batch = append(batch, e)
				if len(batch) >= p.batchSize {
					flush()
				}
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case <-stopCh:
			drain()
			return
		case <-ctx.Done():
			drain()
			return
		case e := <-p.bufCh:
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// deliver forwards one batch with exponential backoff. The batch is dropped
// after maxRetries failed retries.
func (p *AuditPipeline) deliver(ctx context.Context, batch []*models.PredictionEvent) {
	backoff := p.minBackoff
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := p.fwd.Forward(ctx, batch)
		if err == nil {
			p.metrics.RecordLatency("audit_forward", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("audit_forward")
		if attempt >= p.maxRetries {
			p.metrics.RecordError("audit_drop")
			p.logger.Error("Dropping audit batch",
				applogger.Int("events", len(batch)),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return
		}
		p.logger.Warn("Audit forward failed, retrying",
			applogger.Duration("backoff", backoff),
			applogger.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < p.maxBackoff {
			backoff *= 2
			if backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
		}
	}
}
