package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"CardioStage/internal/domain/models"
)

type fakeForwarder struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []*models.PredictionEvent
}

func (f *fakeForwarder) Forward(_ context.Context, events []*models.PredictionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("backend unavailable")
	}
	f.got = append(f.got, events...)
	return nil
}

func (f *fakeForwarder) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func event(i int) *models.PredictionEvent {
	return &models.PredictionEvent{ID: fmt.Sprintf("evt-%d", i), Source: models.SourceHTTP}
}

func TestAuditPipelineDeliversOnStop(t *testing.T) {
	fwd := &fakeForwarder{}
	p := NewAuditPipeline(fwd, nil, WithBatch(4, time.Hour))
	p.Start(context.Background())

	for i := 0; i < 10; i++ {
		if err := p.Submit(context.Background(), event(i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if fwd.delivered() != 10 {
		t.Fatalf("expected 10 delivered events, got %d", fwd.delivered())
	}
	if p.Pending() != 0 {
		t.Fatalf("expected empty buffer, got %d", p.Pending())
	}
}

func TestAuditPipelineFlushesOnInterval(t *testing.T) {
	fwd := &fakeForwarder{}
	p := NewAuditPipeline(fwd, nil, WithBatch(100, 10*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop(context.Background())

	_ = p.Submit(context.Background(), event(1))
	deadline := time.Now().Add(2 * time.Second)
	for fwd.delivered() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("partial batch was never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAuditPipelineRetriesWithBackoff(t *testing.T) {
	fwd := &fakeForwarder{failures: 2}
	p := NewAuditPipeline(fwd, nil,
		WithBatch(1, time.Hour),
		WithBackoff(time.Millisecond, 4*time.Millisecond, 3),
	)
	p.Start(context.Background())
	_ = p.Submit(context.Background(), event(1))
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if fwd.delivered() != 1 || fwd.calls != 3 {
		t.Fatalf("expected delivery on third attempt, got %d events after %d calls", fwd.delivered(), fwd.calls)
	}
}

func TestAuditPipelineDropsAfterRetries(t *testing.T) {
	fwd := &fakeForwarder{failures: 10}
	p := NewAuditPipeline(fwd, nil,
		WithBatch(1, time.Hour),
		WithBackoff(time.Millisecond, time.Millisecond, 1),
	)
	p.Start(context.Background())
	_ = p.Submit(context.Background(), event(1))
	_ = p.Stop(context.Background())
	if fwd.delivered() != 0 || fwd.calls != 2 {
		t.Fatalf("expected two attempts and a drop, got %d calls", fwd.calls)
	}
}

func TestAuditPipelineSubmitNeverBlocks(t *testing.T) {
	p := NewAuditPipeline(&fakeForwarder{}, nil, WithBufferSize(2))
	// not started: nothing drains the buffer
	for i := 0; i < 2; i++ {
		if err := p.Submit(context.Background(), event(i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := p.Submit(context.Background(), event(3)); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if err := p.Submit(context.Background(), &models.PredictionEvent{}); err == nil {
		t.Fatalf("event without id must be rejected")
	}
}

func TestAuditPipelineDrainsWhenStartContextCanceled(t *testing.T) {
	fwd := &fakeForwarder{}
	p := NewAuditPipeline(fwd, nil, WithBatch(4, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for i := 0; i < 10; i++ {
		if err := p.Submit(context.Background(), event(i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	// a shutdown signal cancels the run context before Stop is called
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if fwd.delivered() != 10 {
		t.Fatalf("expected 10 delivered events, got %d", fwd.delivered())
	}
	if p.Pending() != 0 {
		t.Fatalf("expected empty buffer, got %d", p.Pending())
	}
}

func TestAuditPipelineRestart(t *testing.T) {
	fwd := &fakeForwarder{}
	p := NewAuditPipeline(fwd, nil, WithBatch(1, time.Hour))

	for round := 0; round < 2; round++ {
		p.Start(context.Background())
		if err := p.Submit(context.Background(), event(round)); err != nil {
			t.Fatalf("round %d submit: %v", round, err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("round %d stop: %v", round, err)
		}
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop when not running: %v", err)
	}
	if fwd.delivered() != 2 {
		t.Fatalf("expected 2 delivered events, got %d", fwd.delivered())
	}
}
