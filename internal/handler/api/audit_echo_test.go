package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"CardioStage/internal/domain/models"
	xhttp "CardioStage/pkg/http"
	applogger "CardioStage/pkg/logger"
)

type stubStore struct {
	events    []*models.PredictionEvent
	err       error
	lastSince time.Time
	lastLimit int
}

func (s *stubStore) Init(context.Context) error { return nil }
func (s *stubStore) Store(context.Context, *models.PredictionEvent) error { return nil }
func (s *stubStore) StoreBatch(context.Context, []*models.PredictionEvent) error { return nil }
func (s *stubStore) Health(context.Context) error { return s.err }
func (s *stubStore) Close() error { return nil }

func (s *stubStore) Recent(_ context.Context, since time.Time, limit int) ([]*models.PredictionEvent, error) {
	s.lastSince, s.lastLimit = since, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func newAuditServer(store *stubStore) *xhttp.Server {
	return xhttp.NewServer(applogger.NewNop(), []xhttp.Handler{NewAuditHandler(applogger.NewNop(), store)})
}

func TestAuditRecent(t *testing.T) {
	store := &stubStore{events: []*models.PredictionEvent{
		{ID: "e1", Source: models.SourceHTTP, Result: models.PredictionResult{Label: 1, Probability: 0.75, Stage: models.StageCritical}},
	}}
	s := newAuditServer(store)

	rec := do(s, http.MethodGet, "/api/predictions?limit=9999&since=2024-03-01T00:00:00Z", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "success" || body["count"] != float64(1) {
		t.Fatalf("unexpected body: %v", body)
	}
	if store.lastLimit != maxAuditLimit {
		t.Fatalf("limit must be clamped to %d, got %d", maxAuditLimit, store.lastLimit)
	}
	if !store.lastSince.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected since %v", store.lastSince)
	}

	if rec := do(s, http.MethodGet, "/api/predictions", "", nil); rec.Code != http.StatusOK || store.lastLimit != defaultAuditLimit {
		t.Fatalf("default limit: got %d with limit %d", rec.Code, store.lastLimit)
	}
}

func TestAuditRecentErrors(t *testing.T) {
	s := newAuditServer(&stubStore{})
	if rec := do(s, http.MethodGet, "/api/predictions?since=yesterday", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad since: expected 400, got %d", rec.Code)
	}

	down := newAuditServer(&stubStore{err: errors.New("dial tcp: refused")})
	rec := do(down, http.MethodGet, "/api/predictions", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store down: expected 503, got %d", rec.Code)
	}
	if msg, _ := decode(t, rec)["message"].(string); msg != "audit store is not available" {
		t.Fatalf("unexpected message %q", msg)
	}
}
