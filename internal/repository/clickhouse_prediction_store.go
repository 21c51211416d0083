package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	pkgch "CardioStage/pkg/clickhouse"
	applogger "CardioStage/pkg/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const predictionColumns = "ts, event_id, request_id, source, model, label, probability, stage, features"

// CHPredictionStore implements PredictionStore backed by ClickHouse.
type CHPredictionStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.PredictionStore = (*CHPredictionStore)(nil)

func NewCHPredictionStore(ch *pkgch.Client, table string) (*CHPredictionStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CHPredictionStore{ch: ch, db: ch.DB(), table: table, l: applogger.NewNop()}, nil
}

// SetLogger injects a structured logger.
func (s *CHPredictionStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHPredictionStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{predictionDDL(s.table)})
}

func (s *CHPredictionStore) Store(ctx context.Context, e *models.PredictionEvent) error {
	return s.StoreBatch(ctx, []*models.PredictionEvent{e})
}

func (s *CHPredictionStore) StoreBatch(ctx context.Context, events []*models.PredictionEvent) error {
	// Multi-row VALUES keeps round-trips low; chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}
		q, args := insertBatch(s.table, events[start:end])
		if q == "" {
			continue
		}
		begin := time.Now()
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(args)/9),
				applogger.Error(err),
			)
			return fmt.Errorf("insert predictions: %w", err)
		}
		s.l.Debug("clickhouse insert ok",
			applogger.String("table", s.table),
			applogger.Int("rows", len(args)/9),
			applogger.Duration("duration_ms", time.Since(begin)),
		)
	}
	return nil
}

// Recent returns events newer than since, newest first. A zero since means
// no lower bound.
func (s *CHPredictionStore) Recent(ctx context.Context, since time.Time, limit int) ([]*models.PredictionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE ts >= ? ORDER BY ts DESC LIMIT ?", predictionColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PredictionEvent, 0, limit)
	for rows.Next() {
		var (
			e      models.PredictionEvent
			label  uint8
			source string
			stage  string
			vals   []float64
		)
		if err := rows.Scan(&e.Timestamp, &e.ID, &e.RequestID, &source, &e.Model,
			&label, &e.Result.Probability, &stage, &vals); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		v, err := models.VectorFromValues(vals)
		if err != nil {
			return nil, fmt.Errorf("scan prediction %s: %w", e.ID, err)
		}
		e.Source = models.Source(source)
		e.Result.Label = int(label)
		e.Result.Stage = models.Stage(stage)
		e.Features = v
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHPredictionStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHPredictionStore) Close() error {
	return nil // pool is owned by the clickhouse client
}

func predictionDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ts          DateTime64(3, 'UTC'),
    event_id    String,
    request_id  String,
    source      LowCardinality(String),
    model       LowCardinality(String),
    label       UInt8,
    probability Float64,
    stage       LowCardinality(String),
    features    Array(Float64)
) ENGINE = MergeTree
ORDER BY (ts, event_id)`, table)
}

// insertBatch builds one INSERT for events, skipping nil or id-less entries.
// It returns an empty query when nothing is left to insert.
func insertBatch(table string, events []*models.PredictionEvent) (string, []interface{}) {
	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*9)
	for _, e := range events {
		if e == nil || e.ID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.Timestamp.UTC(),
			e.ID,
			e.RequestID,
			string(e.Source),
			e.Model,
			uint8(e.Result.Label),
			e.Result.Probability,
			string(e.Result.Stage),
			e.Features.Slice(),
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, predictionColumns, strings.Join(values, ","))
	return q, args
}
