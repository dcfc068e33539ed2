package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/internal/reconcile"
)

// TopicResolver maps an event type to the broker topic it belongs on.
type TopicResolver func(eventType reconcile.EventType) string

// EventStore persists reconciliation events. Publish stages the event in the
// outbox together with its audit row in one transaction; the relay moves
// staged entries to the broker.
type EventStore struct {
	pool   *pgxpool.Pool
	topics TopicResolver
	logger *zap.Logger
	tracer trace.Tracer
}

// NewEventStore creates an event store.
func NewEventStore(pool *pgxpool.Pool, topics TopicResolver, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{
		pool:   pool,
		topics: topics,
		logger: logger,
		tracer: otel.Tracer("event-store"),
	}
}

// Publish stages the event for delivery and records it in the audit log,
// atomically.
func (s *EventStore) Publish(ctx context.Context, event *reconcile.Event) error {
	ctx, span := s.tracer.Start(ctx, "event_publish",
		trace.WithAttributes(
			attribute.String("event_type", string(event.EventType)),
			attribute.String("aggregate_id", event.AggregateID)))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	entry := &OutboxEntry{
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     string(event.EventType),
		Payload:       event.EventData,
		Topic:         s.topics(event.EventType),
		Key:           event.AggregateID,
	}
	if err := WriteEntry(ctx, tx, entry); err != nil {
		span.RecordError(err)
		return err
	}
	if err := writeAudit(ctx, tx, event); err != nil {
		span.RecordError(err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("event staged",
		zap.String("event_type", string(event.EventType)),
		zap.String("topic", entry.Topic))
	return nil
}

// Record writes only the audit row, for callers that deliver events some
// other way.
func (s *EventStore) Record(ctx context.Context, event *reconcile.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := writeAudit(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeAudit(ctx context.Context, tx pgx.Tx, event *reconcile.Event) error {
	query := `
		INSERT INTO sync_audit (event_id, aggregate_id, aggregate_type, event_type, event_data, correlation_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		string(event.EventType),
		event.EventData,
		event.CorrelationID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	return nil
}

// AuditRecord is one row of the reconciliation audit log.
type AuditRecord struct {
	EventID       string          `json:"event_id"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// History returns the audit trail for one local patient, newest first.
func (s *EventStore) History(ctx context.Context, aggregateID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_id, aggregate_id, event_type, event_data, correlation_id, occurred_at
		FROM sync_audit
		WHERE aggregate_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, aggregateID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.EventID, &rec.AggregateID, &rec.EventType, &rec.EventData, &rec.CorrelationID, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
