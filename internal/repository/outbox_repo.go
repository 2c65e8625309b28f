package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelance-market/internal/model"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, m model.OutboxMessage) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox_messages (id, kind, recipient, subject, body, attempts, next_attempt_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
		m.ID, m.Kind, m.Recipient, m.Subject, m.Body, m.NextAttemptAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

// ClaimDue pushes next_attempt_at of the claimed rows forward by lease so a
// concurrent dispatcher skips them while they are in flight.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]model.OutboxMessage, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE outbox_messages SET next_attempt_at = $3
		 WHERE id IN (
		   SELECT id FROM outbox_messages
		   WHERE sent_at IS NULL AND dead_at IS NULL AND next_attempt_at <= $1
		   ORDER BY next_attempt_at
		   LIMIT $2
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, kind, recipient, subject, body, attempts, last_error, next_attempt_at, created_at`,
		now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.OutboxMessage, 0)
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Kind, &m.Recipient, &m.Subject, &m.Body,
			&m.Attempts, &m.LastError, &m.NextAttemptAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_messages SET sent_at = $2, attempts = attempts + 1, last_error = '' WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("mark outbox message sent: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, errText string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_messages SET attempts = $2, next_attempt_at = $3, last_error = $4 WHERE id = $1`,
		id, attempts, nextAttemptAt, errText)
	if err != nil {
		return fmt.Errorf("mark outbox message failed: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id string, attempts int, at time.Time, errText string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_messages SET attempts = $2, dead_at = $3, last_error = $4 WHERE id = $1`,
		id, attempts, at, errText)
	if err != nil {
		return fmt.Errorf("mark outbox message dead: %w", err)
	}
	return nil
}
