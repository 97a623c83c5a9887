package primary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/notify"
)

// StoreImpl implements the task, pipeline, document and usage stores using
// PostgreSQL.
type StoreImpl struct {
	db       *pgxpool.Pool
	notifier notify.Notifier
}

// NewPrimaryStore connects to PostgreSQL. The notifier receives best-effort
// task lifecycle events on successful status updates; pass nil to disable.
func NewPrimaryStore(ctx context.Context, dsn string, notifier notify.Notifier) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &StoreImpl{db: dbpool, notifier: notifier}, nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection pool.
func (s *StoreImpl) Close() {
	s.db.Close()
}

// publish emits a lifecycle event if a notifier is configured. Fire and
// forget: the caller's write has already committed.
func (s *StoreImpl) publish(topic, eventType string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(topic, eventType, payload)
}
