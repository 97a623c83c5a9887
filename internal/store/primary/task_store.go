package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// --- Task Store Implementation ---

const taskColumns = `internal_id, task_id, name, type, status, priority, retries, max_retries,
	error_message, result, source_type, source_id, cancel_requested,
	created_at, started_at, completed_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.InternalID, &task.TaskID, &task.Name, &task.Type, &task.Status,
		&task.Priority, &task.Retries, &task.MaxRetries,
		&task.ErrorMessage, &task.Result, &task.SourceType, &task.SourceID,
		&task.CancelRequested,
		&task.CreatedAt, &task.StartedAt, &task.CompletedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan task row: %w", err)
	}
	return task, nil
}

// CreateTask inserts a new task record in PENDING status.
func (s *StoreImpl) CreateTask(ctx context.Context, task *models.Task) error {
	if task.InternalID == uuid.Nil {
		task.InternalID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityNormal
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (internal_id, task_id, name, type, status, priority, retries, max_retries,
		                   source_type, source_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.db.Exec(ctx, query,
		task.InternalID, task.TaskID, task.Name, task.Type, task.Status, task.Priority,
		task.Retries, task.MaxRetries, task.SourceType, task.SourceID, now, now,
	)
	if err != nil {
		return fmt.Errorf("create task %s: %w", task.InternalID, err)
	}

	s.publish("task:"+task.InternalID.String(), "task_created", map[string]interface{}{
		"task_id": task.InternalID.String(),
		"name":    task.Name,
		"status":  string(task.Status),
	})
	return nil
}

func (s *StoreImpl) GetTask(ctx context.Context, internalID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE internal_id = $1`
	return scanTask(s.db.QueryRow(ctx, query, internalID))
}

func (s *StoreImpl) GetTaskByQueueID(ctx context.Context, taskID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE task_id = $1`
	return scanTask(s.db.QueryRow(ctx, query, taskID))
}

func (s *StoreImpl) ListTasks(ctx context.Context, limit, offset int, status models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

// SetTaskQueueID records the queue-assigned id. Set once: retried deliveries
// get fresh queue ids but the public task_id handle stays stable.
func (s *StoreImpl) SetTaskQueueID(ctx context.Context, internalID uuid.UUID, taskID string) error {
	query := `UPDATE tasks SET task_id = $2, updated_at = $3 WHERE internal_id = $1 AND task_id = ''`
	_, err := s.db.Exec(ctx, query, internalID, taskID, time.Now())
	if err != nil {
		return fmt.Errorf("set queue id for task %s: %w", internalID, err)
	}
	return nil
}

// UpdateTaskStatus applies one status transition in a single guarded UPDATE,
// so concurrent attempts on the same task cannot produce lost updates:
//   - started_at is set only on the first transition to running
//   - completed_at is set once, on the first terminal transition
//   - result is attached only when the new status is completed
//   - error_message only when the new status is failed
//   - a task already terminal is never touched (ErrTerminal)
func (s *StoreImpl) UpdateTaskStatus(ctx context.Context, internalID uuid.UUID, status models.TaskStatus, upd store.TaskStatusUpdate) error {
	query := `
		UPDATE tasks SET
			status = $2,
			started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN $5 ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed','failed','canceled') AND completed_at IS NULL THEN $5 ELSE completed_at END,
			result = CASE WHEN $2 = 'completed' AND $3::jsonb IS NOT NULL THEN $3 ELSE result END,
			error_message = CASE WHEN $2 = 'failed' AND $4 <> '' THEN $4 ELSE error_message END,
			updated_at = $5
		WHERE internal_id = $1 AND status NOT IN ('completed','failed','canceled')`

	cmdTag, err := s.db.Exec(ctx, query, internalID, status, upd.Result, upd.ErrorMessage, time.Now())
	if err != nil {
		return fmt.Errorf("update status for task %s: %w", internalID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either missing or already terminal; distinguish for the caller.
		if _, getErr := s.GetTask(ctx, internalID); getErr != nil {
			return getErr
		}
		return store.ErrTerminal
	}

	s.publish("task:"+internalID.String(), "task_status_changed", map[string]interface{}{
		"task_id": internalID.String(),
		"status":  string(status),
	})
	return nil
}

// IncrementTaskRetries bumps the retry counter under the retries < max_retries
// guard and returns the new count.
func (s *StoreImpl) IncrementTaskRetries(ctx context.Context, internalID uuid.UUID) (int, error) {
	query := `
		UPDATE tasks SET retries = retries + 1, updated_at = $2
		WHERE internal_id = $1 AND retries < max_retries
		RETURNING retries`
	var retries int
	err := s.db.QueryRow(ctx, query, internalID, time.Now()).Scan(&retries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetTask(ctx, internalID); getErr != nil {
				return 0, getErr
			}
			return 0, store.ErrRetriesExhausted
		}
		return 0, fmt.Errorf("increment retries for task %s: %w", internalID, err)
	}
	return retries, nil
}

// RequestTaskCancel flags a task for cooperative cancellation. A task that
// has not started yet is canceled immediately; a running task keeps the flag
// and is canceled by the orchestrator at the next step boundary.
func (s *StoreImpl) RequestTaskCancel(ctx context.Context, internalID uuid.UUID) error {
	query := `
		UPDATE tasks SET
			cancel_requested = TRUE,
			status = CASE WHEN status = 'pending' THEN 'canceled' ELSE status END,
			completed_at = CASE WHEN status = 'pending' THEN $2 ELSE completed_at END,
			updated_at = $2
		WHERE internal_id = $1 AND status NOT IN ('completed','failed','canceled')`
	cmdTag, err := s.db.Exec(ctx, query, internalID, time.Now())
	if err != nil {
		return fmt.Errorf("request cancel for task %s: %w", internalID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, getErr := s.GetTask(ctx, internalID); getErr != nil {
			return getErr
		}
		return store.ErrTerminal
	}

	s.publish("task:"+internalID.String(), "task_cancel_requested", map[string]interface{}{
		"task_id": internalID.String(),
	})
	return nil
}

// Ensure StoreImpl satisfies the TaskStore interface
var _ store.TaskStore = (*StoreImpl)(nil)
