package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/ports"
)

const taskColumns = `id, loop_id, description, type, assigned_user_id, assigned_email, status,
	position, due_date, tags, notes, attachments, completed_at, created_at, updated_at`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

// Create inserts the task at the end of its loop. The position is chosen
// inside the same transaction as the insert.
func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var next int
		err := tx.GetContext(ctx, &next,
			tx.Rebind(`SELECT COALESCE(MAX(position), 0) + 1 FROM tasks WHERE loop_id = ?`), task.LoopID)
		if err != nil {
			return fmt.Errorf("next task position: %w", err)
		}
		task.Order = next

		query := tx.Rebind(`
			INSERT INTO tasks (` + taskColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

		_, err = tx.ExecContext(ctx, query,
			task.ID, task.LoopID, task.Description, task.Type, task.AssignedUserID, task.AssignedEmail,
			task.Status, task.Order, utcPtr(task.DueDate), task.Tags, task.Notes, task.Attachments,
			utcPtr(task.CompletedAt), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return errUnknownAssignee
			}
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := r.db.DB.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)

	var task entities.Task
	err := r.db.DB.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	result, err := updateTask(ctx, r.db.DB, task)
	if err != nil {
		return err
	}
	return expectAffected(result, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, r.db.DB.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(result, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) ListByLoop(ctx context.Context, loopID uuid.UUID) ([]*entities.Task, error) {
	return listTasks(ctx, r.db.DB, loopID)
}

func (r *TaskRepositoryImpl) CountByStatus(ctx context.Context, loopID uuid.UUID) (entities.TaskCounts, error) {
	query := r.db.DB.Rebind(`
		SELECT status, COUNT(*) AS total
		FROM tasks
		WHERE loop_id = ?
		GROUP BY status`)

	var rows []struct {
		Status entities.TaskStatus `db:"status"`
		Total  int                 `db:"total"`
	}
	if err := r.db.DB.SelectContext(ctx, &rows, query, loopID); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}

	counts := make(entities.TaskCounts, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ApplyToLoop loads every task of the loop, lets mutate change them, and
// writes back the changed ones, all in one transaction.
func (r *TaskRepositoryImpl) ApplyToLoop(ctx context.Context, loopID uuid.UUID, mutate func(*entities.Task) bool) (int, error) {
	changed := 0
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		tasks, err := listTasks(ctx, tx, loopID)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if !mutate(task) {
				continue
			}
			if _, err := updateTask(ctx, tx, task); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

type queryer interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func listTasks(ctx context.Context, q queryer, loopID uuid.UUID) ([]*entities.Task, error) {
	query := q.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE loop_id = ? ORDER BY position ASC`)

	tasks := []*entities.Task{}
	if err := q.SelectContext(ctx, &tasks, query, loopID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func updateTask(ctx context.Context, q queryer, task *entities.Task) (sql.Result, error) {
	query := q.Rebind(`
		UPDATE tasks
		SET description = ?, type = ?, assigned_user_id = ?, assigned_email = ?, status = ?,
			position = ?, due_date = ?, tags = ?, notes = ?, attachments = ?, completed_at = ?,
			updated_at = ?
		WHERE id = ?`)

	result, err := q.ExecContext(ctx, query,
		task.Description, task.Type, task.AssignedUserID, task.AssignedEmail, task.Status,
		task.Order, utcPtr(task.DueDate), task.Tags, task.Notes, task.Attachments,
		utcPtr(task.CompletedAt), task.UpdatedAt.UTC(), task.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, errUnknownAssignee
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return result, nil
}
