package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/ports"
)

const loopColumns = `id, owner_id, name, description, color, reset_rule, is_favorite,
	created_at, updated_at, deleted_at`

// LoopRepositoryImpl implements the LoopRepository interface
type LoopRepositoryImpl struct {
	db *database.DB
}

// NewLoopRepository creates a new loop repository
func NewLoopRepository(db *database.DB) ports.LoopRepository {
	return &LoopRepositoryImpl{db: db}
}

func (r *LoopRepositoryImpl) Create(ctx context.Context, loop *entities.Loop) error {
	query := r.db.DB.Rebind(`
		INSERT INTO loops (` + loopColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if loop.ID == uuid.Nil {
		loop.ID = uuid.New()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		loop.ID, loop.OwnerID, loop.Name, loop.Description, loop.Color, loop.ResetRule,
		loop.IsFavorite, loop.CreatedAt.UTC(), loop.UpdatedAt.UTC(), utcPtr(loop.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create loop: %w", err)
	}

	return nil
}

func (r *LoopRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Loop, error) {
	query := r.db.DB.Rebind(`SELECT ` + loopColumns + ` FROM loops WHERE id = ?`)

	var loop entities.Loop
	err := r.db.DB.GetContext(ctx, &loop, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrLoopNotFound
		}
		return nil, fmt.Errorf("get loop by id: %w", err)
	}

	return &loop, nil
}

func (r *LoopRepositoryImpl) Update(ctx context.Context, loop *entities.Loop) error {
	query := r.db.DB.Rebind(`
		UPDATE loops
		SET name = ?, description = ?, color = ?, reset_rule = ?, is_favorite = ?,
			updated_at = ?, deleted_at = ?
		WHERE id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query,
		loop.Name, loop.Description, loop.Color, loop.ResetRule, loop.IsFavorite,
		loop.UpdatedAt.UTC(), utcPtr(loop.DeletedAt), loop.ID,
	)
	if err != nil {
		return fmt.Errorf("update loop: %w", err)
	}

	return expectAffected(result, entities.ErrLoopNotFound)
}

// Delete removes the loop row; its tasks go with it through the cascade.
func (r *LoopRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		// Removed explicitly too, in case foreign keys are off on the connection.
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE loop_id = ?`), id); err != nil {
			return fmt.Errorf("delete loop tasks: %w", err)
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM loops WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete loop: %w", err)
		}
		return expectAffected(result, entities.ErrLoopNotFound)
	})
}

func (r *LoopRepositoryImpl) List(ctx context.Context, filter ports.LoopFilter) ([]*entities.Loop, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	if filter.Deleted {
		conditions = append(conditions, "deleted_at IS NOT NULL")
	} else {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Favorite != nil {
		conditions = append(conditions, "is_favorite = ?")
		args = append(args, *filter.Favorite)
	}
	if filter.ResetRule != nil {
		conditions = append(conditions, "reset_rule = ?")
		args = append(args, *filter.ResetRule)
	}

	orderBy := "created_at DESC"
	if filter.Deleted {
		orderBy = "deleted_at DESC"
	}

	query := r.db.DB.Rebind(fmt.Sprintf(`SELECT %s FROM loops WHERE %s ORDER BY %s`,
		loopColumns, strings.Join(conditions, " AND "), orderBy))

	loops := []*entities.Loop{}
	if err := r.db.DB.SelectContext(ctx, &loops, query, args...); err != nil {
		return nil, fmt.Errorf("list loops: %w", err)
	}

	return loops, nil
}

func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
