package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

// OwnershipGuard resolves loops and tasks on behalf of a user. A loop that
// is missing, owned by someone else, or in the wrong deletion state is
// reported as not found in every case.
type OwnershipGuard struct {
	loopRepo ports.LoopRepository
	taskRepo ports.TaskRepository
}

// NewOwnershipGuard creates a new ownership guard
func NewOwnershipGuard(loopRepo ports.LoopRepository, taskRepo ports.TaskRepository) *OwnershipGuard {
	return &OwnershipGuard{loopRepo: loopRepo, taskRepo: taskRepo}
}

// Authorize returns the active loop if userID owns it
func (g *OwnershipGuard) Authorize(ctx context.Context, userID, loopID uuid.UUID) (*entities.Loop, error) {
	loop, err := g.owned(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}
	if loop.IsDeleted() {
		return nil, entities.ErrLoopNotFound
	}
	return loop, nil
}

// AuthorizeDeleted returns the soft-deleted loop if userID owns it
func (g *OwnershipGuard) AuthorizeDeleted(ctx context.Context, userID, loopID uuid.UUID) (*entities.Loop, error) {
	loop, err := g.owned(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}
	if !loop.IsDeleted() {
		return nil, entities.ErrLoopNotFound
	}
	return loop, nil
}

// AuthorizeTask resolves the task and checks its parent loop
func (g *OwnershipGuard) AuthorizeTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, *entities.Loop, error) {
	task, err := g.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	loop, err := g.Authorize(ctx, userID, task.LoopID)
	if err != nil {
		// The task exists but is hidden from this user.
		if errors.Is(err, entities.ErrNotFound) {
			return nil, nil, entities.ErrTaskNotFound
		}
		return nil, nil, err
	}
	return task, loop, nil
}

func (g *OwnershipGuard) owned(ctx context.Context, userID, loopID uuid.UUID) (*entities.Loop, error) {
	loop, err := g.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		return nil, err
	}
	if !loop.IsOwnedBy(userID) {
		return nil, entities.ErrLoopNotFound
	}
	return loop, nil
}
