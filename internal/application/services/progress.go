package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

// ProgressCalculator derives loop progress from the current task counts
type ProgressCalculator struct {
	taskRepo ports.TaskRepository
}

// NewProgressCalculator creates a new progress calculator
func NewProgressCalculator(taskRepo ports.TaskRepository) *ProgressCalculator {
	return &ProgressCalculator{taskRepo: taskRepo}
}

// Compute returns the progress of the loop, never cached
func (p *ProgressCalculator) Compute(ctx context.Context, loopID uuid.UUID) (entities.Progress, error) {
	counts, err := p.taskRepo.CountByStatus(ctx, loopID)
	if err != nil {
		return entities.Progress{}, fmt.Errorf("compute progress: %w", err)
	}
	return counts.Progress(), nil
}
