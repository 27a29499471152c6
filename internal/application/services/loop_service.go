package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// LoopService handles loop lifecycle operations
type LoopService struct {
	loopRepo  ports.LoopRepository
	taskRepo  ports.TaskRepository
	guard     *OwnershipGuard
	progress  *ProgressCalculator
	publisher ports.EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
	now       func() time.Time
}

// NewLoopService creates a new loop service
func NewLoopService(loopRepo ports.LoopRepository, taskRepo ports.TaskRepository, publisher ports.EventPublisher, validate *validator.Validate, logger *logger.Logger) *LoopService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &LoopService{
		loopRepo:  loopRepo,
		taskRepo:  taskRepo,
		guard:     NewOwnershipGuard(loopRepo, taskRepo),
		progress:  NewProgressCalculator(taskRepo),
		publisher: publisher,
		validate:  validate,
		logger:    logger.WithComponent("loops"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Guard exposes the ownership guard shared with the other services
func (s *LoopService) Guard() *OwnershipGuard {
	return s.guard
}

// CreateLoop creates a new loop owned by userID
func (s *LoopService) CreateLoop(ctx context.Context, userID uuid.UUID, req ports.CreateLoopRequest) (*entities.Loop, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	name, err := requireText("name", req.Name)
	if err != nil {
		return nil, err
	}
	color, err := requireText("color", req.Color)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loop := &entities.Loop{
		ID:          uuid.New(),
		OwnerID:     userID,
		Name:        name,
		Description: trimOptional(req.Description),
		Color:       color,
		ResetRule:   req.ResetRule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.loopRepo.Create(ctx, loop); err != nil {
		return nil, fmt.Errorf("failed to create loop: %w", err)
	}

	s.logger.Infow("Loop created", "loop_id", loop.ID, "owner_id", userID, "reset_rule", loop.ResetRule)
	s.publisher.Publish(ctx, entities.NewLoopEvent(entities.EventLoopCreated, loop, now))

	return loop, nil
}

// ListLoops returns the active loops of the user with their progress
func (s *LoopService) ListLoops(ctx context.Context, userID uuid.UUID) ([]*ports.LoopWithProgress, error) {
	return s.listWithProgress(ctx, ports.LoopFilter{OwnerID: &userID})
}

// ListFavoriteLoops returns the active favourite loops of the user
func (s *LoopService) ListFavoriteLoops(ctx context.Context, userID uuid.UUID) ([]*ports.LoopWithProgress, error) {
	favorite := true
	return s.listWithProgress(ctx, ports.LoopFilter{OwnerID: &userID, Favorite: &favorite})
}

func (s *LoopService) listWithProgress(ctx context.Context, filter ports.LoopFilter) ([]*ports.LoopWithProgress, error) {
	loops, err := s.loopRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list loops: %w", err)
	}

	out := make([]*ports.LoopWithProgress, 0, len(loops))
	for _, loop := range loops {
		progress, err := s.progress.Compute(ctx, loop.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &ports.LoopWithProgress{Loop: loop, Progress: progress})
	}
	return out, nil
}

// GetLoop returns one active loop with its progress
func (s *LoopService) GetLoop(ctx context.Context, userID, loopID uuid.UUID) (*ports.LoopWithProgress, error) {
	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress.Compute(ctx, loop.ID)
	if err != nil {
		return nil, err
	}
	return &ports.LoopWithProgress{Loop: loop, Progress: progress}, nil
}

// UpdateLoop overwrites the provided fields of an active loop
func (s *LoopService) UpdateLoop(ctx context.Context, userID, loopID uuid.UUID, req ports.UpdateLoopRequest) (*entities.Loop, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name, err := requireText("name", *req.Name)
		if err != nil {
			return nil, err
		}
		loop.Name = name
	}
	if req.Description != nil {
		loop.Description = trimOptional(req.Description)
	}
	if req.Color != nil {
		color, err := requireText("color", *req.Color)
		if err != nil {
			return nil, err
		}
		loop.Color = color
	}
	if req.ResetRule != nil {
		loop.ResetRule = *req.ResetRule
	}
	loop.UpdatedAt = s.now()

	if err := s.loopRepo.Update(ctx, loop); err != nil {
		return nil, fmt.Errorf("failed to update loop: %w", err)
	}

	s.publisher.Publish(ctx, entities.NewLoopEvent(entities.EventLoopUpdated, loop, loop.UpdatedAt))
	return loop, nil
}

// SoftDeleteLoop hides an active loop for the grace period
func (s *LoopService) SoftDeleteLoop(ctx context.Context, userID, loopID uuid.UUID) error {
	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return err
	}

	now := s.now()
	loop.SoftDelete(now)
	if err := s.loopRepo.Update(ctx, loop); err != nil {
		return fmt.Errorf("failed to delete loop: %w", err)
	}

	s.logger.Infow("Loop soft-deleted", "loop_id", loop.ID, "owner_id", userID)
	s.publisher.Publish(ctx, entities.NewLoopEvent(entities.EventLoopDeleted, loop, now))
	return nil
}

// RestoreLoop brings a soft-deleted loop back
func (s *LoopService) RestoreLoop(ctx context.Context, userID, loopID uuid.UUID) (*entities.Loop, error) {
	loop, err := s.guard.AuthorizeDeleted(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loop.Restore(now)
	if err := s.loopRepo.Update(ctx, loop); err != nil {
		return nil, fmt.Errorf("failed to restore loop: %w", err)
	}

	s.logger.Infow("Loop restored", "loop_id", loop.ID, "owner_id", userID)
	s.publisher.Publish(ctx, entities.NewLoopEvent(entities.EventLoopRestored, loop, now))
	return loop, nil
}

// PurgeLoop permanently removes a soft-deleted loop and its tasks
func (s *LoopService) PurgeLoop(ctx context.Context, userID, loopID uuid.UUID) error {
	loop, err := s.guard.AuthorizeDeleted(ctx, userID, loopID)
	if err != nil {
		return err
	}
	return s.purge(ctx, loop)
}

func (s *LoopService) purge(ctx context.Context, loop *entities.Loop) error {
	if err := s.loopRepo.Delete(ctx, loop.ID); err != nil {
		return fmt.Errorf("failed to purge loop: %w", err)
	}
	s.logger.Infow("Loop purged", "loop_id", loop.ID, "owner_id", loop.OwnerID)
	s.publisher.Publish(ctx, entities.NewLoopEvent(entities.EventLoopPurged, loop, s.now()))
	return nil
}

// ListDeletedLoops returns the soft-deleted loops of the user with the days
// left before they can be purged
func (s *LoopService) ListDeletedLoops(ctx context.Context, userID uuid.UUID) ([]*ports.DeletedLoop, error) {
	loops, err := s.loopRepo.List(ctx, ports.LoopFilter{OwnerID: &userID, Deleted: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted loops: %w", err)
	}

	now := s.now()
	out := make([]*ports.DeletedLoop, 0, len(loops))
	for _, loop := range loops {
		out = append(out, &ports.DeletedLoop{Loop: loop, DaysRemaining: loop.DaysRemaining(now)})
	}
	return out, nil
}

// ToggleFavorite flips the favourite flag and returns the new value
func (s *LoopService) ToggleFavorite(ctx context.Context, userID, loopID uuid.UUID) (bool, error) {
	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return false, err
	}

	now := s.now()
	favorite := loop.ToggleFavorite(now)
	if err := s.loopRepo.Update(ctx, loop); err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}

	event := entities.NewLoopEvent(entities.EventLoopFavorited, loop, now)
	event.Data = map[string]interface{}{"is_favorite": favorite}
	s.publisher.Publish(ctx, event)
	return favorite, nil
}

// Reloop resets the tasks of an active loop
func (s *LoopService) Reloop(ctx context.Context, userID, loopID uuid.UUID) (*entities.ReloopResult, error) {
	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}
	return s.reloop(ctx, loop)
}

func (s *LoopService) reloop(ctx context.Context, loop *entities.Loop) (*entities.ReloopResult, error) {
	now := s.now()
	result := &entities.ReloopResult{}

	_, err := s.taskRepo.ApplyToLoop(ctx, loop.ID, func(task *entities.Task) bool {
		if !task.Reloop(now) {
			return false
		}
		if task.Status == entities.TaskStatusArchived {
			result.Archived++
		} else {
			result.Reset++
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reloop: %w", err)
	}

	s.logger.Infow("Loop relooped", "loop_id", loop.ID, "reset", result.Reset, "archived", result.Archived)

	event := entities.NewLoopEvent(entities.EventLoopRelooped, loop, now)
	event.Data = map[string]interface{}{"reset": result.Reset, "archived": result.Archived}
	s.publisher.Publish(ctx, event)
	return result, nil
}

// PurgeExpired removes every soft-deleted loop whose grace period has
// elapsed at now. It returns how many loops were purged.
func (s *LoopService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	loops, err := s.loopRepo.List(ctx, ports.LoopFilter{Deleted: true})
	if err != nil {
		return 0, fmt.Errorf("failed to list deleted loops: %w", err)
	}

	purged := 0
	for _, loop := range loops {
		if !loop.PurgeEligible(now) {
			continue
		}
		if err := s.purge(ctx, loop); err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		s.logger.Infow("Expired loops purged", "count", purged)
	}
	return purged, nil
}

// ReloopByRule reloops every active loop with the given reset rule and
// returns how many loops were processed
func (s *LoopService) ReloopByRule(ctx context.Context, rule entities.ResetRule) (int, error) {
	if rule != entities.ResetRuleDaily && rule != entities.ResetRuleWeekly {
		return 0, entities.ValidationError("reset_rule", "must be daily or weekly")
	}

	loops, err := s.loopRepo.List(ctx, ports.LoopFilter{ResetRule: &rule})
	if err != nil {
		return 0, fmt.Errorf("failed to list loops: %w", err)
	}

	processed := 0
	for _, loop := range loops {
		if _, err := s.reloop(ctx, loop); err != nil {
			s.logger.Errorw("Scheduled reloop failed", "loop_id", loop.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
