package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

const defaultSuggestedColor = "#FFC93A"

// SuggestionService turns AI suggestions into loops and tasks. Nothing is
// persisted until the user accepts a suggestion.
type SuggestionService struct {
	suggester ports.Suggester
	loops     *LoopService
	tasks     *TaskService
	logger    *logger.Logger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(suggester ports.Suggester, loops *LoopService, tasks *TaskService, logger *logger.Logger) *SuggestionService {
	return &SuggestionService{
		suggester: suggester,
		loops:     loops,
		tasks:     tasks,
		logger:    logger.WithComponent("suggestions"),
	}
}

// GenerateLoop asks the suggester for a loop skeleton
func (s *SuggestionService) GenerateLoop(ctx context.Context, userID uuid.UUID, req ports.GenerateLoopRequest) (*ports.LoopSkeleton, error) {
	if _, err := requireText("description", req.Prompt); err != nil {
		return nil, err
	}

	skeleton, err := s.suggester.GenerateLoop(ctx, req)
	if err != nil {
		s.logger.Warnw("Loop generation failed", "user_id", userID, "error", err)
		return nil, err
	}
	return NormalizeSkeleton(skeleton), nil
}

// SuggestTasks proposes additional tasks for an active loop
func (s *SuggestionService) SuggestTasks(ctx context.Context, userID, loopID uuid.UUID) ([]ports.SuggestedTask, error) {
	snapshot, err := s.snapshot(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	suggested, err := s.suggester.SuggestTasks(ctx, *snapshot)
	if err != nil {
		s.logger.Warnw("Task suggestion failed", "loop_id", loopID, "error", err)
		return nil, err
	}
	return normalizeTasks(suggested), nil
}

// Optimize asks for advice on an active loop
func (s *SuggestionService) Optimize(ctx context.Context, userID, loopID uuid.UUID) (*ports.Optimization, error) {
	snapshot, err := s.snapshot(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	opt, err := s.suggester.Optimize(ctx, *snapshot)
	if err != nil {
		s.logger.Warnw("Loop optimization failed", "loop_id", loopID, "error", err)
		return nil, err
	}
	if opt.Suggestions == nil {
		opt.Suggestions = []string{}
	}
	return opt, nil
}

// AcceptLoop persists a skeleton through the regular create paths
func (s *SuggestionService) AcceptLoop(ctx context.Context, userID uuid.UUID, skeleton ports.LoopSkeleton) (*ports.LoopDetail, error) {
	normalized := NormalizeSkeleton(&skeleton)

	var description *string
	if normalized.Description != "" {
		description = &normalized.Description
	}

	loop, err := s.loops.CreateLoop(ctx, userID, ports.CreateLoopRequest{
		Name:        normalized.Name,
		Description: description,
		Color:       normalized.Color,
		ResetRule:   entities.ResetRule(normalized.ResetRule),
	})
	if err != nil {
		return nil, err
	}

	tasks, err := s.createTasks(ctx, userID, loop.ID, normalized.Tasks)
	if err != nil {
		return nil, err
	}

	return &ports.LoopDetail{Loop: loop, Tasks: tasks}, nil
}

// AcceptTasks persists suggested tasks into an active loop
func (s *SuggestionService) AcceptTasks(ctx context.Context, userID, loopID uuid.UUID, req ports.AcceptTasksRequest) ([]*entities.Task, error) {
	tasks := normalizeTasks(req.Tasks)
	if len(tasks) == 0 {
		return nil, entities.ValidationError("tasks", "must contain at least one task")
	}
	return s.createTasks(ctx, userID, loopID, tasks)
}

func (s *SuggestionService) createTasks(ctx context.Context, userID, loopID uuid.UUID, suggested []ports.SuggestedTask) ([]*entities.Task, error) {
	out := make([]*entities.Task, 0, len(suggested))
	for _, st := range suggested {
		task, err := s.tasks.CreateTask(ctx, userID, loopID, ports.CreateTaskRequest{
			Description: st.Description,
			Type:        entities.TaskType(st.Type),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

func (s *SuggestionService) snapshot(ctx context.Context, userID, loopID uuid.UUID) (*ports.LoopSnapshot, error) {
	loop, err := s.loops.Guard().Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.taskRepo.ListByLoop(ctx, loop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	snapshot := &ports.LoopSnapshot{
		Name:      loop.Name,
		ResetRule: string(loop.ResetRule),
		Tasks:     make([]string, 0, len(tasks)),
	}
	if loop.Description != nil {
		snapshot.Description = *loop.Description
	}
	for _, t := range tasks {
		if t.Status == entities.TaskStatusArchived {
			continue
		}
		snapshot.Tasks = append(snapshot.Tasks, t.Description)
	}
	return snapshot, nil
}

// NormalizeSkeleton maps a free-form suggestion onto valid loop fields:
// unknown reset rules become manual, unknown task types become one-time,
// blank tasks are dropped.
func NormalizeSkeleton(in *ports.LoopSkeleton) *ports.LoopSkeleton {
	out := &ports.LoopSkeleton{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Color:       strings.TrimSpace(in.Color),
		ResetRule:   strings.ToLower(strings.TrimSpace(in.ResetRule)),
		Tasks:       normalizeTasks(in.Tasks),
	}
	if out.Name == "" {
		out.Name = "New loop"
	}
	if out.Color == "" {
		out.Color = defaultSuggestedColor
	}
	if !entities.ResetRule(out.ResetRule).IsValid() {
		out.ResetRule = string(entities.ResetRuleManual)
	}
	return out
}

func normalizeTasks(in []ports.SuggestedTask) []ports.SuggestedTask {
	out := make([]ports.SuggestedTask, 0, len(in))
	for _, t := range in {
		desc := strings.TrimSpace(t.Description)
		if desc == "" {
			continue
		}
		typ := strings.ToLower(strings.TrimSpace(t.Type))
		if typ == "one_time" || typ == "onetime" {
			typ = string(entities.TaskTypeOneTime)
		}
		if !entities.TaskType(typ).IsValid() {
			typ = string(entities.TaskTypeOneTime)
		}
		out = append(out, ports.SuggestedTask{Description: desc, Type: typ})
	}
	return out
}
