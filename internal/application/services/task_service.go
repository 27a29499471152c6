package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// TaskService handles task operations inside a loop
type TaskService struct {
	taskRepo  ports.TaskRepository
	userRepo  ports.UserRepository
	guard     *OwnershipGuard
	publisher ports.EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
	now       func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, userRepo ports.UserRepository, guard *OwnershipGuard, publisher ports.EventPublisher, validate *validator.Validate, logger *logger.Logger) *TaskService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TaskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		guard:     guard,
		publisher: publisher,
		validate:  validate,
		logger:    logger.WithComponent("tasks"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask appends a pending task to an active loop
func (s *TaskService) CreateTask(ctx context.Context, userID, loopID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	description, err := requireText("description", req.Description)
	if err != nil {
		return nil, err
	}

	assignee, err := s.checkAssignee(ctx, req.AssignedUserID)
	if err != nil {
		return nil, err
	}

	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	attachments := entities.Attachments(req.Attachments)
	if attachments == nil {
		attachments = entities.Attachments{}
	}

	now := s.now()
	task := &entities.Task{
		ID:             uuid.New(),
		LoopID:         loop.ID,
		Description:    description,
		Type:           req.Type,
		AssignedUserID: assignee,
		AssignedEmail:  trimOptional(req.AssignedEmail),
		Status:         entities.TaskStatusPending,
		DueDate:        utc(req.DueDate),
		Tags:           entities.Tags(req.Tags).Normalize(),
		Notes:          emptyToNil(req.Notes),
		Attachments:    attachments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", task.ID, "loop_id", loop.ID, "order", task.Order)
	s.publisher.Publish(ctx, entities.NewTaskEvent(entities.EventTaskCreated, loop, task, now))
	return task, nil
}

// ListTasks returns the tasks of an active loop in order
func (s *TaskService) ListTasks(ctx context.Context, userID, loopID uuid.UUID) ([]*entities.Task, error) {
	loop, err := s.guard.Authorize(ctx, userID, loopID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByLoop(ctx, loop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask overwrites the provided fields of a task. Status is never
// edited here, so completed_at stays consistent. Optional fields are
// cleared with their zero value: "" for notes and assigned_email, the nil
// uuid for assigned_user_id and the zero time for due_date.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	task, loop, err := s.guard.AuthorizeTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description, err := requireText("description", *req.Description)
		if err != nil {
			return nil, err
		}
		task.Description = description
	}
	if req.Type != nil {
		task.Type = *req.Type
	}
	if req.AssignedUserID != nil {
		assignee, err := s.checkAssignee(ctx, req.AssignedUserID)
		if err != nil {
			return nil, err
		}
		task.AssignedUserID = assignee
	}
	if req.AssignedEmail != nil {
		task.AssignedEmail = trimOptional(req.AssignedEmail)
	}
	if req.DueDate != nil {
		task.DueDate = nil
		if !req.DueDate.IsZero() {
			task.DueDate = utc(req.DueDate)
		}
	}
	if req.Tags != nil {
		task.Tags = entities.Tags(*req.Tags).Normalize()
	}
	if req.Notes != nil {
		task.Notes = emptyToNil(req.Notes)
	}
	if req.Attachments != nil {
		task.Attachments = entities.Attachments(*req.Attachments)
		if task.Attachments == nil {
			task.Attachments = entities.Attachments{}
		}
	}
	task.UpdatedAt = s.now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.publisher.Publish(ctx, entities.NewTaskEvent(entities.EventTaskUpdated, loop, task, task.UpdatedAt))
	return task, nil
}

// CompleteTask marks a task completed. Completing twice refreshes
// completed_at.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, loop, err := s.guard.AuthorizeTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task.Complete(now)
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	s.publisher.Publish(ctx, entities.NewTaskEvent(entities.EventTaskCompleted, loop, task, now))
	return task, nil
}

// DeleteTask removes a task from its loop
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	task, loop, err := s.guard.AuthorizeTask(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Infow("Task deleted", "task_id", task.ID, "loop_id", loop.ID)
	s.publisher.Publish(ctx, entities.NewTaskEvent(entities.EventTaskDeleted, loop, task, s.now()))
	return nil
}

// checkAssignee resolves an optional assignee. The nil uuid means
// unassigned; any other id must belong to a registered user.
func (s *TaskService) checkAssignee(ctx context.Context, id *uuid.UUID) (*uuid.UUID, error) {
	if id == nil || *id == uuid.Nil {
		return nil, nil
	}
	if _, err := s.userRepo.GetByID(ctx, *id); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ValidationError("assigned_user_id", "unknown user")
		}
		return nil, fmt.Errorf("failed to look up assignee: %w", err)
	}
	assignee := *id
	return &assignee, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
