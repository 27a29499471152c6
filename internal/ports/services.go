package ports

import (
	"time"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/google/uuid"
)

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         *entities.User `json:"user"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Loop related types
type CreateLoopRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=1000"`
	Color       string             `json:"color" validate:"required,max=32"`
	ResetRule   entities.ResetRule `json:"reset_rule" validate:"required,oneof=manual daily weekly"`
}

type UpdateLoopRequest struct {
	Name        *string             `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string             `json:"description" validate:"omitempty,max=1000"`
	Color       *string             `json:"color" validate:"omitempty,min=1,max=32"`
	ResetRule   *entities.ResetRule `json:"reset_rule" validate:"omitempty,oneof=manual daily weekly"`
}

// LoopWithProgress is a loop annotated with its derived progress
type LoopWithProgress struct {
	*entities.Loop
	entities.Progress
}

// DeletedLoop is a soft-deleted loop annotated with its remaining grace days
type DeletedLoop struct {
	*entities.Loop
	DaysRemaining int `json:"days_remaining"`
}

type FavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

// Task related types
type CreateTaskRequest struct {
	Description    string                `json:"description" validate:"required,max=1000"`
	Type           entities.TaskType     `json:"type" validate:"required,oneof=recurring one-time"`
	AssignedUserID *uuid.UUID            `json:"assigned_user_id"`
	AssignedEmail  *string               `json:"assigned_email" validate:"omitempty,email"`
	DueDate        *time.Time            `json:"due_date"`
	Tags           []string              `json:"tags" validate:"omitempty,dive,max=50"`
	Notes          *string               `json:"notes" validate:"omitempty,max=5000"`
	Attachments    []entities.Attachment `json:"attachments" validate:"omitempty,dive"`
}

// UpdateTaskRequest is a partial update: absent fields are kept. A zero
// value clears an optional field ("" notes or email, the nil uuid, the zero
// time).
type UpdateTaskRequest struct {
	Description    *string                `json:"description" validate:"omitempty,min=1,max=1000"`
	Type           *entities.TaskType     `json:"type" validate:"omitempty,oneof=recurring one-time"`
	AssignedUserID *uuid.UUID             `json:"assigned_user_id"`
	AssignedEmail  *string                `json:"assigned_email" validate:"omitempty,email"`
	DueDate        *time.Time             `json:"due_date"`
	Tags           *[]string              `json:"tags" validate:"omitempty,dive,max=50"`
	Notes          *string                `json:"notes" validate:"omitempty,max=5000"`
	Attachments    *[]entities.Attachment `json:"attachments" validate:"omitempty,dive"`
}

// AI suggestion types
type GenerateLoopRequest struct {
	Prompt   string `json:"description" validate:"required,max=2000"`
	Category string `json:"category" validate:"omitempty,max=50"`
}

// LoopSkeleton is a suggested loop that has not been persisted
type LoopSkeleton struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=1000"`
	Color       string          `json:"color" validate:"required,max=32"`
	ResetRule   string          `json:"reset_rule" validate:"required"`
	Tasks       []SuggestedTask `json:"tasks" validate:"dive"`
}

type SuggestedTask struct {
	Description string `json:"description" validate:"required,max=1000"`
	Type        string `json:"type" validate:"required"`
}

// LoopSnapshot is the read-only view of a loop handed to the suggester
type LoopSnapshot struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ResetRule   string   `json:"reset_rule"`
	Tasks       []string `json:"tasks"`
}

type Optimization struct {
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

type AcceptTasksRequest struct {
	Tasks []SuggestedTask `json:"tasks" validate:"required,min=1,dive"`
}

// Template library types
type LoopTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Category    string          `json:"category" yaml:"category"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Color       string          `json:"color" yaml:"color"`
	ResetRule   string          `json:"reset_rule" yaml:"reset_rule"`
	Tasks       []SuggestedTask `json:"tasks" yaml:"tasks"`
}

// LoopDetail is a created loop together with its tasks
type LoopDetail struct {
	Loop  *entities.Loop   `json:"loop"`
	Tasks []*entities.Task `json:"tasks"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
