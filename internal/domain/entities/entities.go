package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound               = errors.New("not found")
	ErrLoopNotFound           = fmt.Errorf("loop %w", ErrNotFound)
	ErrTaskNotFound           = fmt.Errorf("task %w", ErrNotFound)
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrInvalidCredentials     = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	ErrConflict               = errors.New("conflict")
	ErrEmailTaken             = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrValidation             = errors.New("validation failed")
	ErrSuggestionsUnavailable = errors.New("suggestions unavailable")
)

// ValidationError builds an ErrValidation carrying a field-level reason.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// Enums and types
type ResetRule string

const (
	ResetRuleManual ResetRule = "manual"
	ResetRuleDaily  ResetRule = "daily"
	ResetRuleWeekly ResetRule = "weekly"
)

type TaskType string

const (
	TaskTypeRecurring TaskType = "recurring"
	TaskTypeOneTime   TaskType = "one-time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusArchived  TaskStatus = "archived"
)

// DeletedLoopRetention is how long a soft-deleted loop stays restorable.
const DeletedLoopRetention = 30 * 24 * time.Hour

// User represents an account that owns loops
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Loop represents a named, owned collection of tasks with a reset policy
type Loop struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description" db:"description"`
	Color       string     `json:"color" db:"color"`
	ResetRule   ResetRule  `json:"reset_rule" db:"reset_rule"`
	IsFavorite  bool       `json:"is_favorite" db:"is_favorite"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Task represents a single item inside a loop
type Task struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	LoopID         uuid.UUID   `json:"loop_id" db:"loop_id"`
	Description    string      `json:"description" db:"description"`
	Type           TaskType    `json:"type" db:"type"`
	AssignedUserID *uuid.UUID  `json:"assigned_user_id" db:"assigned_user_id"`
	AssignedEmail  *string     `json:"assigned_email" db:"assigned_email"`
	Status         TaskStatus  `json:"status" db:"status"`
	Order          int         `json:"order" db:"position"`
	DueDate        *time.Time  `json:"due_date" db:"due_date"`
	Tags           Tags        `json:"tags" db:"tags"`
	Notes          *string     `json:"notes" db:"notes"`
	Attachments    Attachments `json:"attachments" db:"attachments"`
	CompletedAt    *time.Time  `json:"completed_at" db:"completed_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Attachment is a link stored alongside a task
type Attachment struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"omitempty,max=100"`
}

// Progress is the derived completion state of a loop
type Progress struct {
	Progress       int `json:"progress"`
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
}

// Tags is a set of task labels persisted as a JSON array.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	return marshalJSONColumn(t.Normalize())
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var out []string
	if err := unmarshalJSONColumn(src, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = Tags(out).Normalize()
	return nil
}

// Normalize trims, drops blanks and duplicates, and never returns nil.
func (t Tags) Normalize() Tags {
	out := make(Tags, 0, len(t))
	seen := make(map[string]struct{}, len(t))
	for _, tag := range t {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Attachments is an ordered list of attachments persisted as a JSON array.
type Attachments []Attachment

// Value implements driver.Valuer.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		a = Attachments{}
	}
	return marshalJSONColumn(a)
}

// Scan implements sql.Scanner.
func (a *Attachments) Scan(src interface{}) error {
	var out []Attachment
	if err := unmarshalJSONColumn(src, &out); err != nil {
		return fmt.Errorf("scan attachments: %w", err)
	}
	if out == nil {
		out = []Attachment{}
	}
	*a = out
	return nil
}

func marshalJSONColumn(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalJSONColumn(src interface{}, dest interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Utility methods
func (r ResetRule) IsValid() bool {
	switch r {
	case ResetRuleManual, ResetRuleDaily, ResetRuleWeekly:
		return true
	default:
		return false
	}
}

func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeRecurring, TaskTypeOneTime:
		return true
	default:
		return false
	}
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusArchived:
		return true
	default:
		return false
	}
}
