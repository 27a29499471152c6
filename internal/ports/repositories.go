package ports

import (
	"context"
	"time"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// LoopRepository defines the interface for loop data operations.
// GetByID returns soft-deleted loops as well; callers decide visibility.
type LoopRepository interface {
	Create(ctx context.Context, loop *entities.Loop) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Loop, error)
	Update(ctx context.Context, loop *entities.Loop) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter LoopFilter) ([]*entities.Loop, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByLoop(ctx context.Context, loopID uuid.UUID) ([]*entities.Task, error)
	CountByStatus(ctx context.Context, loopID uuid.UUID) (entities.TaskCounts, error)
	// ApplyToLoop runs mutate over every task of the loop inside one
	// transaction and persists the tasks for which it returns true.
	ApplyToLoop(ctx context.Context, loopID uuid.UUID, mutate func(*entities.Task) bool) (int, error)
}

// AuthRepository defines the interface for refresh token storage
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// EventPublisher receives lifecycle events after a mutation is stored
type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event)
}

// Suggester is the AI text-completion collaborator
type Suggester interface {
	GenerateLoop(ctx context.Context, req GenerateLoopRequest) (*LoopSkeleton, error)
	SuggestTasks(ctx context.Context, snapshot LoopSnapshot) ([]SuggestedTask, error)
	Optimize(ctx context.Context, snapshot LoopSnapshot) (*Optimization, error)
}

// LoopFilter narrows loop listings. OwnerID nil means all owners.
type LoopFilter struct {
	OwnerID   *uuid.UUID
	Deleted   bool
	Favorite  *bool
	ResetRule *entities.ResetRule
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
