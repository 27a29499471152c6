package entities

import (
	"time"

	"github.com/google/uuid"
)

// Business logic methods for Loop
func (l *Loop) IsDeleted() bool {
	return l.DeletedAt != nil
}

// IsOwnedBy reports whether userID owns the loop.
func (l *Loop) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// SoftDelete hides the loop until it is restored or purged.
func (l *Loop) SoftDelete(now time.Time) {
	l.DeletedAt = &now
	l.UpdatedAt = now
}

// Restore returns a soft-deleted loop to the active set.
func (l *Loop) Restore(now time.Time) {
	l.DeletedAt = nil
	l.UpdatedAt = now
}

// ToggleFavorite flips the favourite flag and returns the new value.
func (l *Loop) ToggleFavorite(now time.Time) bool {
	l.IsFavorite = !l.IsFavorite
	l.UpdatedAt = now
	return l.IsFavorite
}

// DaysRemaining is the number of whole days left before a soft-deleted loop
// becomes eligible for purge, clamped to [0, 30].
func (l *Loop) DaysRemaining(now time.Time) int {
	retentionDays := int(DeletedLoopRetention / (24 * time.Hour))
	if l.DeletedAt == nil {
		return retentionDays
	}
	elapsed := int(now.Sub(*l.DeletedAt) / (24 * time.Hour))
	remaining := retentionDays - elapsed
	if remaining < 0 {
		return 0
	}
	if remaining > retentionDays {
		return retentionDays
	}
	return remaining
}

// PurgeEligible reports whether the grace period of a soft-deleted loop has elapsed.
func (l *Loop) PurgeEligible(now time.Time) bool {
	return l.DeletedAt != nil && !now.Before(l.DeletedAt.Add(DeletedLoopRetention))
}

// Business logic methods for Task
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// Complete marks the task done. Completing an already completed task only
// refreshes completed_at.
func (t *Task) Complete(now time.Time) {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Reloop applies the reset transition and reports whether the task changed.
// Recurring tasks always return to pending; completed one-time tasks are
// archived; every other task is left alone.
func (t *Task) Reloop(now time.Time) bool {
	switch {
	case t.Type == TaskTypeRecurring:
		t.Status = TaskStatusPending
		t.CompletedAt = nil
		t.UpdatedAt = now
		return true
	case t.Type == TaskTypeOneTime && t.Status == TaskStatusCompleted:
		// completed_at is present iff status is completed
		t.Status = TaskStatusArchived
		t.CompletedAt = nil
		t.UpdatedAt = now
		return true
	default:
		return false
	}
}

// ReloopResult summarises one reloop pass over a loop.
type ReloopResult struct {
	Reset    int `json:"reset"`
	Archived int `json:"archived"`
}

// NewProgress derives the progress percentage from task counts. Archived
// tasks must already be excluded from total.
func NewProgress(total, completed int) Progress {
	p := Progress{TotalTasks: total, CompletedTasks: completed}
	if total > 0 {
		p.Progress = completed * 100 / total
	}
	return p
}

// TaskCounts holds the number of tasks in a loop per status.
type TaskCounts map[TaskStatus]int

// Progress converts the counts into a Progress value.
func (c TaskCounts) Progress() Progress {
	total := 0
	for status, n := range c {
		if status != TaskStatusArchived {
			total += n
		}
	}
	return NewProgress(total, c[TaskStatusCompleted])
}
