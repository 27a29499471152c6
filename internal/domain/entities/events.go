package entities

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLoopCreated   EventType = "loop.created"
	EventLoopUpdated   EventType = "loop.updated"
	EventLoopDeleted   EventType = "loop.deleted"
	EventLoopRestored  EventType = "loop.restored"
	EventLoopPurged    EventType = "loop.purged"
	EventLoopRelooped  EventType = "loop.relooped"
	EventLoopFavorited EventType = "loop.favorited"
	EventTaskCreated   EventType = "task.created"
	EventTaskUpdated   EventType = "task.updated"
	EventTaskCompleted EventType = "task.completed"
	EventTaskDeleted   EventType = "task.deleted"
)

// Event describes a lifecycle change, delivered to the loop owner only.
type Event struct {
	Type    EventType              `json:"type"`
	OwnerID uuid.UUID              `json:"-"`
	LoopID  uuid.UUID              `json:"loop_id"`
	TaskID  *uuid.UUID             `json:"task_id,omitempty"`
	At      time.Time              `json:"at"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NewLoopEvent creates an event about a loop.
func NewLoopEvent(eventType EventType, loop *Loop, at time.Time) Event {
	return Event{
		Type:    eventType,
		OwnerID: loop.OwnerID,
		LoopID:  loop.ID,
		At:      at,
	}
}

// NewTaskEvent creates an event about a task inside loop.
func NewTaskEvent(eventType EventType, loop *Loop, task *Task, at time.Time) Event {
	taskID := task.ID
	return Event{
		Type:    eventType,
		OwnerID: loop.OwnerID,
		LoopID:  loop.ID,
		TaskID:  &taskID,
		At:      at,
	}
}
