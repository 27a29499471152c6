package services

import (
	"context"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, entities.Event) {}

// MultiPublisher fans an event out to several sinks in order
type MultiPublisher []ports.EventPublisher

// NewMultiPublisher creates a publisher over the non-nil sinks
func NewMultiPublisher(sinks ...ports.EventPublisher) MultiPublisher {
	out := make(MultiPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiPublisher) Publish(ctx context.Context, event entities.Event) {
	for _, sink := range m {
		sink.Publish(ctx, event)
	}
}
