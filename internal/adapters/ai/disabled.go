package ai

import (
	"context"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

// Disabled is the suggester used when no provider is configured
type Disabled struct{}

func (Disabled) GenerateLoop(context.Context, ports.GenerateLoopRequest) (*ports.LoopSkeleton, error) {
	return nil, entities.ErrSuggestionsUnavailable
}

func (Disabled) SuggestTasks(context.Context, ports.LoopSnapshot) ([]ports.SuggestedTask, error) {
	return nil, entities.ErrSuggestionsUnavailable
}

func (Disabled) Optimize(context.Context, ports.LoopSnapshot) (*ports.Optimization, error) {
	return nil, entities.ErrSuggestionsUnavailable
}
