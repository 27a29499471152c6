package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/application/library"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

// TemplateService exposes the built-in loop library
type TemplateService struct {
	catalog     *library.Catalog
	suggestions *SuggestionService
}

// NewTemplateService creates a new template service. Instantiation reuses
// the same create paths as accepted AI suggestions.
func NewTemplateService(catalog *library.Catalog, suggestions *SuggestionService) *TemplateService {
	return &TemplateService{catalog: catalog, suggestions: suggestions}
}

// ListTemplates returns the templates, optionally limited to one category
func (s *TemplateService) ListTemplates(category string) ([]ports.LoopTemplate, error) {
	if category != "" && !library.IsCategory(category) {
		return nil, entities.ValidationError("category", fmt.Sprintf("must be one of %v", library.Categories))
	}
	return s.catalog.List(category), nil
}

// InstantiateTemplate creates a loop and its tasks from a template
func (s *TemplateService) InstantiateTemplate(ctx context.Context, userID uuid.UUID, templateID string) (*ports.LoopDetail, error) {
	tpl, ok := s.catalog.Get(templateID)
	if !ok {
		return nil, fmt.Errorf("template %w", entities.ErrNotFound)
	}

	return s.suggestions.AcceptLoop(ctx, userID, ports.LoopSkeleton{
		Name:        tpl.Name,
		Description: tpl.Description,
		Color:       tpl.Color,
		ResetRule:   tpl.ResetRule,
		Tasks:       tpl.Tasks,
	})
}
