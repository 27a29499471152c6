package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// SuggestionHandler exposes the AI suggestion endpoints. Nothing is stored
// until one of the accept endpoints is called.
type SuggestionHandler struct {
	suggestionService *services.SuggestionService
	logger            *logger.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionService *services.SuggestionService, logger *logger.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestionService: suggestionService,
		logger:            logger,
	}
}

// GenerateLoop godoc
// @Summary Suggest a loop from a description
// @Tags ai
// @Accept json
// @Produce json
// @Param request body ports.GenerateLoopRequest true "Prompt"
// @Success 200 {object} ports.LoopSkeleton
// @Failure 503 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /ai/generate-loop [post]
func (h *SuggestionHandler) GenerateLoop(c echo.Context) error {
	user := getUserFromContext(c)

	var req ports.GenerateLoopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	skeleton, err := h.suggestionService.GenerateLoop(c.Request().Context(), user.ID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, skeleton)
}

// AcceptLoop godoc
// @Summary Create a loop from a suggestion
// @Tags ai
// @Accept json
// @Produce json
// @Param request body ports.LoopSkeleton true "Suggested loop"
// @Success 201 {object} ports.LoopDetail
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /ai/accept-loop [post]
func (h *SuggestionHandler) AcceptLoop(c echo.Context) error {
	user := getUserFromContext(c)

	var req ports.LoopSkeleton
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	detail, err := h.suggestionService.AcceptLoop(c.Request().Context(), user.ID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, detail)
}

// SuggestTasks godoc
// @Summary Suggest more tasks for a loop
// @Tags ai
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {array} ports.SuggestedTask
// @Security BearerAuth
// @Router /ai/loops/{id}/suggest-tasks [post]
func (h *SuggestionHandler) SuggestTasks(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	tasks, err := h.suggestionService.SuggestTasks(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// Optimize godoc
// @Summary Advice for a loop
// @Tags ai
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} ports.Optimization
// @Security BearerAuth
// @Router /ai/loops/{id}/optimize [post]
func (h *SuggestionHandler) Optimize(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	opt, err := h.suggestionService.Optimize(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, opt)
}

// AcceptTasks godoc
// @Summary Add suggested tasks to a loop
// @Tags ai
// @Accept json
// @Produce json
// @Param id path string true "Loop ID"
// @Param request body ports.AcceptTasksRequest true "Tasks"
// @Success 201 {array} entities.Task
// @Security BearerAuth
// @Router /ai/loops/{id}/accept-tasks [post]
func (h *SuggestionHandler) AcceptTasks(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req ports.AcceptTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tasks, err := h.suggestionService.AcceptTasks(c.Request().Context(), user.ID, loopID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, tasks)
}
