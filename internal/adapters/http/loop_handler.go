package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// LoopHandler handles loop lifecycle requests
type LoopHandler struct {
	loopService *services.LoopService
	logger      *logger.Logger
}

// NewLoopHandler creates a new loop handler
func NewLoopHandler(loopService *services.LoopService, logger *logger.Logger) *LoopHandler {
	return &LoopHandler{
		loopService: loopService,
		logger:      logger,
	}
}

// ListLoops godoc
// @Summary List active loops
// @Description Active loops of the caller, newest first, with progress
// @Tags loops
// @Produce json
// @Success 200 {array} ports.LoopWithProgress
// @Failure 401 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops [get]
func (h *LoopHandler) ListLoops(c echo.Context) error {
	user := getUserFromContext(c)

	loops, err := h.loopService.ListLoops(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loops)
}

// ListFavorites godoc
// @Summary List favorite loops
// @Tags loops
// @Produce json
// @Success 200 {array} ports.LoopWithProgress
// @Security BearerAuth
// @Router /loops/favorites [get]
func (h *LoopHandler) ListFavorites(c echo.Context) error {
	user := getUserFromContext(c)

	loops, err := h.loopService.ListFavoriteLoops(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loops)
}

// ListDeleted godoc
// @Summary List soft-deleted loops
// @Description Loops in the 30 day grace window with their remaining days
// @Tags loops
// @Produce json
// @Success 200 {array} ports.DeletedLoop
// @Security BearerAuth
// @Router /loops/deleted [get]
func (h *LoopHandler) ListDeleted(c echo.Context) error {
	user := getUserFromContext(c)

	loops, err := h.loopService.ListDeletedLoops(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loops)
}

// CreateLoop godoc
// @Summary Create a loop
// @Tags loops
// @Accept json
// @Produce json
// @Param request body ports.CreateLoopRequest true "Loop data"
// @Success 201 {object} entities.Loop
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops [post]
func (h *LoopHandler) CreateLoop(c echo.Context) error {
	user := getUserFromContext(c)

	var req ports.CreateLoopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	loop, err := h.loopService.CreateLoop(c.Request().Context(), user.ID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, loop)
}

// GetLoop godoc
// @Summary Get a loop
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} ports.LoopWithProgress
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id} [get]
func (h *LoopHandler) GetLoop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	loop, err := h.loopService.GetLoop(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loop)
}

// UpdateLoop godoc
// @Summary Update loop fields
// @Description Absent fields are left unchanged
// @Tags loops
// @Accept json
// @Produce json
// @Param id path string true "Loop ID"
// @Param request body ports.UpdateLoopRequest true "Fields to change"
// @Success 200 {object} entities.Loop
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id} [put]
func (h *LoopHandler) UpdateLoop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req ports.UpdateLoopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	loop, err := h.loopService.UpdateLoop(c.Request().Context(), user.ID, loopID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loop)
}

// DeleteLoop godoc
// @Summary Soft-delete a loop
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id} [delete]
func (h *LoopHandler) DeleteLoop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.loopService.SoftDeleteLoop(c.Request().Context(), user.ID, loopID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Loop moved to recently deleted"})
}

// RestoreLoop godoc
// @Summary Restore a soft-deleted loop
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} entities.Loop
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/restore [post]
func (h *LoopHandler) RestoreLoop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	loop, err := h.loopService.RestoreLoop(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, loop)
}

// PurgeLoop godoc
// @Summary Permanently delete a soft-deleted loop
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/permanent [delete]
func (h *LoopHandler) PurgeLoop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.loopService.PurgeLoop(c.Request().Context(), user.ID, loopID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Loop permanently deleted"})
}

// Reloop godoc
// @Summary Reset a loop
// @Description Recurring tasks go back to pending, completed one-time tasks are archived
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} entities.ReloopResult
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/reloop [put]
func (h *LoopHandler) Reloop(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.loopService.Reloop(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ToggleFavorite godoc
// @Summary Flip the favorite flag
// @Tags loops
// @Produce json
// @Param id path string true "Loop ID"
// @Success 200 {object} ports.FavoriteResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /loops/{id}/toggle-favorite [post]
func (h *LoopHandler) ToggleFavorite(c echo.Context) error {
	user := getUserFromContext(c)
	loopID, err := parseID(c, "id", entities.ErrLoopNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	favorite, err := h.loopService.ToggleFavorite(c.Request().Context(), user.ID, loopID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ports.FavoriteResponse{IsFavorite: favorite})
}
