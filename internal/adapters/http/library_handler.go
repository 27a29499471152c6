package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/infrastructure/logger"
)

// LibraryHandler serves the built-in loop templates
type LibraryHandler struct {
	templateService *services.TemplateService
	logger          *logger.Logger
}

func NewLibraryHandler(templateService *services.TemplateService, logger *logger.Logger) *LibraryHandler {
	return &LibraryHandler{
		templateService: templateService,
		logger:          logger,
	}
}

// ListTemplates godoc
// @Summary List loop templates
// @Tags library
// @Produce json
// @Param category query string false "personal, work, shared or family"
// @Success 200 {array} ports.LoopTemplate
// @Security BearerAuth
// @Router /library [get]
func (h *LibraryHandler) ListTemplates(c echo.Context) error {
	templates, err := h.templateService.ListTemplates(c.QueryParam("category"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, templates)
}

// UseTemplate godoc
// @Summary Create a loop from a template
// @Tags library
// @Produce json
// @Param id path string true "Template ID"
// @Success 201 {object} ports.LoopDetail
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /library/{id}/use [post]
func (h *LibraryHandler) UseTemplate(c echo.Context) error {
	user := getUserFromContext(c)

	detail, err := h.templateService.InstantiateTemplate(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, detail)
}
