package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

// ContextUserKey is where the auth middleware stores the *entities.User
const ContextUserKey = "user"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Registration data"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken godoc
// @Summary Rotate a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RefreshRequest true "Refresh token"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req ports.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, response)
}

// Logout revokes every refresh token of the caller
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	user := getUserFromContext(c)

	if err := h.authService.Logout(c.Request().Context(), user.ID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} entities.User
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, getUserFromContext(c))
}

// getUserFromContext returns the user set by the auth middleware. Routes
// behind that middleware always have one.
func getUserFromContext(c echo.Context) *entities.User {
	user, _ := c.Get(ContextUserKey).(*entities.User)
	if user == nil {
		return &entities.User{ID: uuid.Nil}
	}
	return user
}

// parseID reads a uuid path parameter. Malformed ids are reported as
// missing resources so they are indistinguishable from unknown ones.
func parseID(c echo.Context, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrConflict), errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrSuggestionsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError converts err into an echo.HTTPError. Unexpected errors are
// logged and answered with an opaque message.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).Errorw("Request failed", "path", c.Path(), "method", c.Request().Method)
		return echo.NewHTTPError(code, "Internal server error").SetInternal(err)
	}
	if code == http.StatusUnauthorized {
		return echo.NewHTTPError(code, publicAuthMessage(err))
	}
	return echo.NewHTTPError(code, err.Error())
}

// publicAuthMessage keeps token parsing details out of responses
func publicAuthMessage(err error) string {
	if errors.Is(err, entities.ErrInvalidCredentials) {
		return "Invalid credentials"
	}
	return "Unauthenticated"
}
