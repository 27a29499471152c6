package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/doloop/core/docs"
	httpHandlers "github.com/doloop/core/internal/adapters/http"
	"github.com/doloop/core/internal/adapters/realtime"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

const websocketPath = "/api/ws"

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	deps   *Dependencies
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	return nil
}

// New creates a new server instance
func New(cfg *config.Config, deps *Dependencies, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		deps:   deps,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(
		httpHandlers.NewAuthHandler(deps.Auth, appLogger),
		httpHandlers.NewLoopHandler(deps.Loops, appLogger),
		httpHandlers.NewTaskHandler(deps.Tasks, appLogger),
		httpHandlers.NewSuggestionHandler(deps.Suggestions, appLogger),
		httpHandlers.NewLibraryHandler(deps.Templates, appLogger),
	)

	return server, nil
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			l := s.logger.WithRequestID(values.RequestID)
			if user, ok := c.Get(httpHandlers.ContextUserKey).(*entities.User); ok {
				l = l.WithUserID(user.ID.String())
			}
			l.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status,
				float64(values.Latency.Nanoseconds())/1000000)
			if values.Error != nil && values.Status >= http.StatusInternalServerError {
				l.Errorw("HTTP request failed", "uri", values.URI, "error", values.Error.Error())
			}
			return nil
		},
	}))

	if s.config.Metrics.Enabled {
		s.echo.Use(s.deps.Metrics.Middleware())
	}

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.allowedOrigins(),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health" || c.Path() == "/ready"
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Timeout middleware; the websocket feed is long-lived
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == websocketPath
			},
			Timeout:      s.config.Server.RequestTimeout,
			ErrorMessage: `{"message":"request timed out"}`,
		}))
	}
}

func (s *Server) allowedOrigins() []string {
	origins := strings.Split(s.config.Security.CORSAllowedOrigins, ",")
	out := origins[:0]
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, loopHandler *httpHandlers.LoopHandler, taskHandler *httpHandlers.TaskHandler, suggestionHandler *httpHandlers.SuggestionHandler, libraryHandler *httpHandlers.LibraryHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.config.Metrics.Enabled {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	api := s.echo.Group("/api")
	auth := s.authMiddleware()

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.RefreshToken)
	authGroup.POST("/logout", authHandler.Logout, auth)
	authGroup.GET("/me", authHandler.Me, auth)

	// Loop routes
	loopGroup := api.Group("/loops", auth)
	loopGroup.GET("", loopHandler.ListLoops)
	loopGroup.POST("", loopHandler.CreateLoop)
	loopGroup.GET("/favorites", loopHandler.ListFavorites)
	loopGroup.GET("/deleted", loopHandler.ListDeleted)
	loopGroup.GET("/:id", loopHandler.GetLoop)
	loopGroup.PUT("/:id", loopHandler.UpdateLoop)
	loopGroup.DELETE("/:id", loopHandler.DeleteLoop)
	loopGroup.POST("/:id/restore", loopHandler.RestoreLoop)
	loopGroup.DELETE("/:id/permanent", loopHandler.PurgeLoop)
	loopGroup.PUT("/:id/reloop", loopHandler.Reloop)
	loopGroup.POST("/:id/toggle-favorite", loopHandler.ToggleFavorite)
	loopGroup.GET("/:id/tasks", taskHandler.ListTasks)
	loopGroup.POST("/:id/tasks", taskHandler.CreateTask)

	// Task routes
	taskGroup := api.Group("/tasks", auth)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.PUT("/:id/complete", taskHandler.CompleteTask)

	// AI suggestion routes
	aiGroup := api.Group("/ai", auth)
	aiGroup.POST("/generate-loop", suggestionHandler.GenerateLoop)
	aiGroup.POST("/accept-loop", suggestionHandler.AcceptLoop)
	aiGroup.POST("/loops/:id/suggest-tasks", suggestionHandler.SuggestTasks)
	aiGroup.POST("/loops/:id/optimize", suggestionHandler.Optimize)
	aiGroup.POST("/loops/:id/accept-tasks", suggestionHandler.AcceptTasks)

	// Template library routes
	libraryGroup := api.Group("/library", auth)
	libraryGroup.GET("", libraryHandler.ListTemplates)
	libraryGroup.POST("/:id/use", libraryHandler.UseTemplate)

	// Change feed; the token travels in the query string
	s.echo.GET(websocketPath, echo.WrapHandler(
		realtime.Handler(s.deps.Hub, s.deps.Auth.CurrentUser, s.allowedOrigins()),
	))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.deps.DB.HealthCheck(c.Request().Context()); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.deps.DB.GetConnectionInfo(),
		}
	}

	checks["suggestions"] = map[string]interface{}{
		"provider": s.config.AI.Provider,
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.deps.DB.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:         address,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Infow("Starting server", "address", address)
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and disconnects websocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	s.deps.Hub.Close()
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if errors.Is(err, entities.ErrValidation) {
			code = http.StatusBadRequest
			msg = err.Error()
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, ports.ErrorResponse{Message: msg})
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
