package server

import (
	"fmt"

	"github.com/doloop/core/internal/adapters/ai"
	"github.com/doloop/core/internal/adapters/realtime"
	"github.com/doloop/core/internal/adapters/repository"
	"github.com/doloop/core/internal/application/library"
	"github.com/doloop/core/internal/application/services"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/infrastructure/metrics"
	"github.com/doloop/core/internal/ports"
)

// Dependencies is the wired application graph shared by the HTTP server,
// the scheduler and the CLI commands.
type Dependencies struct {
	DB          *database.DB
	AuthRepo    ports.AuthRepository
	Auth        *services.AuthService
	Loops       *services.LoopService
	Tasks       *services.TaskService
	Suggestions *services.SuggestionService
	Templates   *services.TemplateService
	Hub         *realtime.Hub
	Metrics     *metrics.Metrics
}

// Wire builds repositories and services over db. Lifecycle events fan out
// to the websocket hub and the metrics recorder.
func Wire(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Dependencies, error) {
	return WireWithSuggester(cfg, db, appLogger, ai.New(cfg.AI))
}

// WireWithSuggester is Wire with an explicit suggestion backend.
func WireWithSuggester(cfg *config.Config, db *database.DB, appLogger *logger.Logger, suggester ports.Suggester) (*Dependencies, error) {
	catalog, err := library.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load template library: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewAuthRepository(db)
	loopRepo := repository.NewLoopRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	hub := realtime.NewHub(appLogger)
	m := metrics.New()
	publisher := services.NewMultiPublisher(hub, m)
	validate := services.NewValidator()

	// Initialize services
	authService := services.NewAuthService(userRepo, authRepo, cfg.JWT, validate, appLogger)
	loopService := services.NewLoopService(loopRepo, taskRepo, publisher, validate, appLogger)
	taskService := services.NewTaskService(taskRepo, userRepo, loopService.Guard(), publisher, validate, appLogger)
	suggestionService := services.NewSuggestionService(suggester, loopService, taskService, appLogger)
	templateService := services.NewTemplateService(catalog, suggestionService)

	return &Dependencies{
		DB:          db,
		AuthRepo:    authRepo,
		Auth:        authService,
		Loops:       loopService,
		Tasks:       taskService,
		Suggestions: suggestionService,
		Templates:   templateService,
		Hub:         hub,
		Metrics:     m,
	}, nil
}
