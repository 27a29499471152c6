package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/adapters/repository"
	"github.com/doloop/core/internal/application/library"
	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/ports"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e entities.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []entities.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entities.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSuggester struct {
	skeleton *ports.LoopSkeleton
	tasks    []ports.SuggestedTask
	opt      *ports.Optimization
	err      error
	snapshot ports.LoopSnapshot
}

func (f *fakeSuggester) GenerateLoop(context.Context, ports.GenerateLoopRequest) (*ports.LoopSkeleton, error) {
	return f.skeleton, f.err
}

func (f *fakeSuggester) SuggestTasks(_ context.Context, s ports.LoopSnapshot) ([]ports.SuggestedTask, error) {
	f.snapshot = s
	return f.tasks, f.err
}

func (f *fakeSuggester) Optimize(_ context.Context, s ports.LoopSnapshot) (*ports.Optimization, error) {
	f.snapshot = s
	return f.opt, f.err
}

type testEnv struct {
	clock       *time.Time
	users       ports.UserRepository
	loops       *LoopService
	tasks       *TaskService
	auth        *AuthService
	suggestions *SuggestionService
	templates   *TemplateService
	suggester   *fakeSuggester
	events      *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	validate := NewValidator()
	events := &recordingPublisher{}
	clock := testNow
	now := func() time.Time { return clock }

	userRepo := repository.NewUserRepository(db)
	loopRepo := repository.NewLoopRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	loops := NewLoopService(loopRepo, taskRepo, events, validate, log)
	loops.now = now
	tasks := NewTaskService(taskRepo, userRepo, loops.Guard(), events, validate, log)
	tasks.now = now

	auth := NewAuthService(userRepo, repository.NewAuthRepository(db), config.JWTConfig{
		Secret:           "test-secret-0123456789",
		ExpiresIn:        7 * 24 * time.Hour,
		RefreshExpiresIn: 30 * 24 * time.Hour,
		Issuer:           "doloop-test",
	}, validate, log)

	suggester := &fakeSuggester{}
	suggestions := NewSuggestionService(suggester, loops, tasks, log)

	catalog, err := library.Builtin()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	env := &testEnv{
		clock:       &clock,
		users:       userRepo,
		loops:       loops,
		tasks:       tasks,
		auth:        auth,
		suggestions: suggestions,
		templates:   NewTemplateService(catalog, suggestions),
		suggester:   suggester,
		events:      events,
	}
	return env
}

// advance moves the shared clock forward
func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func (e *testEnv) user(t *testing.T, email string) *entities.User {
	t.Helper()
	u := &entities.User{ID: uuid.New(), Email: email, Name: "Test", PasswordHash: "x", CreatedAt: testNow, UpdatedAt: testNow}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) loop(t *testing.T, owner uuid.UUID, name string, rule entities.ResetRule) *entities.Loop {
	t.Helper()
	loop, err := e.loops.CreateLoop(context.Background(), owner, ports.CreateLoopRequest{Name: name, Color: "#FFC93A", ResetRule: rule})
	if err != nil {
		t.Fatalf("create loop: %v", err)
	}
	return loop
}

func (e *testEnv) task(t *testing.T, owner, loopID uuid.UUID, desc string, typ entities.TaskType) *entities.Task {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), owner, loopID, ports.CreateTaskRequest{Description: desc, Type: typ})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
