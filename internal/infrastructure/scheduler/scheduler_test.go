package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/logger"
)

type fakeLoops struct {
	mu       sync.Mutex
	purgeErr error
	purged   int
	relooped []entities.ResetRule
}

func (f *fakeLoops) PurgeExpired(context.Context, time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged++
	return 1, f.purgeErr
}

func (f *fakeLoops) ReloopByRule(_ context.Context, rule entities.ResetRule) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relooped = append(f.relooped, rule)
	return 2, nil
}

type fakeTokens struct{ calls int }

func (f *fakeTokens) CleanupExpiredTokens(context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

type recordingObserver struct {
	runs map[string]int
	errs int
}

func (r *recordingObserver) ObserveJob(job string, err error) {
	if r.runs == nil {
		r.runs = make(map[string]int)
	}
	r.runs[job]++
	if err != nil {
		r.errs++
	}
}

func baseConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:    true,
		Timezone:   "UTC",
		PurgeSpec:  "@hourly",
		DailySpec:  "0 0 * * *",
		WeeklySpec: "0 0 * * 1",
	}
}

func TestJobsRegisteredByConfig(t *testing.T) {
	loops := &fakeLoops{}

	s, err := New(baseConfig(), loops, &fakeTokens{}, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, want := s.Jobs(), []string{JobCleanTokens, JobPurgeExpired}; !reflect.DeepEqual(got, want) {
		t.Errorf("jobs = %v, want %v", got, want)
	}

	cfg := baseConfig()
	cfg.AutoReloop = true
	s, err = New(cfg, loops, nil, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, want := s.Jobs(), []string{JobPurgeExpired, JobReloopDaily, JobReloopWeekly}; !reflect.DeepEqual(got, want) {
		t.Errorf("jobs = %v, want %v", got, want)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.PurgeSpec = "every now and then"
	if _, err := New(cfg, &fakeLoops{}, nil, nil, logger.NewNop()); err == nil {
		t.Error("expected error for bad spec")
	}

	cfg = baseConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := New(cfg, &fakeLoops{}, nil, nil, logger.NewNop()); err == nil {
		t.Error("expected error for bad timezone")
	}
}

func TestRunDispatchesAndObserves(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoReloop = true
	loops := &fakeLoops{}
	tokens := &fakeTokens{}
	obs := &recordingObserver{}

	s, err := New(cfg, loops, tokens, obs, logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, name := range []string{JobPurgeExpired, JobCleanTokens, JobReloopDaily, JobReloopWeekly} {
		if err := s.Run(ctx, name); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}

	if loops.purged != 1 || tokens.calls != 1 {
		t.Errorf("purged = %d, token cleanups = %d", loops.purged, tokens.calls)
	}
	if want := []entities.ResetRule{entities.ResetRuleDaily, entities.ResetRuleWeekly}; !reflect.DeepEqual(loops.relooped, want) {
		t.Errorf("relooped = %v, want %v", loops.relooped, want)
	}
	if len(obs.runs) != 4 || obs.errs != 0 {
		t.Errorf("observer = %+v", obs)
	}

	if err := s.Run(ctx, "nope"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestRunLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	loops := &fakeLoops{purgeErr: errors.New("database is locked")}
	obs := &recordingObserver{}

	s, err := New(baseConfig(), loops, nil, obs, logger.FromZap(zap.New(core)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Run(context.Background(), JobPurgeExpired); err == nil {
		t.Fatal("expected job error")
	}

	if obs.errs != 1 {
		t.Errorf("observer errors = %d, want 1", obs.errs)
	}
	failed := logs.FilterMessage("Scheduled job failed").All()
	if len(failed) != 1 {
		t.Fatalf("failure logs = %d, want 1", len(failed))
	}
	if got := failed[0].ContextMap()["job"]; got != JobPurgeExpired {
		t.Errorf("job field = %v", got)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(baseConfig(), &fakeLoops{}, nil, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
}
