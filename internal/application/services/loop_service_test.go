package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

func TestCreateLoopValidation(t *testing.T) {
	env := newTestEnv(t)
	ada := env.user(t, "ada@example.com")
	ctx := context.Background()

	tests := []struct {
		name string
		req  ports.CreateLoopRequest
	}{
		{"bad reset rule", ports.CreateLoopRequest{Name: "x", Color: "#fff", ResetRule: "hourly"}},
		{"missing name", ports.CreateLoopRequest{Color: "#fff", ResetRule: entities.ResetRuleDaily}},
		{"blank name", ports.CreateLoopRequest{Name: "   ", Color: "#fff", ResetRule: entities.ResetRuleDaily}},
		{"missing color", ports.CreateLoopRequest{Name: "x", ResetRule: entities.ResetRuleDaily}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.loops.CreateLoop(ctx, ada.ID, tt.req); !errors.Is(err, entities.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}

	loop := env.loop(t, ada.ID, " Morning ", entities.ResetRuleDaily)
	if loop.Name != "Morning" || loop.IsFavorite || loop.IsDeleted() {
		t.Errorf("loop = %+v", loop)
	}
}

func TestOwnershipIsIndistinguishableFromAbsence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	bob := env.user(t, "bob@example.com")
	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)
	task := env.task(t, ada.ID, loop.ID, "stretch", entities.TaskTypeRecurring)

	checks := map[string]error{}
	_, checks["get"] = env.loops.GetLoop(ctx, bob.ID, loop.ID)
	_, checks["get unknown"] = env.loops.GetLoop(ctx, ada.ID, uuid.New())
	_, checks["update"] = env.loops.UpdateLoop(ctx, bob.ID, loop.ID, ports.UpdateLoopRequest{})
	checks["delete"] = env.loops.SoftDeleteLoop(ctx, bob.ID, loop.ID)
	_, checks["reloop"] = env.loops.Reloop(ctx, bob.ID, loop.ID)
	_, checks["favorite"] = env.loops.ToggleFavorite(ctx, bob.ID, loop.ID)
	_, checks["list tasks"] = env.tasks.ListTasks(ctx, bob.ID, loop.ID)
	_, checks["complete"] = env.tasks.CompleteTask(ctx, bob.ID, task.ID)
	_, checks["complete unknown"] = env.tasks.CompleteTask(ctx, ada.ID, uuid.New())
	checks["delete task"] = env.tasks.DeleteTask(ctx, bob.ID, task.ID)

	for name, err := range checks {
		if !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("%s: err = %v, want not found", name, err)
		}
	}
}

func TestListLoopsWithProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	bob := env.user(t, "bob@example.com")

	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)
	env.loop(t, bob.ID, "Not mine", entities.ResetRuleDaily)
	a := env.task(t, ada.ID, loop.ID, "a", entities.TaskTypeRecurring)
	env.task(t, ada.ID, loop.ID, "b", entities.TaskTypeRecurring)
	env.task(t, ada.ID, loop.ID, "c", entities.TaskTypeOneTime)

	if _, err := env.tasks.CompleteTask(ctx, ada.ID, a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	loops, err := env.loops.ListLoops(ctx, ada.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(loops) != 1 {
		t.Fatalf("loops = %d, want 1", len(loops))
	}
	got := loops[0].Progress
	if got.Progress != 33 || got.TotalTasks != 3 || got.CompletedTasks != 1 {
		t.Errorf("progress = %+v, want 33%% of 3", got)
	}

	if _, err := env.loops.ToggleFavorite(ctx, ada.ID, loop.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	favorites, _ := env.loops.ListFavoriteLoops(ctx, ada.ID)
	if len(favorites) != 1 || !favorites[0].IsFavorite {
		t.Errorf("favorites = %+v", favorites)
	}
}

func TestUpdateLoopPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)

	weekly := entities.ResetRuleWeekly
	desc := "before work"
	env.advance(time.Minute)
	updated, err := env.loops.UpdateLoop(ctx, ada.ID, loop.ID, ports.UpdateLoopRequest{ResetRule: &weekly, Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Morning" || updated.ResetRule != weekly || *updated.Description != desc {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(loop.UpdatedAt) {
		t.Error("updated_at should move forward")
	}

	bad := entities.ResetRule("yearly")
	if _, err := env.loops.UpdateLoop(ctx, ada.ID, loop.ID, ports.UpdateLoopRequest{ResetRule: &bad}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("bad rule err = %v, want validation", err)
	}
}

func TestReloopScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)

	stretch := env.task(t, ada.ID, loop.ID, "stretch", entities.TaskTypeRecurring)
	plumber := env.task(t, ada.ID, loop.ID, "call plumber", entities.TaskTypeOneTime)
	milk := env.task(t, ada.ID, loop.ID, "buy milk", entities.TaskTypeOneTime)

	for _, id := range []uuid.UUID{stretch.ID, plumber.ID} {
		if _, err := env.tasks.CompleteTask(ctx, ada.ID, id); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	result, err := env.loops.Reloop(ctx, ada.ID, loop.ID)
	if err != nil {
		t.Fatalf("reloop: %v", err)
	}
	if result.Reset != 1 || result.Archived != 1 {
		t.Errorf("result = %+v, want 1 reset 1 archived", result)
	}

	tasks, _ := env.tasks.ListTasks(ctx, ada.ID, loop.ID)
	want := map[uuid.UUID]entities.TaskStatus{
		stretch.ID: entities.TaskStatusPending,
		plumber.ID: entities.TaskStatusArchived,
		milk.ID:    entities.TaskStatusPending,
	}
	for _, task := range tasks {
		if task.Status != want[task.ID] {
			t.Errorf("%s: status = %s, want %s", task.Description, task.Status, want[task.ID])
		}
		if (task.Status == entities.TaskStatusCompleted) != (task.CompletedAt != nil) {
			t.Errorf("%s: completed_at invariant broken", task.Description)
		}
	}

	got, _ := env.loops.GetLoop(ctx, ada.ID, loop.ID)
	if got.TotalTasks != 2 || got.Progress.Progress != 0 {
		t.Errorf("progress after reloop = %+v", got.Progress)
	}

	// A second reloop changes nothing observable.
	if _, err := env.loops.Reloop(ctx, ada.ID, loop.ID); err != nil {
		t.Fatalf("second reloop: %v", err)
	}
	again, _ := env.tasks.ListTasks(ctx, ada.ID, loop.ID)
	for i := range again {
		if again[i].Status != tasks[i].Status {
			t.Errorf("%s changed on second reloop", again[i].Description)
		}
	}
}

func TestSoftDeleteRestorePurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)
	task := env.task(t, ada.ID, loop.ID, "stretch", entities.TaskTypeRecurring)

	// Restore and purge only apply to deleted loops.
	if _, err := env.loops.RestoreLoop(ctx, ada.ID, loop.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("restore active err = %v, want not found", err)
	}
	if err := env.loops.PurgeLoop(ctx, ada.ID, loop.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("purge active err = %v, want not found", err)
	}

	if err := env.loops.SoftDeleteLoop(ctx, ada.ID, loop.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := env.loops.GetLoop(ctx, ada.ID, loop.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("get deleted err = %v, want not found", err)
	}
	if active, _ := env.loops.ListLoops(ctx, ada.ID); len(active) != 0 {
		t.Errorf("active loops = %d, want 0", len(active))
	}

	env.advance(10 * 24 * time.Hour)
	deleted, err := env.loops.ListDeletedLoops(ctx, ada.ID)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(deleted) != 1 || deleted[0].DaysRemaining != 20 {
		t.Fatalf("deleted = %+v, want one loop with 20 days", deleted)
	}

	restored, err := env.loops.RestoreLoop(ctx, ada.ID, loop.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.IsDeleted() {
		t.Error("restored loop still deleted")
	}
	tasks, _ := env.tasks.ListTasks(ctx, ada.ID, loop.ID)
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Error("tasks should survive soft delete and restore")
	}

	if err := env.loops.SoftDeleteLoop(ctx, ada.ID, loop.ID); err != nil {
		t.Fatalf("soft delete again: %v", err)
	}
	if err := env.loops.PurgeLoop(ctx, ada.ID, loop.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted, _ := env.loops.ListDeletedLoops(ctx, ada.ID); len(deleted) != 0 {
		t.Errorf("deleted after purge = %d, want 0", len(deleted))
	}
	if _, err := env.tasks.CompleteTask(ctx, ada.ID, task.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("task after purge err = %v, want not found", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")

	old := env.loop(t, ada.ID, "Old", entities.ResetRuleDaily)
	if err := env.loops.SoftDeleteLoop(ctx, ada.ID, old.ID); err != nil {
		t.Fatalf("delete old: %v", err)
	}
	env.advance(20 * 24 * time.Hour)
	recent := env.loop(t, ada.ID, "Recent", entities.ResetRuleDaily)
	if err := env.loops.SoftDeleteLoop(ctx, ada.ID, recent.ID); err != nil {
		t.Fatalf("delete recent: %v", err)
	}
	env.loop(t, ada.ID, "Active", entities.ResetRuleDaily)

	purged, err := env.loops.PurgeExpired(ctx, testNow.Add(31*24*time.Hour))
	if err != nil {
		t.Fatalf("purge expired: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	deleted, _ := env.loops.ListDeletedLoops(ctx, ada.ID)
	if len(deleted) != 1 || deleted[0].ID != recent.ID {
		t.Errorf("remaining deleted = %+v, want recent only", deleted)
	}
	if active, _ := env.loops.ListLoops(ctx, ada.ID); len(active) != 1 {
		t.Errorf("active = %d, want 1", len(active))
	}
}

func TestReloopByRule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	bob := env.user(t, "bob@example.com")

	daily := env.loop(t, ada.ID, "Daily", entities.ResetRuleDaily)
	other := env.loop(t, bob.ID, "Bob daily", entities.ResetRuleDaily)
	weekly := env.loop(t, ada.ID, "Weekly", entities.ResetRuleWeekly)

	for _, l := range []struct {
		owner uuid.UUID
		loop  *entities.Loop
	}{{ada.ID, daily}, {bob.ID, other}, {ada.ID, weekly}} {
		task := env.task(t, l.owner, l.loop.ID, "chore", entities.TaskTypeRecurring)
		if _, err := env.tasks.CompleteTask(ctx, l.owner, task.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	n, err := env.loops.ReloopByRule(ctx, entities.ResetRuleDaily)
	if err != nil {
		t.Fatalf("reloop by rule: %v", err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}

	weeklyTasks, _ := env.tasks.ListTasks(ctx, ada.ID, weekly.ID)
	if weeklyTasks[0].Status != entities.TaskStatusCompleted {
		t.Error("weekly loop should be untouched by the daily reloop")
	}
	dailyTasks, _ := env.tasks.ListTasks(ctx, ada.ID, daily.ID)
	if dailyTasks[0].Status != entities.TaskStatusPending {
		t.Error("daily loop should be reset")
	}

	if _, err := env.loops.ReloopByRule(ctx, entities.ResetRuleManual); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("manual err = %v, want validation", err)
	}
}

func TestLifecycleEventsArePublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.user(t, "ada@example.com")
	loop := env.loop(t, ada.ID, "Morning", entities.ResetRuleDaily)
	task := env.task(t, ada.ID, loop.ID, "stretch", entities.TaskTypeRecurring)

	env.tasks.CompleteTask(ctx, ada.ID, task.ID)
	env.loops.Reloop(ctx, ada.ID, loop.ID)
	env.loops.ToggleFavorite(ctx, ada.ID, loop.ID)
	env.loops.SoftDeleteLoop(ctx, ada.ID, loop.ID)

	want := []entities.EventType{
		entities.EventLoopCreated,
		entities.EventTaskCreated,
		entities.EventTaskCompleted,
		entities.EventLoopRelooped,
		entities.EventLoopFavorited,
		entities.EventLoopDeleted,
	}
	got := env.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	for _, e := range env.events.events {
		if e.OwnerID != ada.ID || e.LoopID != loop.ID {
			t.Errorf("event %s routed to %s/%s", e.Type, e.OwnerID, e.LoopID)
		}
	}
}
