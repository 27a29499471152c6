package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func checkCompletedInvariant(t *testing.T, task *Task) {
	t.Helper()
	if (task.Status == TaskStatusCompleted) != (task.CompletedAt != nil) {
		t.Errorf("task %q: status = %s, completed_at = %v", task.Description, task.Status, task.CompletedAt)
	}
}

func TestTaskComplete(t *testing.T) {
	task := &Task{Description: "water plants", Type: TaskTypeRecurring, Status: TaskStatusPending}

	task.Complete(testNow)
	if task.Status != TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(testNow) {
		t.Errorf("completed_at = %v, want %v", task.CompletedAt, testNow)
	}
	checkCompletedInvariant(t, task)

	later := testNow.Add(time.Hour)
	task.Complete(later)
	if !task.CompletedAt.Equal(later) {
		t.Errorf("re-complete completed_at = %v, want %v", task.CompletedAt, later)
	}
	if !task.UpdatedAt.Equal(later) {
		t.Errorf("updated_at = %v, want %v", task.UpdatedAt, later)
	}
}

func TestTaskReloop(t *testing.T) {
	done := testNow.Add(-time.Hour)
	tests := []struct {
		name        string
		task        Task
		wantStatus  TaskStatus
		wantChanged bool
	}{
		{"recurring pending", Task{Type: TaskTypeRecurring, Status: TaskStatusPending}, TaskStatusPending, true},
		{"recurring completed", Task{Type: TaskTypeRecurring, Status: TaskStatusCompleted, CompletedAt: &done}, TaskStatusPending, true},
		{"recurring archived", Task{Type: TaskTypeRecurring, Status: TaskStatusArchived}, TaskStatusPending, true},
		{"one-time pending", Task{Type: TaskTypeOneTime, Status: TaskStatusPending}, TaskStatusPending, false},
		{"one-time completed", Task{Type: TaskTypeOneTime, Status: TaskStatusCompleted, CompletedAt: &done}, TaskStatusArchived, true},
		{"one-time archived", Task{Type: TaskTypeOneTime, Status: TaskStatusArchived}, TaskStatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			task.Description = tt.name
			changed := task.Reloop(testNow)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if task.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", task.Status, tt.wantStatus)
			}
			checkCompletedInvariant(t, &task)
		})
	}
}

func TestReloopIsIdempotent(t *testing.T) {
	done := testNow.Add(-time.Hour)
	tasks := []Task{
		{Description: "a", Type: TaskTypeRecurring, Status: TaskStatusPending},
		{Description: "b", Type: TaskTypeRecurring, Status: TaskStatusCompleted, CompletedAt: &done},
		{Description: "c", Type: TaskTypeOneTime, Status: TaskStatusCompleted, CompletedAt: &done},
		{Description: "d", Type: TaskTypeOneTime, Status: TaskStatusPending},
	}

	once := make([]Task, len(tasks))
	copy(once, tasks)
	for i := range once {
		once[i].Reloop(testNow)
	}

	twice := make([]Task, len(once))
	copy(twice, once)
	for i := range twice {
		twice[i].Reloop(testNow.Add(time.Minute))
	}

	for i := range once {
		if once[i].Status != twice[i].Status {
			t.Errorf("task %s: status after one reloop %s, after two %s", once[i].Description, once[i].Status, twice[i].Status)
		}
		if (once[i].CompletedAt == nil) != (twice[i].CompletedAt == nil) {
			t.Errorf("task %s: completed_at presence differs", once[i].Description)
		}
	}
}

func TestNewProgress(t *testing.T) {
	tests := []struct {
		total, completed, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{3, 1, 33},
		{3, 2, 66},
		{4, 4, 100},
		{7, 5, 71},
	}
	for _, tt := range tests {
		got := NewProgress(tt.total, tt.completed)
		if got.Progress != tt.want {
			t.Errorf("NewProgress(%d, %d).Progress = %d, want %d", tt.total, tt.completed, got.Progress, tt.want)
		}
		if got.TotalTasks != tt.total || got.CompletedTasks != tt.completed {
			t.Errorf("NewProgress(%d, %d) counts = %+v", tt.total, tt.completed, got)
		}
	}
}

func TestTaskCountsProgressExcludesArchived(t *testing.T) {
	counts := TaskCounts{
		TaskStatusPending:   1,
		TaskStatusCompleted: 1,
		TaskStatusArchived:  5,
	}
	got := counts.Progress()
	if got.TotalTasks != 2 {
		t.Errorf("total = %d, want 2", got.TotalTasks)
	}
	if got.Progress != 50 {
		t.Errorf("progress = %d, want 50", got.Progress)
	}
}

func TestLoopDaysRemaining(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"just deleted", 0, 30},
		{"ten days", 10 * 24 * time.Hour, 20},
		{"ten and a half days", 10*24*time.Hour + 12*time.Hour, 20},
		{"twenty nine days", 29 * 24 * time.Hour, 1},
		{"expired", 45 * 24 * time.Hour, 0},
		{"clock skew", -2 * time.Hour, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deletedAt := testNow.Add(-tt.age)
			loop := &Loop{DeletedAt: &deletedAt}
			if got := loop.DaysRemaining(testNow); got != tt.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoopSoftDeleteRestore(t *testing.T) {
	loop := &Loop{ID: uuid.New(), OwnerID: uuid.New(), Name: "Morning"}
	if loop.IsDeleted() {
		t.Fatal("new loop should not be deleted")
	}

	loop.SoftDelete(testNow)
	if !loop.IsDeleted() {
		t.Fatal("expected loop to be deleted")
	}
	if loop.PurgeEligible(testNow.Add(29 * 24 * time.Hour)) {
		t.Error("loop should not be purge eligible before 30 days")
	}
	if !loop.PurgeEligible(testNow.Add(DeletedLoopRetention)) {
		t.Error("loop should be purge eligible after 30 days")
	}

	loop.Restore(testNow.Add(time.Hour))
	if loop.IsDeleted() {
		t.Error("restored loop should not be deleted")
	}
	if loop.PurgeEligible(testNow.Add(60 * 24 * time.Hour)) {
		t.Error("active loop is never purge eligible")
	}
}

func TestLoopToggleFavorite(t *testing.T) {
	loop := &Loop{}
	if got := loop.ToggleFavorite(testNow); !got {
		t.Error("first toggle should return true")
	}
	if got := loop.ToggleFavorite(testNow); got {
		t.Error("second toggle should return false")
	}
}

func TestTagsNormalize(t *testing.T) {
	got := Tags{" home ", "", "home", "kids"}.Normalize()
	if len(got) != 2 || got[0] != "home" || got[1] != "kids" {
		t.Errorf("Normalize = %v, want [home kids]", got)
	}
	if got := Tags(nil).Normalize(); got == nil {
		t.Error("Normalize(nil) should return an empty, non-nil set")
	}
}

func TestAttachmentsScanDefaultsToEmpty(t *testing.T) {
	var a Attachments
	if err := a.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if a == nil || len(a) != 0 {
		t.Errorf("attachments = %v, want empty", a)
	}

	if err := a.Scan(`[{"name":"list","url":"https://example.com/l","type":"link"}]`); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(a) != 1 || a[0].Name != "list" {
		t.Errorf("attachments = %+v", a)
	}
}
