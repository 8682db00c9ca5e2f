package store

import (
	"testing"
)

func TestActivateCarriesIncompleteTasks(t *testing.T) {
	s := newTestStore(t, nil)
	keep, _ := s.AddTask("2024-01-01", AddTaskInput{Text: "carry me", Priority: "high"})
	done, _ := s.AddTask("2024-01-01", AddTaskInput{Text: "finished"})
	if _, err := s.SetCompleted("2024-01-01", done.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}

	carried, err := s.ActivateDate("2024-01-02")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(carried) != 1 {
		t.Fatalf("expected 1 carried task, got %#v", carried)
	}
	got := s.Tasks("2024-01-02")
	if len(got) != 1 {
		t.Fatalf("expected 1 task on new day, got %#v", got)
	}
	c := got[0]
	if c.ID != keep.ID || c.Text != keep.Text || c.Priority != PriorityHigh || c.Completed {
		t.Fatalf("carried task does not match source: %#v", c)
	}
	if c.CarriedFrom != "2024-01-01" {
		t.Fatalf("expected carriedFrom 2024-01-01, got %q", c.CarriedFrom)
	}
	if !c.UpdatedAt.After(keep.UpdatedAt) {
		t.Fatalf("expected fresh timestamp, got %v <= %v", c.UpdatedAt, keep.UpdatedAt)
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	s := newTestStore(t, nil)
	_, _ = s.AddTask("2024-01-01", AddTaskInput{Text: "a"})
	_, _ = s.AddTask("2024-01-01", AddTaskInput{Text: "b"})
	if _, err := s.ActivateDate("2024-01-02"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	again, err := s.ActivateDate("2024-01-02")
	if err != nil {
		t.Fatalf("activate again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new carries, got %#v", again)
	}
	if got := s.Tasks("2024-01-02"); len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
}

func TestActivateSkipsNonEmptyDay(t *testing.T) {
	s := newTestStore(t, nil)
	_, _ = s.AddTask("2024-01-01", AddTaskInput{Text: "yesterday"})
	_, _ = s.AddTask("2024-01-02", AddTaskInput{Text: "already here"})
	carried, err := s.ActivateDate("2024-01-02")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(carried) != 0 {
		t.Fatalf("expected no carry into a non-empty day, got %#v", carried)
	}
}

func TestActivateRejectsBadDate(t *testing.T) {
	s := newTestStore(t, nil)
	if _, err := s.ActivateDate("tomorrow"); err == nil {
		t.Fatalf("expected error for non date-key")
	}
}

func TestCompletingCarriedTaskLeavesSourceDay(t *testing.T) {
	s := newTestStore(t, nil)
	task, _ := s.AddTask("2024-01-01", AddTaskInput{Text: "x"})
	if _, err := s.ActivateDate("2024-01-02"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	carried := s.Tasks("2024-01-02")
	if len(carried) != 1 || carried[0].CarriedFrom != "2024-01-01" {
		t.Fatalf("expected carried task, got %#v", carried)
	}
	if _, err := s.SetCompleted("2024-01-02", task.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	source := s.Tasks("2024-01-01")
	if len(source) != 1 || source[0].Completed || source[0].ID != task.ID {
		t.Fatalf("expected source day untouched, got %#v", source)
	}
	if !s.Tasks("2024-01-02")[0].Completed {
		t.Fatalf("expected carried copy to be completed")
	}
}

func TestCleanupStopsAtFirstGap(t *testing.T) {
	s := newTestStore(t, nil)
	task := Task{ID: "t1", Text: "x"}
	other := Task{ID: "t2", Text: "y"}
	_ = s.SaveTasks("2024-01-01", []Task{task})
	_ = s.SaveTasks("2024-01-02", []Task{task, other})
	_ = s.SaveTasks("2024-01-03", []Task{task})
	_ = s.SaveTasks("2024-01-04", []Task{other})
	_ = s.SaveTasks("2024-01-05", []Task{task})

	removed := s.CleanupCarriedTasks("2024-01-01", "t1")
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if got := s.Tasks("2024-01-01"); len(got) != 1 {
		t.Fatalf("sweep touched the starting day: %#v", got)
	}
	if got := s.Tasks("2024-01-02"); len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("unexpected 01-02 bucket: %#v", got)
	}
	if got := s.Tasks("2024-01-03"); len(got) != 0 {
		t.Fatalf("unexpected 01-03 bucket: %#v", got)
	}
	if got := s.Tasks("2024-01-05"); len(got) != 1 {
		t.Fatalf("sweep crossed the gap: %#v", got)
	}
}

func TestCleanupIgnoresInvalidDate(t *testing.T) {
	s := newTestStore(t, nil)
	if n := s.CleanupCarriedTasks("nope", "t1"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
