package app

import (
	"testing"
	"time"

	"github.com/amirbrooks/agenda/internal/kv"
	"github.com/amirbrooks/agenda/internal/store"
)

func newPlanner(t *testing.T) *Planner {
	t.Helper()
	st := store.New(kv.NewMemory(0), store.Options{
		Now:      func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	})
	p, err := New(st, "")
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	return p
}

func TestNavigationActivatesDays(t *testing.T) {
	p := newPlanner(t)
	if p.State.Date != "2024-01-02" || p.State.Filter != store.FilterAll {
		t.Fatalf("unexpected initial state: %#v", p.State)
	}
	if err := p.Prev(); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if _, err := p.Store.AddTask(p.State.Date, store.AddTaskInput{Text: "carry me"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	// An empty day picks up the previous day's open tasks on every visit.
	if got := p.View().Tasks; len(got) != 1 || got[0].CarriedFrom != "2024-01-01" {
		t.Fatalf("expected carried task on 2024-01-02, got %#v", got)
	}
	if err := p.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if p.State.Date != "2024-01-03" {
		t.Fatalf("expected 2024-01-03, got %s", p.State.Date)
	}
	if got := p.View().Tasks; len(got) != 1 || got[0].CarriedFrom != "2024-01-02" {
		t.Fatalf("expected task carried again, got %#v", got)
	}
	if err := p.Today(); err != nil || p.State.Date != "2024-01-02" {
		t.Fatalf("today: %s (%v)", p.State.Date, err)
	}
}

func TestGotoCarriesAndRejectsBadDates(t *testing.T) {
	p := newPlanner(t)
	if _, err := p.Store.AddTask("2024-02-01", store.AddTaskInput{Text: "open"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Goto("2024-02-02"); err != nil {
		t.Fatalf("goto: %v", err)
	}
	view := p.View()
	if len(view.Tasks) != 1 || view.Tasks[0].CarriedFrom != "2024-02-01" {
		t.Fatalf("expected carried task, got %#v", view.Tasks)
	}
	if err := p.Goto("02/03/2024"); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if p.State.Date != "2024-02-02" {
		t.Fatalf("bad goto changed state to %s", p.State.Date)
	}
}

func TestFilterQueryAndToggle(t *testing.T) {
	p := newPlanner(t)
	task, _ := p.Store.AddTask(p.State.Date, store.AddTaskInput{Text: "write"})
	_, _ = p.Store.AddTask(p.State.Date, store.AddTaskInput{Text: "read"})
	_, _ = p.Store.AddNote(p.State.Date, store.AddNoteInput{Title: "Shopping", Body: "apples"})
	_, _ = p.Store.AddNote(p.State.Date, store.AddNoteInput{Title: "Work"})

	if _, err := p.Toggle(task.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if f := p.CycleFilter(); f != store.FilterActive {
		t.Fatalf("expected active, got %s", f)
	}
	if got := p.View().Tasks; len(got) != 1 || got[0].Text != "read" {
		t.Fatalf("unexpected active tasks: %#v", got)
	}
	p.SetFilter(store.FilterCompleted)
	if got := p.View().Tasks; len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("unexpected completed tasks: %#v", got)
	}
	if f := p.CycleFilter(); f != store.FilterAll {
		t.Fatalf("expected all, got %s", f)
	}
	p.SetQuery("  APPLE ")
	if got := p.View().Notes; len(got) != 1 || got[0].Title != "Shopping" {
		t.Fatalf("unexpected search result: %#v", got)
	}
	if _, err := p.Toggle(task.ID); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if got := p.View().Tasks; got[0].Completed {
		t.Fatalf("expected task reopened")
	}
}

func TestToggleTheme(t *testing.T) {
	p := newPlanner(t)
	theme, err := p.ToggleTheme()
	if err != nil || theme != store.ThemeDark {
		t.Fatalf("expected dark, got %s (%v)", theme, err)
	}
	if p.View().Theme != store.ThemeDark {
		t.Fatalf("view does not carry theme")
	}
}
