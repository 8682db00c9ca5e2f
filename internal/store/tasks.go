package store

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type Task struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Completed   bool      `json:"completed"`
	Priority    Priority  `json:"priority,omitempty"`
	CarriedFrom string    `json:"carriedFrom,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type AddTaskInput struct {
	Text     string
	Priority string
}

// TaskPatch holds the fields an update changes; nil fields are kept.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Priority  *Priority
}

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active", "open", "todo":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrInvalid, s)
	}
}

func ParsePriority(p string) (Priority, error) {
	p = strings.TrimSpace(strings.ToLower(p))
	switch p {
	case "low", "l":
		return PriorityLow, nil
	case "", "normal", "n", "med", "medium":
		return PriorityNormal, nil
	case "high", "h":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalid, p)
	}
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

func (t *Task) PriorityAbbrev() string {
	switch t.Priority {
	case PriorityLow:
		return "L"
	case PriorityHigh:
		return "H"
	default:
		return "N"
	}
}

func (t *Task) IDShort(n int) string {
	s := t.ID
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// AddTask appends a new task to the bucket for date.
func (s *Store) AddTask(date string, in AddTaskInput) (*Task, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalid)
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	task := Task{
		ID:        s.newID("tsk_"),
		Text:      text,
		Priority:  priority,
		UpdatedAt: s.stamp(time.Time{}),
	}
	all := s.readTasks()
	all[date] = append(all[date], task)
	_ = s.persistTasks(all, date)
	return &task, nil
}

// UpdateTask merges patch into the task with id and refreshes UpdatedAt.
func (s *Store) UpdateTask(date, id string, patch TaskPatch) (*Task, error) {
	t, _, err := s.updateTask(date, id, patch)
	return t, err
}

// updateTask applies patch and reports whether the change reached storage.
// Callers of UpdateTask only see a dropped write through LastWriteError.
func (s *Store) updateTask(date, id string, patch TaskPatch) (*Task, bool, error) {
	if err := validateDate(date); err != nil {
		return nil, false, err
	}
	if patch.Priority != nil {
		if _, err := ParsePriority(string(*patch.Priority)); err != nil {
			return nil, false, err
		}
	}
	var text string
	if patch.Text != nil {
		text = strings.TrimSpace(*patch.Text)
		if text == "" {
			return nil, false, fmt.Errorf("%w: text is required", ErrInvalid)
		}
	}
	all := s.readTasks()
	tasks := all[date]
	idx := indexOfTask(tasks, id)
	if idx < 0 {
		return nil, false, fmt.Errorf("%w: task %s on %s", ErrNotFound, id, date)
	}
	t := tasks[idx]
	if patch.Text != nil {
		t.Text = text
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		p, _ := ParsePriority(string(*patch.Priority))
		t.Priority = p
	}
	t.UpdatedAt = s.stamp(t.UpdatedAt)
	tasks[idx] = t
	all[date] = tasks
	persisted := s.persistTasks(all, date) == nil
	return &t, persisted, nil
}

// SetCompleted marks a task done or not done. Completing a task also removes
// its carried copies from the following days, unless the completion itself
// could not be saved.
func (s *Store) SetCompleted(date, id string, done bool) (*Task, error) {
	t, persisted, err := s.updateTask(date, id, TaskPatch{Completed: &done})
	if err != nil {
		return nil, err
	}
	if t.Completed && persisted {
		s.CleanupCarriedTasks(date, t.ID)
	}
	return t, nil
}

func (s *Store) DeleteTask(date, id string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	all := s.readTasks()
	tasks := all[date]
	idx := indexOfTask(tasks, id)
	if idx < 0 {
		return fmt.Errorf("%w: task %s on %s", ErrNotFound, id, date)
	}
	all[date] = append(tasks[:idx:idx], tasks[idx+1:]...)
	_ = s.persistTasks(all, date)
	return nil
}

// ClearTasks empties the bucket for date.
func (s *Store) ClearTasks(date string) error {
	return s.SaveTasks(date, []Task{})
}

// FindTask resolves an id or unique id prefix within the bucket for date.
func (s *Store) FindTask(date, selector string) (*Task, error) {
	tasks := s.Tasks(date)
	selector = strings.ToUpper(strings.TrimSpace(selector))
	if selector == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	var hits []Task
	for _, t := range tasks {
		id := strings.ToUpper(t.ID)
		if id == selector {
			return &t, nil
		}
		if strings.HasPrefix(id, selector) || strings.HasPrefix(strings.TrimPrefix(id, "TSK_"), selector) {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: task %s on %s", ErrNotFound, selector, date)
	case 1:
		return &hits[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d tasks", ErrConflict, selector, len(hits))
	}
}

// ListTasks returns the filtered bucket for date, sorted when asked.
func (s *Store) ListTasks(date string, filter Filter, sorted bool) []Task {
	out := FilterTasks(s.Tasks(date), filter)
	if sorted {
		SortTasks(out)
	}
	return out
}

func FilterTasks(tasks []Task, filter Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch filter {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// SortTasks orders by priority (high first), then oldest update first.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Priority.rank(), tasks[j].Priority.rank()
		if ri != rj {
			return ri > rj
		}
		return tasks[i].UpdatedAt.Before(tasks[j].UpdatedAt)
	})
}

func indexOfTask(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
