// Package app holds the planner's view state: which day is shown, the task
// filter and the note search query. Every transition that changes the day
// activates it in the store, which is where carry-over happens.
package app

import (
	"strings"

	"github.com/amirbrooks/agenda/internal/store"
)

type State struct {
	Date   string
	Filter store.Filter
	Query  string
}

// Planner ties a State to the store it reads from.
type Planner struct {
	Store *store.Store
	State State
}

// New opens the planner on today with filter.
func New(st *store.Store, filter store.Filter) (*Planner, error) {
	if filter == "" {
		filter = store.FilterAll
	}
	p := &Planner{Store: st, State: State{Filter: filter}}
	if err := p.Today(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planner) Today() error { return p.Goto(p.Store.Today()) }

func (p *Planner) Prev() error { return p.Goto(store.PrevDate(p.State.Date)) }

func (p *Planner) Next() error { return p.Goto(store.NextDate(p.State.Date)) }

// Goto activates date and makes it current. The state is left alone when
// date is not a valid date-key.
func (p *Planner) Goto(date string) error {
	if _, err := p.Store.ActivateDate(date); err != nil {
		return err
	}
	p.State.Date = date
	return nil
}

func (p *Planner) SetFilter(f store.Filter) { p.State.Filter = f }

// CycleFilter steps all -> active -> completed -> all.
func (p *Planner) CycleFilter() store.Filter {
	switch p.State.Filter {
	case store.FilterAll:
		p.State.Filter = store.FilterActive
	case store.FilterActive:
		p.State.Filter = store.FilterCompleted
	default:
		p.State.Filter = store.FilterAll
	}
	return p.State.Filter
}

func (p *Planner) SetQuery(q string) { p.State.Query = strings.TrimSpace(q) }

// View renders the current state.
func (p *Planner) View() store.DayView {
	return p.Store.View(p.State.Date, p.State.Filter, p.State.Query)
}

// Toggle flips the completion of a task on the current day.
func (p *Planner) Toggle(id string) (*store.Task, error) {
	t, err := p.Store.FindTask(p.State.Date, id)
	if err != nil {
		return nil, err
	}
	return p.Store.SetCompleted(p.State.Date, t.ID, !t.Completed)
}

func (p *Planner) ToggleTheme() (string, error) { return p.Store.ToggleTheme() }
