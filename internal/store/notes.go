package store

import (
	"fmt"
	"strings"
	"time"
)

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AddNoteInput struct {
	Title string
	Body  string
}

// NotePatch holds the fields an update changes; nil fields are kept.
type NotePatch struct {
	Title *string
	Body  *string
}

// DatedNote is a search hit across days.
type DatedNote struct {
	Date string `json:"date"`
	Note Note   `json:"note"`
}

// AddNote puts a new note at the top of the bucket for date.
func (s *Store) AddNote(date string, in AddNoteInput) (*Note, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	note := Note{
		ID:        s.newID("nte_"),
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimRight(in.Body, "\n"),
		UpdatedAt: s.stamp(time.Time{}),
	}
	all := s.readNotes()
	all[date] = append([]Note{note}, all[date]...)
	_ = s.persistNotes(all, date)
	return &note, nil
}

func (s *Store) UpdateNote(date, id string, patch NotePatch) (*Note, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	all := s.readNotes()
	notes := all[date]
	idx := indexOfNote(notes, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: note %s on %s", ErrNotFound, id, date)
	}
	n := notes[idx]
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Body != nil {
		n.Body = *patch.Body
	}
	n.UpdatedAt = s.stamp(n.UpdatedAt)
	notes[idx] = n
	all[date] = notes
	_ = s.persistNotes(all, date)
	return &n, nil
}

func (s *Store) DeleteNote(date, id string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	all := s.readNotes()
	notes := all[date]
	idx := indexOfNote(notes, id)
	if idx < 0 {
		return fmt.Errorf("%w: note %s on %s", ErrNotFound, id, date)
	}
	all[date] = append(notes[:idx:idx], notes[idx+1:]...)
	_ = s.persistNotes(all, date)
	return nil
}

// FindNote resolves an id or unique id prefix within the bucket for date.
func (s *Store) FindNote(date, selector string) (*Note, error) {
	selector = strings.ToUpper(strings.TrimSpace(selector))
	if selector == "" {
		return nil, fmt.Errorf("%w: note id is required", ErrInvalid)
	}
	var hits []Note
	for _, n := range s.Notes(date) {
		id := strings.ToUpper(n.ID)
		if id == selector {
			return &n, nil
		}
		if strings.HasPrefix(id, selector) || strings.HasPrefix(strings.TrimPrefix(id, "NTE_"), selector) {
			hits = append(hits, n)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: note %s on %s", ErrNotFound, selector, date)
	case 1:
		return &hits[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d notes", ErrConflict, selector, len(hits))
	}
}

// SearchNotes keeps notes whose title or body contains query, ignoring case.
func SearchNotes(notes []Note, query string) []Note {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if q == "" || n.matches(q) {
			out = append(out, n)
		}
	}
	return out
}

// SearchAllNotes searches every day, newest day first.
func (s *Store) SearchAllNotes(query string) []DatedNote {
	all := s.readNotes()
	dates := sortedKeys(all)
	var out []DatedNote
	for i := len(dates) - 1; i >= 0; i-- {
		for _, n := range SearchNotes(all[dates[i]], query) {
			out = append(out, DatedNote{Date: dates[i], Note: n})
		}
	}
	return out
}

func (n Note) matches(lowerQuery string) bool {
	return strings.Contains(strings.ToLower(n.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(n.Body), lowerQuery)
}

func indexOfNote(notes []Note, id string) int {
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
