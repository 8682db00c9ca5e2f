package store

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/amirbrooks/agenda/internal/kv"
	"github.com/amirbrooks/agenda/internal/logging"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid")
	ErrInvalidFormat = errors.New("invalid format")
	ErrConflict      = errors.New("conflict")
	ErrNotPersisted  = errors.New("not persisted")
)

// Fixed storage keys, shared with the browser version of the planner.
const (
	KeyTasks = "agenda.tasks"
	KeyNotes = "agenda.notes"
	KeyTheme = "agenda.theme"
)

const (
	DefaultPruneDays = 30
	ThemeLight       = "light"
	ThemeDark        = "dark"
)

// TaskStore maps a date-key to the ordered tasks of that day.
type TaskStore map[string][]Task

// NoteStore maps a date-key to the ordered notes of that day.
type NoteStore map[string][]Note

type Options struct {
	Logger *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Location decides what "today" is. Defaults to time.Local.
	Location  *time.Location
	PruneDays int
	// Theme is returned until a theme has been stored.
	Theme string
}

// Store persists tasks and notes as two whole JSON blobs. Every operation is
// a read-modify-write of the full blob; there is one execution context and
// the last writer wins.
type Store struct {
	kv        kv.Backend
	log       *log.Logger
	now       func() time.Time
	loc       *time.Location
	pruneDays int
	theme     string
	degraded  bool
	active    string
	writeErr  error
	writeKey  string
}

func New(backend kv.Backend, opts Options) *Store {
	s := &Store{
		kv:        backend,
		log:       opts.Logger,
		now:       opts.Now,
		loc:       opts.Location,
		pruneDays: opts.PruneDays,
		theme:     normalizeTheme(opts.Theme),
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.pruneDays <= 0 {
		s.pruneDays = DefaultPruneDays
	}
	if s.kv == nil {
		s.useFallback(errors.New("no backend configured"))
	}
	return s
}

// Open opens the configured backend. When it cannot be opened the store
// keeps working in memory and reports itself as degraded.
func Open(kvOpts kv.Options, opts Options) *Store {
	backend, err := kv.Open(kvOpts)
	if err != nil {
		s := New(kv.NewMemory(0), opts)
		s.degraded = true
		s.log.Warn("storage unavailable, changes will not be saved", "backend", kvOpts.Kind, "err", err)
		return s
	}
	return New(backend, opts)
}

func (s *Store) useFallback(cause error) {
	s.kv = kv.NewMemory(0)
	s.degraded = true
	s.log.Warn("storage unavailable, changes will not be saved", "err", cause)
}

// Degraded reports whether the store runs on the in-memory fallback.
func (s *Store) Degraded() bool { return s.degraded }

// LastWriteError returns the last dropped write whose key has not been
// written successfully since, or nil.
func (s *Store) LastWriteError() error { return s.writeErr }

func (s *Store) Close() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

// Today is the date-key of the current day in the store location.
func (s *Store) Today() string {
	return s.now().In(s.loc).Format(DateLayout)
}

// Tasks returns a copy of the bucket for date.
func (s *Store) Tasks(date string) []Task {
	all := s.readTasks()
	return append([]Task{}, all[date]...)
}

// SaveTasks overwrites the task bucket for date.
func (s *Store) SaveTasks(date string, tasks []Task) error {
	if err := validateDate(date); err != nil {
		return err
	}
	all := s.readTasks()
	all[date] = append([]Task{}, tasks...)
	return s.persistTasks(all, date)
}

// Notes returns a copy of the bucket for date.
func (s *Store) Notes(date string) []Note {
	all := s.readNotes()
	return append([]Note{}, all[date]...)
}

// SaveNotes overwrites the note bucket for date.
func (s *Store) SaveNotes(date string, notes []Note) error {
	if err := validateDate(date); err != nil {
		return err
	}
	all := s.readNotes()
	all[date] = append([]Note{}, notes...)
	return s.persistNotes(all, date)
}

// TaskDates lists the dates that have a task bucket, oldest first.
func (s *Store) TaskDates() []string {
	return sortedKeys(s.readTasks())
}

// NoteDates lists the dates that have a note bucket, oldest first.
func (s *Store) NoteDates() []string {
	return sortedKeys(s.readNotes())
}

func (s *Store) Theme() string {
	stored := readJSON(s, KeyTheme, "")
	switch t := strings.ToLower(strings.TrimSpace(stored)); t {
	case ThemeLight, ThemeDark:
		return t
	default:
		return s.theme
	}
}

func (s *Store) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalid, theme)
	}
	return s.writeBlob(KeyTheme, theme)
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeDark
	if s.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, s.SetTheme(next)
}

// Prune removes task and note buckets dated before cutoff and returns how
// many buckets were dropped.
func (s *Store) Prune(cutoff string) (int, error) {
	if err := validateDate(cutoff); err != nil {
		return 0, err
	}
	tasks := s.readTasks()
	notes := s.readNotes()
	removed := pruneBuckets(tasks, cutoff, "") + pruneBuckets(notes, cutoff, "")
	if removed == 0 {
		return 0, nil
	}
	if err := s.writeBlob(KeyTasks, tasks); err != nil {
		return 0, err
	}
	if err := s.writeBlob(KeyNotes, notes); err != nil {
		return 0, err
	}
	s.log.Info("pruned old buckets", "before", cutoff, "removed", removed)
	return removed, nil
}

// PruneCutoff is the oldest date kept when storage runs out of room.
func (s *Store) PruneCutoff() string {
	return AddDays(s.Today(), -s.pruneDays)
}

func (s *Store) readTasks() TaskStore {
	all := readJSON(s, KeyTasks, TaskStore{})
	if all == nil {
		all = TaskStore{}
	}
	return all
}

func (s *Store) readNotes() NoteStore {
	raw, ok := s.readRaw(KeyNotes)
	if !ok {
		return NoteStore{}
	}
	if raw[0] != '[' {
		all := decodeJSON(s, KeyNotes, raw, NoteStore{})
		if all == nil {
			all = NoteStore{}
		}
		return all
	}
	// Older versions kept a single array of notes; file it under the active day.
	var legacy []Note
	if err := json.Unmarshal(raw, &legacy); err != nil {
		s.log.Warn("stored data is corrupt, using defaults", "key", KeyNotes, "err", err)
		return NoteStore{}
	}
	if legacy == nil {
		legacy = []Note{}
	}
	date := s.activeDate()
	migrated := NoteStore{date: legacy}
	if err := s.writeBlob(KeyNotes, migrated); err == nil {
		s.log.Info("migrated legacy notes", "date", date, "count", len(legacy))
	}
	return migrated
}

func (s *Store) readRaw(key string) ([]byte, bool) {
	raw, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("could not read storage", "key", key, "err", err)
		}
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	return raw, len(raw) > 0
}

// readJSON decodes the blob at key, returning fallback when it is missing,
// unreadable or corrupt.
func readJSON[T any](s *Store, key string, fallback T) T {
	raw, ok := s.readRaw(key)
	if !ok {
		return fallback
	}
	return decodeJSON(s, key, raw, fallback)
}

func decodeJSON[T any](s *Store, key string, raw []byte, fallback T) T {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Warn("stored data is corrupt, using defaults", "key", key, "err", err)
		return fallback
	}
	return out
}

func (s *Store) persistTasks(all TaskStore, keep string) error {
	return persistBuckets(s, KeyTasks, all, keep)
}

func (s *Store) persistNotes(all NoteStore, keep string) error {
	return persistBuckets(s, KeyNotes, all, keep)
}

// persistBuckets writes a date-keyed blob. When the backend is out of room it
// prunes buckets older than the prune window (never keep) and retries once.
func persistBuckets[T any](s *Store, key string, all map[string][]T, keep string) error {
	for date, list := range all {
		if list == nil {
			all[date] = []T{}
		}
	}
	b, err := json.Marshal(all)
	if err != nil {
		return err
	}
	err = s.kv.Set(key, b)
	if err == nil {
		s.saved(key)
		return nil
	}
	if !errors.Is(err, kv.ErrQuotaExceeded) {
		return s.dropped(key, err)
	}
	cutoff := s.PruneCutoff()
	removed := pruneBuckets(all, cutoff, keep)
	removed += s.pruneSibling(key, cutoff)
	s.log.Warn("storage full, pruned old buckets", "key", key, "before", cutoff, "removed", removed)
	return s.writeBlob(key, all)
}

func (s *Store) pruneSibling(key, cutoff string) int {
	switch key {
	case KeyTasks:
		notes := s.readNotes()
		if n := pruneBuckets(notes, cutoff, ""); n > 0 && s.writeBlob(KeyNotes, notes) == nil {
			return n
		}
	case KeyNotes:
		tasks := s.readTasks()
		if n := pruneBuckets(tasks, cutoff, ""); n > 0 && s.writeBlob(KeyTasks, tasks) == nil {
			return n
		}
	}
	return 0
}

func (s *Store) writeBlob(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.Set(key, b); err != nil {
		return s.dropped(key, err)
	}
	s.saved(key)
	return nil
}

func (s *Store) dropped(key string, err error) error {
	s.writeErr = fmt.Errorf("%w: %s: %w", ErrNotPersisted, key, err)
	s.writeKey = key
	s.log.Warn("write dropped", "key", key, "err", err)
	return s.writeErr
}

// saved clears a dropped-write error once key has been written again.
func (s *Store) saved(key string) {
	if s.writeKey == key {
		s.writeErr = nil
		s.writeKey = ""
	}
}

func pruneBuckets[T any](all map[string][]T, cutoff, keep string) int {
	removed := 0
	for date := range all {
		if date == keep {
			continue
		}
		if date < cutoff {
			delete(all, date)
			removed++
		}
	}
	return removed
}

func sortedKeys[T any](all map[string][]T) []string {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) activeDate() string {
	if s.active != "" {
		return s.active
	}
	return s.Today()
}

// stamp returns the current time at millisecond precision, strictly after prev.
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if !now.After(prev) {
		now = prev.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return now
}

func (s *Store) newID(prefix string) string {
	t := ulid.Timestamp(s.now())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%s%d", prefix, s.now().UnixNano())
	}
	return prefix + strings.ToUpper(id.String())
}

func normalizeTheme(theme string) string {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeLight
	}
}
