package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const SnapshotVersion = "1.0"

type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge", "":
		return ImportMerge, nil
	case "replace", "overwrite":
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("%w: unknown import mode %q", ErrInvalid, s)
	}
}

// Snapshot is the export document.
type Snapshot struct {
	Tasks      TaskStore `json:"tasks"`
	Notes      NoteStore `json:"notes"`
	Theme      string    `json:"theme"`
	ExportDate string    `json:"exportDate"`
	Version    string    `json:"version"`
}

type ImportResult struct {
	Mode       ImportMode `json:"mode"`
	TasksAdded int        `json:"tasks_added"`
	NotesAdded int        `json:"notes_added"`
	Skipped    int        `json:"skipped"`
}

const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tasks", "notes"],
  "properties": {
    "tasks": {
      "type": "object",
      "propertyNames": {"pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
      "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/task"}}
    },
    "notes": {
      "type": "object",
      "propertyNames": {"pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
      "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/note"}}
    },
    "theme": {"type": ["string", "null"]},
    "exportDate": {"type": ["string", "null"]},
    "version": {"type": ["string", "null"]}
  },
  "definitions": {
    "task": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "text": {"type": "string"},
        "completed": {"type": "boolean"},
        "priority": {"enum": ["low", "normal", "high", ""]},
        "carriedFrom": {"type": ["string", "null"]},
        "updatedAt": {"type": ["string", "null"]}
      }
    },
    "note": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "body": {"type": "string"},
        "updatedAt": {"type": ["string", "null"]}
      }
    }
  }
}`

var snapshotValidator = jsonschema.MustCompileString("snapshot.schema.json", snapshotSchema)

// Export captures the whole store.
func (s *Store) Export() Snapshot {
	return Snapshot{
		Tasks:      s.readTasks(),
		Notes:      s.readNotes(),
		Theme:      s.Theme(),
		ExportDate: s.now().UTC().Format(time.RFC3339),
		Version:    SnapshotVersion,
	}
}

// WriteExport writes the export document as indented JSON.
func (s *Store) WriteExport(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Export())
}

// ParseSnapshot decodes and validates an export document. Any problem is
// reported as ErrInvalidFormat.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := snapshotValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, schemaErrorMessage(err))
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for date := range snap.Tasks {
		if err := validateDate(date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	}
	for date := range snap.Notes {
		if err := validateDate(date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	}
	return &snap, nil
}

// schemaErrorMessage picks the first leaf cause, which names the offending field.
func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}

// Import applies a parsed snapshot. Merge keeps every existing entry and adds
// imported entries whose id is not yet in the bucket; replace swaps both
// stores for the imported ones.
func (s *Store) Import(snap *Snapshot, mode ImportMode) (ImportResult, error) {
	res := ImportResult{Mode: mode}
	if snap == nil || snap.Tasks == nil || snap.Notes == nil {
		return res, fmt.Errorf("%w: tasks and notes are required", ErrInvalidFormat)
	}
	switch mode {
	case ImportReplace:
		for _, list := range snap.Tasks {
			res.TasksAdded += len(list)
		}
		for _, list := range snap.Notes {
			res.NotesAdded += len(list)
		}
		if err := s.replaceBlobs(snap); err != nil {
			return res, err
		}
		if t := strings.TrimSpace(snap.Theme); t != "" {
			if err := s.SetTheme(t); err != nil && !errors.Is(err, ErrInvalid) {
				return res, err
			}
		}
	case ImportMerge:
		tasks := s.readTasks()
		added, skipped := mergeBuckets(tasks, snap.Tasks, func(t Task) string { return t.ID })
		res.TasksAdded, res.Skipped = added, skipped
		notes := s.readNotes()
		added, skipped = mergeBuckets(notes, snap.Notes, func(n Note) string { return n.ID })
		res.NotesAdded, res.Skipped = added, res.Skipped+skipped
		if err := s.persistTasks(tasks, ""); err != nil {
			return res, err
		}
		if err := s.persistNotes(notes, ""); err != nil {
			return res, err
		}
		if readJSON(s, KeyTheme, "") == "" && strings.TrimSpace(snap.Theme) != "" {
			_ = s.SetTheme(snap.Theme)
		}
	default:
		return res, fmt.Errorf("%w: unknown import mode %q", ErrInvalid, mode)
	}
	s.log.Info("imported snapshot", "mode", mode, "tasks", res.TasksAdded, "notes", res.NotesAdded, "skipped", res.Skipped)
	return res, nil
}

// replaceBlobs writes both buckets of snap. If the notes cannot be stored the
// previous tasks blob is put back, so a failed import leaves the old data.
func (s *Store) replaceBlobs(snap *Snapshot) error {
	prevTasks, hadTasks := s.readRaw(KeyTasks)
	tasks := TaskStore{}
	for date, list := range snap.Tasks {
		tasks[date] = list
	}
	notes := NoteStore{}
	for date, list := range snap.Notes {
		notes[date] = list
	}
	if err := s.persistTasks(tasks, ""); err != nil {
		return err
	}
	err := s.persistNotes(notes, "")
	if err == nil {
		return nil
	}
	var restoreErr error
	if hadTasks {
		restoreErr = s.kv.Set(KeyTasks, prevTasks)
	} else {
		restoreErr = s.kv.Delete(KeyTasks)
	}
	if restoreErr != nil {
		s.log.Error("could not restore tasks after failed import", "err", restoreErr)
	}
	return err
}

// mergeBuckets appends incoming entries whose id is not already in the
// destination bucket. It never removes or reorders existing entries.
func mergeBuckets[T any](dst, src map[string][]T, id func(T) string) (added, skipped int) {
	for _, date := range sortedKeys(src) {
		existing := dst[date]
		seen := make(map[string]bool, len(existing))
		for _, e := range existing {
			seen[id(e)] = true
		}
		merged := existing
		if merged == nil {
			merged = []T{}
		}
		for _, e := range src[date] {
			if seen[id(e)] {
				skipped++
				continue
			}
			seen[id(e)] = true
			merged = append(merged, e)
			added++
		}
		dst[date] = merged
	}
	return added, skipped
}
