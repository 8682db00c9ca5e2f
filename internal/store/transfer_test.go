package store

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/amirbrooks/agenda/internal/kv"
)

func seedStore(t *testing.T, s *Store) {
	t.Helper()
	a, _ := s.AddTask("2024-01-01", AddTaskInput{Text: "carry", Priority: "high"})
	_, _ = s.AddTask("2024-01-01", AddTaskInput{Text: "low one", Priority: "low"})
	if _, err := s.ActivateDate("2024-01-02"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := s.SetCompleted("2024-01-02", a.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, _ = s.AddNote("2024-01-02", AddNoteInput{Title: "Plan", Body: "one\ntwo"})
	_, _ = s.AddNote("2024-01-03", AddNoteInput{Title: "Later"})
	_ = s.SaveTasks("2024-01-04", nil)
}

func TestExportImportReplaceIsByteExact(t *testing.T) {
	srcKV := kv.NewMemory(0)
	src := newTestStore(t, srcKV)
	seedStore(t, src)

	var buf bytes.Buffer
	if err := src.WriteExport(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	snap, err := ParseSnapshot(buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if snap.Version != SnapshotVersion || snap.ExportDate != "2024-01-02T10:00:00Z" {
		t.Fatalf("unexpected header: %q %q", snap.Version, snap.ExportDate)
	}

	dstKV := kv.NewMemory(0)
	dst := newTestStore(t, dstKV)
	_, _ = dst.AddTask("2024-02-01", AddTaskInput{Text: "replaced away"})
	if _, err := dst.Import(snap, ImportReplace); err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, key := range []string{KeyTasks, KeyNotes} {
		want, _ := srcKV.Get(key)
		got, _ := dstKV.Get(key)
		if !bytes.Equal(want, got) {
			t.Fatalf("%s differs after round trip:\nwant %s\ngot  %s", key, want, got)
		}
	}
}

func TestParseSnapshotRejectsMissingStores(t *testing.T) {
	cases := map[string]string{
		"no notes":    `{"tasks":{}}`,
		"no tasks":    `{"notes":{}}`,
		"not json":    `{"tasks":`,
		"bad bucket":  `{"tasks":{"2024-01-01":{}},"notes":{}}`,
		"bad date":    `{"tasks":{"2024-13-45":[]},"notes":{}}`,
		"missing id":  `{"tasks":{"2024-01-01":[{"text":"x"}]},"notes":{}}`,
		"tasks array": `{"tasks":[],"notes":{}}`,
	}
	for name, doc := range cases {
		if _, err := ParseSnapshot([]byte(doc)); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("%s: expected ErrInvalidFormat, got %v", name, err)
		}
	}
}

func TestParseSnapshotNamesOffendingField(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{"tasks":{"2024-01-01":[{"id":"a","completed":"yes"}]},"notes":{}}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "completed") {
		t.Fatalf("expected field name in error, got %v", err)
	}
}

func TestImportInvalidLeavesStoreUntouched(t *testing.T) {
	mem := kv.NewMemory(0)
	s := newTestStore(t, mem)
	_, _ = s.AddTask("2024-01-02", AddTaskInput{Text: "keep"})
	before, _ := mem.Get(KeyTasks)
	if _, err := s.Import(&Snapshot{Tasks: TaskStore{}}, ImportReplace); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if _, err := s.Import(nil, ImportMerge); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for nil snapshot, got %v", err)
	}
	after, _ := mem.Get(KeyTasks)
	if !bytes.Equal(before, after) {
		t.Fatalf("store changed by rejected import")
	}
}

func TestImportMergeKeepsExistingAndSkipsDuplicates(t *testing.T) {
	s := newTestStore(t, nil)
	_ = s.SaveTasks("2024-01-02", []Task{{ID: "a", Text: "mine"}})
	_ = s.SaveNotes("2024-01-02", []Note{{ID: "n1", Title: "mine"}})
	snap := &Snapshot{
		Tasks: TaskStore{
			"2024-01-02": {{ID: "a", Text: "theirs"}, {ID: "b", Text: "new"}, {ID: "b", Text: "dup"}},
			"2024-01-03": {{ID: "c", Text: "other day"}},
		},
		Notes: NoteStore{
			"2024-01-02": {{ID: "n1", Title: "theirs"}, {ID: "n2", Title: "new"}},
		},
		Theme: ThemeDark,
	}
	res, err := s.Import(snap, ImportMerge)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.TasksAdded != 2 || res.NotesAdded != 1 || res.Skipped != 3 {
		t.Fatalf("unexpected result: %#v", res)
	}
	tasks := s.Tasks("2024-01-02")
	if len(tasks) != 2 || tasks[0].Text != "mine" || tasks[1].ID != "b" || tasks[1].Text != "new" {
		t.Fatalf("unexpected merged tasks: %#v", tasks)
	}
	if got := s.Tasks("2024-01-03"); len(got) != 1 {
		t.Fatalf("expected new bucket, got %#v", got)
	}
	notes := s.Notes("2024-01-02")
	if len(notes) != 2 || notes[0].Title != "mine" {
		t.Fatalf("unexpected merged notes: %#v", notes)
	}
	if s.Theme() != ThemeDark {
		t.Fatalf("expected theme from import when none stored, got %s", s.Theme())
	}

	snap.Theme = ThemeLight
	if _, err := s.Import(snap, ImportMerge); err != nil {
		t.Fatalf("merge again: %v", err)
	}
	if s.Theme() != ThemeDark {
		t.Fatalf("merge overwrote stored theme")
	}
	if got := s.Tasks("2024-01-02"); len(got) != 2 {
		t.Fatalf("second merge duplicated entries: %#v", got)
	}
}

func TestParseImportMode(t *testing.T) {
	if m, err := ParseImportMode(""); err != nil || m != ImportMerge {
		t.Fatalf("expected merge default, got %s (%v)", m, err)
	}
	if m, err := ParseImportMode("Replace"); err != nil || m != ImportReplace {
		t.Fatalf("expected replace, got %s (%v)", m, err)
	}
	if _, err := ParseImportMode("append"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestExportICS(t *testing.T) {
	s := newTestStore(t, nil)
	_ = s.SaveTasks("2024-01-01", []Task{{ID: "tsk_OLD", Text: "too early"}})
	_ = s.SaveTasks("2024-01-02", []Task{
		{ID: "tsk_A", Text: "ship it", Priority: PriorityHigh, CarriedFrom: "2024-01-01"},
		{ID: "tsk_B", Text: "done thing", Completed: true},
	})
	var buf bytes.Buffer
	n, err := s.ExportICS(&buf, "2024-01-02", "")
	if err != nil {
		t.Fatalf("ics: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 todos, got %d", n)
	}
	out := buf.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VTODO", "SUMMARY:ship it", "STATUS:COMPLETED", "STATUS:NEEDS-ACTION", "PRIORITY:1", "20240102"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in calendar:\n%s", want, out)
		}
	}
	if strings.Contains(out, "too early") {
		t.Fatalf("task outside range exported:\n%s", out)
	}
}

func TestMergeImportPrunesOldBucketsWhenFull(t *testing.T) {
	mem := kv.NewMemory(0)
	s := newTestStore(t, mem)
	if err := s.SaveTasks("2023-11-01", []Task{{ID: "old", Text: strings.Repeat("x", 200)}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	raw, _ := mem.Get(KeyTasks)
	mem.SetQuota(int64(len(raw) + 20))

	snap := &Snapshot{
		Tasks: TaskStore{"2024-01-02": {{ID: "tsk_new", Text: strings.Repeat("z", 100)}}},
		Notes: NoteStore{},
	}
	if _, err := s.Import(snap, ImportMerge); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.LastWriteError(); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := s.Tasks("2023-11-01"); len(got) != 0 {
		t.Fatalf("expected old bucket pruned, got %#v", got)
	}
	if got := s.Tasks("2024-01-02"); len(got) != 1 || got[0].ID != "tsk_new" {
		t.Fatalf("expected merged task, got %#v", got)
	}
}

func TestReplaceImportRestoresTasksWhenNotesDoNotFit(t *testing.T) {
	mem := kv.NewMemory(0)
	s := newTestStore(t, mem)
	_, _ = s.AddTask("2024-01-02", AddTaskInput{Text: "mine"})
	_, _ = s.AddNote("2024-01-02", AddNoteInput{Title: "old note"})
	tasksBefore, _ := mem.Get(KeyTasks)
	notesBefore, _ := mem.Get(KeyNotes)
	mem.SetQuota(int64(len(tasksBefore) + len(notesBefore) + 50))

	snap := &Snapshot{
		Tasks: TaskStore{"2024-01-02": {{ID: "tsk_theirs", Text: "theirs"}}},
		Notes: NoteStore{"2024-01-02": {{ID: "nte_big", Body: strings.Repeat("n", 500)}}},
	}
	if _, err := s.Import(snap, ImportReplace); !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	tasksAfter, _ := mem.Get(KeyTasks)
	notesAfter, _ := mem.Get(KeyNotes)
	if !bytes.Equal(tasksBefore, tasksAfter) {
		t.Fatalf("tasks blob changed:\n%s\n%s", tasksBefore, tasksAfter)
	}
	if !bytes.Equal(notesBefore, notesAfter) {
		t.Fatalf("notes blob changed:\n%s\n%s", notesBefore, notesAfter)
	}
}
