package store

import (
	"fmt"
	"strings"
)

// DayView is what a day screen shows: the filtered tasks and the notes of a
// single date.
type DayView struct {
	Date   string
	Filter Filter
	Query  string
	Tasks  []Task
	Notes  []Note
	Theme  string
}

// View builds the day view for date with filter applied and notes narrowed
// by query.
func (s *Store) View(date string, filter Filter, query string) DayView {
	tasks := FilterTasks(s.Tasks(date), filter)
	return DayView{
		Date:   date,
		Filter: filter,
		Query:  query,
		Tasks:  tasks,
		Notes:  SearchNotes(s.Notes(date), query),
		Theme:  s.Theme(),
	}
}

func (v DayView) Header() string {
	label := v.Date
	if t, err := ParseDate(v.Date); err == nil {
		label = fmt.Sprintf("%s %s", t.Weekday().String(), v.Date)
	}
	done := 0
	for _, t := range v.Tasks {
		if t.Completed {
			done++
		}
	}
	return fmt.Sprintf("%s - %d tasks (%d done), %d notes", label, len(v.Tasks), done, len(v.Notes))
}

// RenderHuman renders the view as plain text.
func (v DayView) RenderHuman(ascii bool) string {
	var b strings.Builder
	b.WriteString(v.Header() + "\n\n")
	if len(v.Tasks) == 0 {
		if v.Filter == FilterAll || v.Filter == "" {
			b.WriteString("No tasks for this day.\n")
		} else {
			b.WriteString(fmt.Sprintf("No %s tasks.\n", v.Filter))
		}
	} else {
		b.WriteString("Tasks\n")
		for _, t := range v.Tasks {
			b.WriteString(FormatTaskLine(t, ascii))
		}
	}
	b.WriteString("\n")
	if len(v.Notes) == 0 {
		if v.Query != "" {
			b.WriteString(fmt.Sprintf("No notes match %q.\n", v.Query))
		} else {
			b.WriteString("No notes yet.\n")
		}
		return b.String()
	}
	b.WriteString("Notes\n")
	for _, n := range v.Notes {
		b.WriteString(FormatNoteLine(n, ascii))
	}
	return b.String()
}

func FormatTaskLine(t Task, ascii bool) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	carried := ""
	if t.CarriedFrom != "" {
		carried = fmt.Sprintf(" (from %s)", t.CarriedFrom)
	}
	return fmt.Sprintf("  %s %s %s%s%s\n", box, t.IDShort(12), priorityLabel(t.PriorityAbbrev()), truncate(taskText(t.Text), 80, ascii), carried)
}

func FormatNoteLine(n Note, ascii bool) string {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "(untitled)"
	}
	line := fmt.Sprintf("  - %s %s", n.IDShort(12), title)
	if first := firstLine(n.Body); first != "" {
		line += ": " + truncate(first, 60, ascii)
	}
	return line + "\n"
}

func (n *Note) IDShort(count int) string {
	if len(n.ID) <= count {
		return n.ID
	}
	return n.ID[:count]
}

// RenderHuman renders a single note with its full body.
func (n *Note) RenderHuman() string {
	var b strings.Builder
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "(untitled)"
	}
	b.WriteString(title + "\n")
	b.WriteString(fmt.Sprintf("ID: %s\n", n.ID))
	b.WriteString(fmt.Sprintf("Updated: %s\n", n.UpdatedAt.Format("2006-01-02 15:04")))
	b.WriteString("\n")
	if strings.TrimSpace(n.Body) != "" {
		b.WriteString(strings.TrimRight(n.Body, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func taskText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "(untitled)"
	}
	return text
}

func priorityLabel(abbrev string) string {
	abbrev = strings.TrimSpace(abbrev)
	if abbrev == "" || abbrev == "N" {
		return ""
	}
	return "[" + abbrev + "] "
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int, ascii bool) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	if ascii {
		return string(r[:n-2]) + ".."
	}
	return string(r[:n-1]) + "…"
}
