// Package ui provides the interactive terminal planner.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/agenda/internal/app"
	"github.com/amirbrooks/agenda/internal/store"
)

// RunTUI starts the planner UI on planner's current day.
func RunTUI(ctx context.Context, planner *app.Planner) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newTUIModel(planner)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type palette struct {
	title   lipgloss.Style
	heading lipgloss.Style
	cursor  lipgloss.Style
	done    lipgloss.Style
	high    lipgloss.Style
	faint   lipgloss.Style
	warn    lipgloss.Style
}

func paletteFor(theme string) palette {
	if theme == store.ThemeDark {
		return palette{
			title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
			heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
			cursor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("60")),
			done:    lipgloss.NewStyle().Faint(true).Strikethrough(true),
			high:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			faint:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		}
	}
	return palette{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("55")),
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
		cursor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("153")),
		done:    lipgloss.NewStyle().Faint(true).Strikethrough(true),
		high:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		faint:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("166")),
	}
}

type tuiModel struct {
	planner   *app.Planner
	view      store.DayView
	styles    palette
	cursor    int
	searching bool
	draft     string
	showHelp  bool
	status    string
	err       error
}

func newTUIModel(planner *app.Planner) *tuiModel {
	m := &tuiModel{planner: planner}
	m.refresh()
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		return m.updateSearch(key)
	}
	m.err = nil
	m.status = ""
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "left":
		m.move(m.planner.Prev)
	case "l", "right":
		m.move(m.planner.Next)
	case "t":
		m.move(m.planner.Today)
	case "j", "down":
		if m.cursor < len(m.view.Tasks)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "f":
		f := m.planner.CycleFilter()
		m.status = "Filter: " + string(f)
		m.cursor = 0
		m.refresh()
	case " ", "enter":
		if task, ok := m.selected(); ok {
			if _, err := m.planner.Toggle(task.ID); err != nil {
				m.err = err
			}
			m.refresh()
		}
	case "d", "delete":
		if task, ok := m.selected(); ok {
			if err := m.planner.Store.DeleteTask(m.planner.State.Date, task.ID); err != nil {
				m.err = err
			} else {
				m.status = "Deleted: " + task.Text
			}
			m.refresh()
		}
	case "/":
		m.searching = true
		m.draft = m.planner.State.Query
	case "esc":
		m.planner.SetQuery("")
		m.refresh()
	case "T":
		theme, err := m.planner.ToggleTheme()
		if err != nil {
			m.err = err
		} else {
			m.status = "Theme: " + theme
		}
		m.refresh()
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *tuiModel) updateSearch(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEnter:
		m.searching = false
		m.planner.SetQuery(m.draft)
		m.refresh()
	case tea.KeyEsc:
		m.searching = false
	case tea.KeyBackspace:
		if r := []rune(m.draft); len(r) > 0 {
			m.draft = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.draft += " "
	case tea.KeyRunes:
		m.draft += string(key.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	return m, nil
}

func (m *tuiModel) move(step func() error) {
	if err := step(); err != nil {
		m.err = err
	}
	m.cursor = 0
	m.refresh()
}

func (m *tuiModel) refresh() {
	m.view = m.planner.View()
	m.styles = paletteFor(m.view.Theme)
	if m.cursor >= len(m.view.Tasks) {
		m.cursor = len(m.view.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if err := m.planner.Store.LastWriteError(); err != nil && m.err == nil {
		m.err = err
	}
}

func (m *tuiModel) selected() (store.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Tasks) {
		return store.Task{}, false
	}
	return m.view.Tasks[m.cursor], true
}

func (m *tuiModel) View() string {
	var b strings.Builder
	s := m.styles
	b.WriteString(s.title.Render(m.view.Header()) + "\n")
	b.WriteString(s.faint.Render(fmt.Sprintf("filter: %s", m.view.Filter)))
	if m.view.Query != "" {
		b.WriteString(s.faint.Render(fmt.Sprintf("  search: %q", m.view.Query)))
	}
	b.WriteString("\n\n")

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}

	b.WriteString(s.heading.Render("Tasks") + "\n")
	if len(m.view.Tasks) == 0 {
		b.WriteString(s.faint.Render("  Nothing here.") + "\n")
	}
	for i, t := range m.view.Tasks {
		line := m.taskLine(t)
		if i == m.cursor {
			line = s.cursor.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + s.heading.Render("Notes") + "\n")
	if len(m.view.Notes) == 0 {
		b.WriteString(s.faint.Render("  No notes.") + "\n")
	}
	for _, n := range m.view.Notes {
		b.WriteString(strings.TrimRight(store.FormatNoteLine(n, false), "\n") + "\n")
	}
	b.WriteString("\n")

	if m.planner.Store.Degraded() {
		b.WriteString(s.warn.Render("Storage unavailable: changes are kept in memory only.") + "\n")
	}
	if m.err != nil {
		b.WriteString(s.warn.Render("Error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(s.faint.Render(m.status) + "\n")
	}
	if m.searching {
		b.WriteString(fmt.Sprintf("Search notes: %s_\n", m.draft))
		return b.String()
	}
	b.WriteString(s.faint.Render("h/l day  t today  f filter  space done  d delete  / search  T theme  ? help  q quit") + "\n")
	return b.String()
}

func (m *tuiModel) taskLine(t store.Task) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	text := t.Text
	if t.Completed {
		text = m.styles.done.Render(text)
	} else if t.Priority == store.PriorityHigh {
		text = m.styles.high.Render(text)
	}
	line := fmt.Sprintf("  %s %s %s", box, t.PriorityAbbrev(), text)
	if t.CarriedFrom != "" {
		line += m.styles.faint.Render(" ↩ " + t.CarriedFrom)
	}
	return line
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  h, left      Previous day\n")
	b.WriteString("  l, right     Next day\n")
	b.WriteString("  t            Today\n")
	b.WriteString("  j/k          Move selection\n")
	b.WriteString("  f            Cycle filter (all, active, completed)\n")
	b.WriteString("  space        Toggle done\n")
	b.WriteString("  d            Delete task\n")
	b.WriteString("  /            Search notes (esc clears)\n")
	b.WriteString("  T            Toggle theme\n")
	b.WriteString("  ?            Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
