package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amirbrooks/agenda/internal/store"
)

func cmdDay(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--filter": true,
		"--search": true,
		"--format": true,
	})
	fs := flag.NewFlagSet("day", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	filterFlag := fs.String("filter", e.cfg.Filter, "Task filter (all|active|completed)")
	search := fs.String("search", "", "Only notes matching this text")
	format := fs.String("format", "text", "Output format (text|telegram)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	filter, err := store.ParseFilter(*filterFlag)
	if err != nil {
		return e.fail("day", err)
	}
	date, err := e.resolveDate(strings.Join(fs.Args(), " "))
	if err != nil {
		return e.fail("day", err)
	}
	view := e.st.View(date, filter, *search)

	if e.gf.JSON {
		return e.emitJSON("day", "day", map[string]any{
			"date":   view.Date,
			"filter": view.Filter,
			"query":  view.Query,
			"tasks":  view.Tasks,
			"notes":  view.Notes,
			"theme":  view.Theme,
		})
	}
	if e.gf.Plain {
		writeTaskRows(e, view.Tasks, false)
		return ExitOK
	}
	if store.IsTelegramFormat(*format) {
		fmt.Fprintln(e.out, view.RenderTelegram())
		return ExitOK
	}
	fmt.Fprint(e.out, view.RenderHuman(e.gf.ASCII))
	return ExitOK
}

func cmdAdd(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":     true,
		"--priority": true,
	})
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	priority := fs.String("priority", "normal", "Priority (low|normal|high)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(e.errw, "Usage: agenda add \"<text>\" [--date <d>] [--priority <p>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("add", err)
	}
	task, err := e.st.AddTask(date, store.AddTaskInput{
		Text:     strings.Join(rest, " "),
		Priority: *priority,
	})
	if err != nil {
		return e.fail("add", err)
	}
	if e.gf.JSON {
		return e.emitJSON("add", "task", map[string]any{"date": date, "task": task})
	}
	e.printf("%s [%s] %s\n", task.ID, date, task.Text)
	return ExitOK
}

func cmdList(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":   true,
		"--filter": true,
		"--sort":   false,
	})
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	filterFlag := fs.String("filter", e.cfg.Filter, "Task filter (all|active|completed)")
	sorted := fs.Bool("sort", false, "Sort by priority, then oldest update")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	filter, err := store.ParseFilter(*filterFlag)
	if err != nil {
		return e.fail("ls", err)
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("ls", err)
	}
	tasks := e.st.ListTasks(date, filter, *sorted)

	if e.gf.JSON {
		return e.emitJSON("ls", "tasks", map[string]any{"date": date, "tasks": tasks})
	}
	if e.gf.Plain {
		writeTaskRows(e, tasks, false)
		return ExitOK
	}
	writeTaskRows(e, tasks, true)
	return ExitOK
}

// writeTaskRows prints tasks as TSV, or as an aligned table when table is set.
func writeTaskRows(e *env, tasks []store.Task, table bool) {
	if !table {
		fmt.Fprintln(e.out, "ID\tST\tPRI\tCARRIED\tTEXT")
		for _, t := range tasks {
			fmt.Fprintf(e.out, "%s\t%s\t%s\t%s\t%s\n", t.ID, statusAbbrev(t), t.PriorityAbbrev(), dashIfEmpty(t.CarriedFrom), t.Text)
		}
		return
	}
	w := tabwriter.NewWriter(e.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tST\tPRI\tCARRIED\tTEXT")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, statusAbbrev(t), t.PriorityAbbrev(), dashIfEmpty(t.CarriedFrom), t.Text)
	}
	_ = w.Flush()
}

func statusAbbrev(t store.Task) string {
	if t.Completed {
		return "x"
	}
	return "-"
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func cmdEdit(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":     true,
		"--text":     true,
		"--priority": true,
	})
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	text := fs.String("text", "", "New text")
	priority := fs.String("priority", "", "New priority (low|normal|high)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 1 || (*text == "" && *priority == "") {
		fmt.Fprintln(e.errw, "Usage: agenda edit <id-or-prefix> [--text \"<text>\"] [--priority <p>] [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("edit", err)
	}
	found, err := e.st.FindTask(date, rest[0])
	if err != nil {
		return e.fail("edit", err)
	}
	patch := store.TaskPatch{}
	if strings.TrimSpace(*text) != "" {
		patch.Text = text
	}
	if *priority != "" {
		p, err := store.ParsePriority(*priority)
		if err != nil {
			return e.fail("edit", err)
		}
		patch.Priority = &p
	}
	task, err := e.st.UpdateTask(date, found.ID, patch)
	if err != nil {
		return e.fail("edit", err)
	}
	if e.gf.JSON {
		return e.emitJSON("edit", "task", map[string]any{"date": date, "task": task})
	}
	e.printf("Updated %s: %s\n", task.ID, task.Text)
	return ExitOK
}

func cmdDone(e *env, args []string, done bool) int {
	name := "done"
	if !done {
		name = "undo"
	}
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintf(e.errw, "Usage: agenda %s <id-or-prefix> [--date <d>]\n", name)
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail(name, err)
	}
	found, err := e.st.FindTask(date, rest[0])
	if err != nil {
		return e.fail(name, err)
	}
	task, err := e.st.SetCompleted(date, found.ID, done)
	if err != nil {
		return e.fail(name, err)
	}
	if e.gf.JSON {
		return e.emitJSON(name, "task", map[string]any{"date": date, "task": task})
	}
	if done {
		e.printf("Completed %s: %s\n", task.ID, task.Text)
	} else {
		e.printf("Reopened %s: %s\n", task.ID, task.Text)
	}
	return ExitOK
}

func cmdRemove(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(e.errw, "Usage: agenda rm <id-or-prefix> [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("rm", err)
	}
	found, err := e.st.FindTask(date, rest[0])
	if err != nil {
		return e.fail("rm", err)
	}
	if err := e.st.DeleteTask(date, found.ID); err != nil {
		return e.fail("rm", err)
	}
	e.printf("Deleted %s\n", found.ID)
	return ExitOK
}

func cmdClear(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	date, err := store.ResolveDate(*dateFlag, e.st.Today())
	if err != nil {
		return e.fail("clear", err)
	}
	n := len(e.st.Tasks(date))
	if err := e.st.ClearTasks(date); err != nil {
		return e.fail("clear", err)
	}
	e.printf("Cleared %d tasks from %s\n", n, date)
	return ExitOK
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
