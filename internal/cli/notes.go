package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/amirbrooks/agenda/internal/store"
)

func cmdNote(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.errw, "Usage: agenda note <add|ls|show|edit|rm|search> ...")
		return ExitUsage
	}
	switch args[0] {
	case "add":
		return cmdNoteAdd(e, args[1:])
	case "ls", "list":
		return cmdNoteList(e, args[1:])
	case "show":
		return cmdNoteShow(e, args[1:])
	case "edit":
		return cmdNoteEdit(e, args[1:])
	case "rm", "delete":
		return cmdNoteRemove(e, args[1:])
	case "search":
		return cmdNoteSearch(e, args[1:])
	default:
		fmt.Fprintln(e.errw, "Usage: agenda note <add|ls|show|edit|rm|search> ...")
		return ExitUsage
	}
}

func cmdNoteAdd(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date": true,
		"--body": true,
	})
	fs := flag.NewFlagSet("note add", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	body := fs.String("body", "", "Note body")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" && strings.TrimSpace(*body) == "" {
		fmt.Fprintln(e.errw, "Usage: agenda note add \"<title>\" [--body \"<text>\"] [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("note add", err)
	}
	note, err := e.st.AddNote(date, store.AddNoteInput{Title: title, Body: *body})
	if err != nil {
		return e.fail("note add", err)
	}
	if e.gf.JSON {
		return e.emitJSON("note add", "note", map[string]any{"date": date, "note": note})
	}
	e.printf("%s [%s] %s\n", note.ID, date, note.Title)
	return ExitOK
}

func cmdNoteList(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":   true,
		"--search": true,
	})
	fs := flag.NewFlagSet("note ls", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	search := fs.String("search", "", "Only notes matching this text")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("note ls", err)
	}
	notes := store.SearchNotes(e.st.Notes(date), *search)
	if e.gf.JSON {
		return e.emitJSON("note ls", "notes", map[string]any{"date": date, "notes": notes})
	}
	dated := make([]store.DatedNote, 0, len(notes))
	for _, n := range notes {
		dated = append(dated, store.DatedNote{Date: date, Note: n})
	}
	writeNoteRows(e, dated)
	return ExitOK
}

func writeNoteRows(e *env, notes []store.DatedNote) {
	if e.gf.Plain {
		fmt.Fprintln(e.out, "ID\tDATE\tUPDATED\tTITLE")
		for _, n := range notes {
			fmt.Fprintf(e.out, "%s\t%s\t%s\t%s\n", n.Note.ID, n.Date, formatUpdated(n.Note.UpdatedAt), n.Note.Title)
		}
		return
	}
	w := tabwriter.NewWriter(e.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tUPDATED\tTITLE")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.Note.ID, n.Date, formatUpdated(n.Note.UpdatedAt), dashIfEmpty(n.Note.Title))
	}
	_ = w.Flush()
}

func cmdNoteShow(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := flag.NewFlagSet("note show", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(e.errw, "Usage: agenda note show <id-or-prefix> [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("note show", err)
	}
	note, err := e.st.FindNote(date, rest[0])
	if err != nil {
		return e.fail("note show", err)
	}
	if e.gf.JSON {
		return e.emitJSON("note show", "note", map[string]any{"date": date, "note": note})
	}
	fmt.Fprint(e.out, note.RenderHuman())
	return ExitOK
}

func cmdNoteEdit(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":  true,
		"--title": true,
		"--body":  true,
	})
	fs := flag.NewFlagSet("note edit", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	title := fs.String("title", "", "New title")
	body := fs.String("body", "", "New body")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(rest) < 1 || (!set["title"] && !set["body"]) {
		fmt.Fprintln(e.errw, "Usage: agenda note edit <id-or-prefix> [--title \"<t>\"] [--body \"<text>\"] [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("note edit", err)
	}
	found, err := e.st.FindNote(date, rest[0])
	if err != nil {
		return e.fail("note edit", err)
	}
	patch := store.NotePatch{}
	if set["title"] {
		patch.Title = title
	}
	if set["body"] {
		patch.Body = body
	}
	note, err := e.st.UpdateNote(date, found.ID, patch)
	if err != nil {
		return e.fail("note edit", err)
	}
	if e.gf.JSON {
		return e.emitJSON("note edit", "note", map[string]any{"date": date, "note": note})
	}
	e.printf("Updated %s\n", note.ID)
	return ExitOK
}

func cmdNoteRemove(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := flag.NewFlagSet("note rm", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	dateFlag := fs.String("date", "", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(e.errw, "Usage: agenda note rm <id-or-prefix> [--date <d>]")
		return ExitUsage
	}
	date, err := e.resolveDate(*dateFlag)
	if err != nil {
		return e.fail("note rm", err)
	}
	found, err := e.st.FindNote(date, rest[0])
	if err != nil {
		return e.fail("note rm", err)
	}
	if err := e.st.DeleteNote(date, found.ID); err != nil {
		return e.fail("note rm", err)
	}
	e.printf("Deleted %s\n", found.ID)
	return ExitOK
}

func cmdNoteSearch(e *env, args []string) int {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Fprintln(e.errw, "Usage: agenda note search \"<query>\"")
		return ExitUsage
	}
	hits := e.st.SearchAllNotes(query)
	if e.gf.JSON {
		return e.emitJSON("note search", "notes", map[string]any{"query": query, "notes": hits})
	}
	if len(hits) == 0 {
		e.printf("No notes match %q.\n", query)
		return ExitOK
	}
	writeNoteRows(e, hits)
	return ExitOK
}
