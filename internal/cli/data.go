package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/amirbrooks/agenda/internal/config"
	"github.com/amirbrooks/agenda/internal/store"
)

func cmdInit(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--backend": true,
		"--format":  true,
	})
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	backend := fs.String("backend", "", "Storage backend (dir|sqlite|memory)")
	format := fs.String("format", "yaml", "Config file format (yaml|toml)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg := e.cfg
	if *backend != "" {
		if err := cfg.Set("storage.backend", *backend); err != nil {
			fmt.Fprintln(e.errw, "init:", err)
			return ExitUsage
		}
		cfg.Storage.Path = ""
	}
	if err := os.MkdirAll(e.gf.Root, 0o755); err != nil {
		fmt.Fprintln(e.errw, "init:", err)
		return ExitInternal
	}
	if !e.cfgExists || *backend != "" {
		name := config.YAMLFile
		switch strings.ToLower(strings.TrimSpace(*format)) {
		case "yaml", "yml":
		case "toml":
			name = config.TOMLFile
		default:
			fmt.Fprintf(e.errw, "init: unknown config format %q\n", *format)
			return ExitUsage
		}
		if e.cfgExists {
			name = filepath.Base(config.Path(e.gf.Root))
		}
		if err := config.SaveAs(e.gf.Root, name, cfg); err != nil {
			fmt.Fprintln(e.errw, "init:", err)
			return ExitInternal
		}
		cfg.Normalize()
	}
	e.cfg = cfg
	e.st = e.openStore()
	defer e.st.Close()
	if e.st.Degraded() {
		fmt.Fprintln(e.errw, "init: storage could not be opened at", e.cfg.StoragePath(e.gf.Root))
		return ExitInternal
	}
	e.printf("Initialized agenda store at: %s\n", e.gf.Root)
	return ExitOK
}

func configRows(cfg config.Config) [][2]string {
	return [][2]string{
		{"storage.backend", cfg.Storage.Backend},
		{"storage.path", cfg.Storage.Path},
		{"storage.quota", fmt.Sprintf("%d", cfg.Storage.Quota)},
		{"log.level", cfg.Log.Level},
		{"log.format", cfg.Log.Format},
		{"log.timestamps", fmt.Sprintf("%t", cfg.Log.Timestamps)},
		{"prune_days", fmt.Sprintf("%d", cfg.PruneDays)},
		{"theme", cfg.Theme},
		{"filter", cfg.Filter},
	}
}

func cmdConfig(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.errw, "Usage: agenda config <show|set> ...")
		return ExitUsage
	}
	switch args[0] {
	case "show":
	case "set":
		return cmdConfigSet(e, args[1:])
	default:
		fmt.Fprintln(e.errw, "Usage: agenda config <show|set> ...")
		return ExitUsage
	}

	cfgPath := config.Path(e.gf.Root)
	if e.gf.JSON {
		return e.emitJSON("config show", "config", map[string]any{
			"root":        e.gf.Root,
			"config_path": cfgPath,
			"exists":      e.cfgExists,
			"config":      e.cfg,
		})
	}
	if e.gf.Plain {
		w := tabwriter.NewWriter(e.out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		fmt.Fprintf(w, "root\t%s\n", e.gf.Root)
		fmt.Fprintf(w, "config_path\t%s\n", cfgPath)
		fmt.Fprintf(w, "exists\t%t\n", e.cfgExists)
		for _, row := range configRows(e.cfg) {
			fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
		}
		_ = w.Flush()
		return ExitOK
	}

	fmt.Fprintln(e.out, "Config")
	fmt.Fprintln(e.out, "  Root:", e.gf.Root)
	if e.cfgExists {
		fmt.Fprintln(e.out, "  Config file:", cfgPath)
	} else {
		fmt.Fprintln(e.out, "  Config file:", cfgPath, "(not found; defaults shown)")
	}
	fmt.Fprintln(e.out, "  Storage:", e.cfg.StoragePath(e.gf.Root))
	if e.st != nil && e.st.Degraded() {
		fmt.Fprintln(e.out, "  Storage is unavailable; running in memory.")
	}
	fmt.Fprintln(e.out)
	for _, row := range configRows(e.cfg) {
		fmt.Fprintf(e.out, "  %s: %s\n", row[0], row[1])
	}
	return ExitOK
}

func cmdConfigSet(e *env, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(e.errw, "Usage: agenda config set <key> <value>")
		return ExitUsage
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(strings.Join(args[1:], " "))
	cfg := e.cfg
	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintln(e.errw, "config set:", err)
		if errors.Is(err, config.ErrUnknownKey) {
			fmt.Fprintln(e.errw, "Allowed keys:", strings.Join(config.Keys(), ", "))
		}
		return ExitUsage
	}
	if err := config.Save(e.gf.Root, cfg); err != nil {
		fmt.Fprintln(e.errw, "config set:", err)
		return ExitInternal
	}
	e.printf("Updated %s\n", key)
	return ExitOK
}

func cmdExport(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--format": true,
		"--out":    true,
		"--from":   true,
		"--to":     true,
	})
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	format := fs.String("format", "json", "Export format (json|ics)")
	out := fs.String("out", "", "Output file, or - for stdout (default: export directory)")
	from := fs.String("from", "", "First day for ics (YYYY-MM-DD)")
	to := fs.String("to", "", "Last day for ics (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	var buf bytes.Buffer
	ext := "json"
	count := 0
	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "json":
		if err := e.st.WriteExport(&buf); err != nil {
			return e.fail("export", err)
		}
	case "ics", "ical":
		ext = "ics"
		for _, d := range []string{*from, *to} {
			if d == "" {
				continue
			}
			if _, err := store.ParseDate(d); err != nil {
				return e.fail("export", err)
			}
		}
		n, err := e.st.ExportICS(&buf, *from, *to)
		if err != nil {
			return e.fail("export", err)
		}
		count = n
	default:
		fmt.Fprintf(e.errw, "export: unknown format %q\n", *format)
		return ExitUsage
	}

	switch *out {
	case "-":
		_, _ = e.out.Write(buf.Bytes())
		return ExitOK
	case "":
		path, err := writeExportFile(e.gf.ExportDir, "agenda-export", ext, buf.Bytes())
		if err != nil {
			fmt.Fprintln(e.errw, "export:", err)
			return ExitInternal
		}
		*out = path
	default:
		if err := writeFileAtomic(*out, buf.Bytes()); err != nil {
			fmt.Fprintln(e.errw, "export:", err)
			return ExitInternal
		}
	}
	if ext == "ics" {
		e.printf("Wrote %d tasks to: %s\n", count, *out)
	} else {
		e.printf("Wrote export to: %s\n", *out)
	}
	return ExitOK
}

func cmdImport(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--mode": true})
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	modeFlag := fs.String("mode", "merge", "Import mode (merge|replace)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(e.errw, "Usage: agenda import <file|-> [--mode merge|replace]")
		return ExitUsage
	}
	mode, err := store.ParseImportMode(*modeFlag)
	if err != nil {
		return e.fail("import", err)
	}
	var data []byte
	if rest[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(rest[0])
	}
	if err != nil {
		fmt.Fprintln(e.errw, "import:", err)
		return ExitInternal
	}
	snap, err := store.ParseSnapshot(data)
	if err != nil {
		return e.fail("import", err)
	}
	res, err := e.st.Import(snap, mode)
	if err != nil {
		return e.fail("import", err)
	}
	if e.gf.JSON {
		return e.emitJSON("import", "import", res)
	}
	e.printf("Imported (%s): %d tasks, %d notes, %d skipped\n", res.Mode, res.TasksAdded, res.NotesAdded, res.Skipped)
	return ExitOK
}

func cmdPrune(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--days":   true,
		"--before": true,
	})
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	days := fs.Int("days", e.cfg.PruneDays, "Drop days older than this many days")
	before := fs.String("before", "", "Drop days before this date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cutoff := strings.TrimSpace(*before)
	if cutoff == "" {
		if *days < 1 {
			fmt.Fprintln(e.errw, "prune: --days must be at least 1")
			return ExitUsage
		}
		cutoff = store.AddDays(e.st.Today(), -*days)
	}
	removed, err := e.st.Prune(cutoff)
	if err != nil {
		return e.fail("prune", err)
	}
	e.printf("Removed %d days before %s\n", removed, cutoff)
	return ExitOK
}

func cmdTheme(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.out, e.st.Theme())
		return ExitOK
	}
	var (
		theme string
		err   error
	)
	if strings.EqualFold(args[0], "toggle") {
		theme, err = e.st.ToggleTheme()
	} else {
		theme = strings.ToLower(strings.TrimSpace(args[0]))
		err = e.st.SetTheme(theme)
	}
	if err != nil {
		return e.fail("theme", err)
	}
	e.printf("Theme: %s\n", theme)
	return ExitOK
}
