package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/amirbrooks/agenda/internal/config"
	"github.com/amirbrooks/agenda/internal/kv"
	"github.com/amirbrooks/agenda/internal/logging"
	"github.com/amirbrooks/agenda/internal/store"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

var timeNow = time.Now

type GlobalFlags struct {
	Root       string
	JSON       bool
	Plain      bool
	ASCII      bool
	Quiet      bool
	Verbose    bool
	StdoutJSON bool
	ExportDir  string
}

// env is what every command runs against.
type env struct {
	gf        GlobalFlags
	cfg       config.Config
	cfgExists bool
	st        *store.Store
	log       *log.Logger
	out       io.Writer
	errw      io.Writer
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") && a != "-" {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	return RunWith(args, os.Stdout, os.Stderr)
}

// RunWith runs the command line with output going to stdout and stderr.
func RunWith(args []string, stdout, stderr io.Writer) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp(stderr)
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp(stdout)
		return ExitOK
	}

	cfg, exists, err := config.Load(gf.Root)
	if err != nil {
		fmt.Fprintln(stderr, "agenda:", err)
		return ExitInternal
	}
	e := &env{gf: gf, cfg: cfg, cfgExists: exists, out: stdout, errw: stderr}
	e.log = logging.NewWithWriter(stderr, e.logOptions())

	if cmd == "init" {
		return cmdInit(e, cmdArgs)
	}

	e.st = e.openStore()
	defer e.st.Close()

	code := dispatch(e, cmd, cmdArgs)
	if err := e.st.LastWriteError(); err != nil {
		fmt.Fprintln(stderr, "agenda: warning: changes were not saved:", err)
		if code == ExitOK {
			code = ExitInternal
		}
	}
	return code
}

func dispatch(e *env, cmd string, args []string) int {
	switch cmd {
	case "config", "cfg":
		return cmdConfig(e, args)
	case "day", "show":
		return cmdDay(e, args)
	case "add":
		return cmdAdd(e, args)
	case "ls", "list":
		return cmdList(e, args)
	case "edit":
		return cmdEdit(e, args)
	case "done":
		return cmdDone(e, args, true)
	case "undo", "reopen":
		return cmdDone(e, args, false)
	case "rm", "delete":
		return cmdRemove(e, args)
	case "clear":
		return cmdClear(e, args)
	case "note", "notes":
		return cmdNote(e, args)
	case "export":
		return cmdExport(e, args)
	case "import":
		return cmdImport(e, args)
	case "prune":
		return cmdPrune(e, args)
	case "theme":
		return cmdTheme(e, args)
	case "tui", "ui":
		return cmdTUI(e, args)
	default:
		fmt.Fprintf(e.errw, "Unknown command: %s\n\n", cmd)
		printHelp(e.errw)
		return ExitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `agenda - day planner with tasks, carry-over and notes

Usage:
  agenda [global flags] <command> [args]

Global flags:
  --root <path>    Store root (default: ~/.agenda or AGENDA_ROOT)
  --json           Write JSON output to <root>/exports (no stdout JSON)
  --stdout-json    Allow JSON to stdout
  --export-dir     Override export directory (default: <root>/exports)
  --plain          TSV output
  --ascii          ASCII rendering
  --quiet
  --verbose

Commands:
  init [--backend dir|sqlite] [--format yaml|toml]
  config show
  config set <key> <value>
  day [today|prev|next|YYYY-MM-DD] [--filter all|active|completed] [--search <q>] [--format text|telegram]
  add "<text>" [--date <d>] [--priority low|normal|high]
  ls [--date <d>] [--filter all|active|completed] [--sort]
  edit <id-or-prefix> [--date <d>] [--text "<text>"] [--priority <p>]
  done <id-or-prefix> [--date <d>]
  undo <id-or-prefix> [--date <d>]
  rm <id-or-prefix> [--date <d>]
  clear [--date <d>]
  note add "<title>" [--body "<text>"] [--date <d>]
  note ls [--date <d>] [--search <q>]
  note show <id-or-prefix> [--date <d>]
  note edit <id-or-prefix> [--title "<t>"] [--body "<text>"] [--date <d>]
  note rm <id-or-prefix> [--date <d>]
  note search "<query>"
  export [--format json|ics] [--out <path>|-] [--from <d>] [--to <d>]
  import <file|-> [--mode merge|replace]
  prune [--days N | --before <d>]
  theme [light|dark|toggle]
  tui

Dates accept YYYY-MM-DD, today, yesterday/prev and tomorrow/next.
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{}

	if env := os.Getenv("AGENDA_ROOT"); env != "" {
		gf.Root = env
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			gf.Root = filepath.Join(home, ".agenda")
		} else {
			gf.Root = ".agenda"
		}
	}

	out := make([]string, 0, len(args))
	skip := 0

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		switch a {
		case "--root":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--root requires a value")
			}
			gf.Root = args[i+1]
			skip = 1
		case "--json":
			gf.JSON = true
		case "--stdout-json":
			gf.StdoutJSON = true
		case "--export-dir":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--export-dir requires a value")
			}
			gf.ExportDir = args[i+1]
			skip = 1
		case "--plain":
			gf.Plain = true
		case "--ascii":
			gf.ASCII = true
		case "--quiet":
			gf.Quiet = true
		case "--verbose":
			gf.Verbose = true
		default:
			out = append(out, a)
		}
	}

	if gf.StdoutJSON && !gf.JSON {
		return gf, nil, errors.New("--stdout-json requires --json")
	}
	if gf.Quiet && gf.Verbose {
		return gf, nil, errors.New("--quiet and --verbose are mutually exclusive")
	}
	if gf.ExportDir == "" {
		gf.ExportDir = filepath.Join(gf.Root, "exports")
	}
	return gf, out, nil
}

func (e *env) logOptions() logging.Options {
	opts := logging.DefaultOptions()
	opts.Level = e.cfg.Log.Level
	opts.Format = e.cfg.Log.Format
	opts.ReportTimestamp = e.cfg.Log.Timestamps
	if e.gf.Verbose {
		opts.Level = "debug"
	}
	if e.gf.Quiet {
		opts.Level = "error"
	}
	return opts
}

func (e *env) openStore() *store.Store {
	return store.Open(kv.Options{
		Kind:  e.cfg.Storage.Backend,
		Path:  e.cfg.StoragePath(e.gf.Root),
		Quota: e.cfg.Storage.Quota,
	}, store.Options{
		Logger:    e.log,
		Now:       timeNow,
		PruneDays: e.cfg.PruneDays,
		Theme:     e.cfg.Theme,
	})
}

// resolveDate turns a --date value into a date-key and activates it, so
// carry-over runs before the command looks at the day.
func (e *env) resolveDate(input string) (string, error) {
	date, err := store.ResolveDate(input, e.st.Today())
	if err != nil {
		return "", err
	}
	if _, err := e.st.ActivateDate(date); err != nil {
		return "", err
	}
	return date, nil
}

// fail reports err for cmd and maps it to an exit code.
func (e *env) fail(cmd string, err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(e.errw, cmd+":", err)
		return ExitNotFound
	case errors.Is(err, store.ErrConflict):
		fmt.Fprintln(e.errw, cmd+": ambiguous id prefix:", err)
		return ExitConflict
	case errors.Is(err, store.ErrInvalid), errors.Is(err, store.ErrInvalidFormat):
		fmt.Fprintln(e.errw, cmd+":", err)
		return ExitUsage
	default:
		fmt.Fprintln(e.errw, cmd+":", err)
		return ExitInternal
	}
}

// emitJSON prints payload to stdout with --stdout-json, otherwise writes it
// to the export directory.
func (e *env) emitJSON(cmd, base string, payload any) int {
	if e.gf.StdoutJSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload)
		return ExitOK
	}
	path, err := writeJSONExport(e.gf, base, payload)
	if err != nil {
		fmt.Fprintln(e.errw, cmd+":", err)
		return ExitInternal
	}
	if !e.gf.Quiet {
		fmt.Fprintln(e.out, "Wrote JSON to:", path)
	}
	return ExitOK
}

func (e *env) printf(format string, args ...any) {
	if e.gf.Quiet {
		return
	}
	fmt.Fprintf(e.out, format, args...)
}

func writeJSONExport(gf GlobalFlags, base string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return writeExportFile(gf.ExportDir, base, "json", data)
}

func writeExportFile(dir, base, ext string, data []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("export directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	t := timeNow().UTC()
	ts := t.Format("20060102-150405")
	name := fmt.Sprintf("%s-%s.%s", base, ts, ext)
	path := filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s-%s-%d.%s", base, ts, i, ext)
		path = filepath.Join(dir, name)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
