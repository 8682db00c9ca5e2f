package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/amirbrooks/agenda/internal/app"
	"github.com/amirbrooks/agenda/internal/store"
	"github.com/amirbrooks/agenda/internal/ui"
)

func cmdTUI(e *env, args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(e.errw, "Usage: agenda tui")
		return ExitUsage
	}
	filter, err := store.ParseFilter(e.cfg.Filter)
	if err != nil {
		return e.fail("tui", err)
	}
	planner, err := app.New(e.st, filter)
	if err != nil {
		return e.fail("tui", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := ui.RunTUI(ctx, planner); err != nil {
		fmt.Fprintln(e.errw, "tui:", err)
		return ExitInternal
	}
	return ExitOK
}
