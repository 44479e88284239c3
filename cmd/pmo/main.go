// Command pmo converts tab-delimited tables into Portable Microhaplotype
// Object documents without running the web server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	err := a.execute(ctx, os.Args[1:])
	a.close()
	if err != nil {
		slog.Debug("command failed", "error", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "Error:", core.FormatUserError(err))
			fmt.Fprintln(os.Stderr, "  ", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
