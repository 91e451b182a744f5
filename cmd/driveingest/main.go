package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"driveingest/internal/services"
)

// errRunFailed signals a run whose summary status is failed. The summary has
// already been printed, so main only sets the exit code.
var errRunFailed = errors.New("pipeline run failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errRunFailed):
		return 1
	case errors.Is(err, context.Canceled):
		return 1
	}
	fmt.Fprintln(stderr, "Error:", err)
	return services.ExitCode(err)
}
