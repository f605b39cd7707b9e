// Package main implements farecard, the operator CLI of the fare card rule
// engine: schema migrations, card type and privilege administration,
// point-of-sale operations and gate entry and exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/clock"
	"github.com/spf13/pflag"

	"github.com/phrazzld/farecard/internal/config"
	"github.com/phrazzld/farecard/internal/platform/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, clock.WallClock)
	stop()
	os.Exit(code)
}

// run parses the global flags, loads configuration, wires the engines and
// executes one command. It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, clk clock.Clock) int {
	global := pflag.NewFlagSet("farecard", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)

	configFile := global.String("config", "", "path to a YAML configuration file")
	printEvents := global.Bool("print-events", false, "include the domain events each command emitted in its output")
	global.String("log.level", "info", "log level: debug, info, warn or error")
	global.String("database.url", "", "PostgreSQL connection URL; empty uses an in-memory store")
	global.Bool("database.migrate_on_start", false, "apply pending migrations before running the command")
	global.Int("database.conflict_retries", 0, "rerun transactions that hit a serialization failure or deadlock this many times")
	global.String("events.nats_url", "", "NATS server URL; empty disables publishing")
	global.String("events.subject_prefix", "farecard", "subject prefix for published events")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		printUsage(stderr, global)
		return exitUsage
	}

	cfg, err := config.Load(config.WithConfigFile(*configFile), config.WithFlags(global))
	if err != nil {
		writeError(stderr, fmt.Errorf("failed to load configuration: %w", err))
		return exitFailure
	}

	log, err := logger.SetupWithWriter(cfg.Log, stderr)
	if err != nil {
		writeError(stderr, fmt.Errorf("failed to set up logger: %w", err))
		return exitFailure
	}
	ctx = logger.WithLogger(ctx, log)

	a, err := newApp(ctx, cfg, log, clk)
	if err != nil {
		writeError(stderr, err)
		return exitFailure
	}
	defer a.Close()

	a.printEvents = *printEvents
	return a.execute(ctx, global.Args(), stdin, stdout, stderr)
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage: farecard [global flags] <command> [command flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Global flags:")
	_, _ = fmt.Fprint(w, global.FlagUsages())
}
