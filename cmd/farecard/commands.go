package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/phrazzld/farecard/internal/domain"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/postgres"
	"github.com/phrazzld/farecard/internal/redact"
	"github.com/phrazzld/farecard/internal/service"
)

// command is one CLI subcommand. run returns the value printed as the
// command's JSON result.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, inv *invocation) (any, error)
}

// invocation carries a command's arguments and streams.
type invocation struct {
	args   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// flags returns a flag set for the named command that reports parse errors
// as usage errors.
func (inv *invocation) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(inv.stderr)
	return fs
}

func (inv *invocation) parse(fs *pflag.FlagSet) error {
	if err := fs.Parse(inv.args); err != nil {
		return usageError{err}
	}
	if fs.NArg() > 0 {
		return usageError{fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}
	return nil
}

// usageError marks a failure caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func requireFlag(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if !fs.Changed(name) {
			return usageError{fmt.Errorf("--%s is required", name)}
		}
	}
	return nil
}

var commands []command

func init() {
	commands = []command{
		{"migrate", "apply or inspect schema migrations: up, down, status or version", runMigrate},
		{"strategies", "list the selectable fare and discount strategies", runStrategies},
		{"privilege-save", "create or edit a privilege", runPrivilegeSave},
		{"privileges", "list privileges", runPrivileges},
		{"card-type-save", "create or edit a card type", runCardTypeSave},
		{"card-type", "show a card type with its required privileges", runCardType},
		{"card-types", "list card types", runCardTypes},
		{"activate", "activate a card", runActivate},
		{"balance", "show a card's balance and expiry", runBalance},
		{"reload", "reload a card's balance", runReload},
		{"enter", "enter a station gate", runEnter},
		{"exit", "exit a station gate and pay the fare", runExit},
		{"batch", "run commands read from standard input, one per line", runBatch},
	}
}

func lookupCommand(name string) (command, bool) {
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

// execute runs args[0] with the remaining arguments and writes its result or
// error. It returns the exit code.
func (a *app) execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd, ok := lookupCommand(args[0])
	if !ok {
		writeError(stderr, usageError{fmt.Errorf("unknown command %q", args[0])})
		return exitUsage
	}

	seen := len(a.recorder.Events())
	log := a.logger.With(slog.String("command", cmd.name))
	result, err := cmd.run(ctx, a, &invocation{args: args[1:], stdin: stdin, stdout: stdout, stderr: stderr})
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}

	var usage usageError
	var batch batchFailure
	switch {
	case errors.As(err, &batch):
		return batch.code
	case errors.As(err, &usage):
		writeError(stderr, err)
		return exitUsage
	case err != nil:
		log.Debug("command failed", slog.String("error", err.Error()))
		writeError(stderr, err)
		return exitFailure
	}

	if result == nil {
		return exitOK
	}
	if a.printEvents {
		result = struct {
			Result any             `json:"result"`
			Events []*events.Event `json:"events"`
		}{result, a.recorder.Events()[seen:]}
	}
	if err := writeJSON(stdout, result); err != nil {
		log.Error("failed to write result", slog.String("error", err.Error()))
		return exitFailure
	}
	return exitOK
}

func runMigrate(ctx context.Context, a *app, inv *invocation) (any, error) {
	if len(inv.args) != 1 || !slices.Contains([]string{"up", "down", "status", "version"}, inv.args[0]) {
		return nil, usageError{errors.New("migrate takes exactly one of: up, down, status, version")}
	}
	if a.db == nil {
		return nil, errNoDatabase
	}
	if err := postgres.Migrate(ctx, a.db, inv.args[0], a.logger); err != nil {
		return nil, err
	}
	return map[string]string{"migrate": inv.args[0], "status": "ok"}, nil
}

func runStrategies(_ context.Context, a *app, inv *invocation) (any, error) {
	if err := inv.parse(inv.flags("strategies")); err != nil {
		return nil, err
	}
	return struct {
		Fare     []strategy.Entry `json:"fare_strategies"`
		Discount []strategy.Entry `json:"discount_strategies"`
	}{a.admin.FareStrategies(), a.admin.DiscountStrategies()}, nil
}

func runPrivilegeSave(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("privilege-save")
	id := uuidFlag(fs, "id", "privilege to edit; omit to create")
	name := fs.String("name", "", "privilege name")
	description := fs.String("description", "", "privilege description")
	pattern := fs.String("pattern", "", "regular expression identification numbers must match")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}

	return a.admin.CreateOrEditPrivilege(ctx, domain.PrivilegeModel{
		ID:                          *id,
		Name:                        *name,
		Description:                 *description,
		IdentificationNumberPattern: *pattern,
	})
}

func runPrivileges(ctx context.Context, a *app, inv *invocation) (any, error) {
	if err := inv.parse(inv.flags("privileges")); err != nil {
		return nil, err
	}
	privileges, err := a.admin.ListPrivileges(ctx)
	if err != nil {
		return nil, err
	}
	if privileges == nil {
		privileges = []domain.Privilege{}
	}
	return privileges, nil
}

func runCardTypeSave(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("card-type-save")
	m := domain.CardTypeModel{FareStrategyID: strategy.BaseFareStrategyID}
	id := uuidFlag(fs, "id", "card type to edit; omit to create")
	fs.StringVar(&m.Name, "name", "", "card type name")
	fs.StringVar(&m.Description, "description", "", "card type description")
	initial := decimalFlag(fs, "initial-balance", "balance of newly activated cards")
	minBalance := decimalFlag(fs, "minimum-balance", "lowest balance the card type allows")
	maxBalance := decimalFlag(fs, "maximum-balance", "balance a reload may not exceed")
	minReload := decimalFlag(fs, "minimum-reload", "smallest reload amount")
	maxReload := decimalFlag(fs, "maximum-reload", "largest reload amount")
	baseFare := decimalFlag(fs, "base-fare", "fare charged per trip before discounts")
	fs.DurationVar(&m.Validity, "validity", 0, "time from activation to expiry; 0 never expires")
	fare := uuidFlag(fs, "fare-strategy", "fare strategy id (default base fare)")
	discount := uuidFlag(fs, "discount-strategy", "discount strategy id; omit for none")
	privileges := uuidSliceFlag(fs, "privilege", "required privilege id; repeatable")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}

	m.ID = *id
	m.InitialBalance = *initial
	m.MinimumBalance = *minBalance
	m.MaximumBalance = *maxBalance
	m.MinimumReloadAmount = *minReload
	m.MaximumReloadAmount = *maxReload
	m.BaseFare = *baseFare
	if fs.Changed("fare-strategy") {
		m.FareStrategyID = *fare
	}
	m.DiscountStrategyID = *discount
	m.PrivilegeIDs = *privileges
	return a.admin.CreateOrEditCardType(ctx, m)
}

func runCardType(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("card-type")
	id := uuidFlag(fs, "id", "card type id")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "id"); err != nil {
		return nil, err
	}
	return a.admin.GetCardType(ctx, *id)
}

func runCardTypes(ctx context.Context, a *app, inv *invocation) (any, error) {
	if err := inv.parse(inv.flags("card-types")); err != nil {
		return nil, err
	}
	cardTypes, err := a.admin.ListCardTypes(ctx)
	if err != nil {
		return nil, err
	}
	if cardTypes == nil {
		cardTypes = []*domain.CardType{}
	}
	return cardTypes, nil
}

func runActivate(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("activate")
	number := uuidFlag(fs, "number", "card number (default a new random number)")
	cardType := uuidFlag(fs, "card-type", "card type id")
	privilege := uuidFlag(fs, "privilege", "privilege id for types that require one")
	idNumber := fs.String("id-number", "", "identification number proving the privilege")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "card-type"); err != nil {
		return nil, err
	}
	if !fs.Changed("number") {
		*number = uuid.New()
	}
	return a.ticketing.Activate(ctx, *number, *cardType, *privilege, *idNumber)
}

func runBalance(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("balance")
	number := uuidFlag(fs, "number", "card number")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "number"); err != nil {
		return nil, err
	}
	return a.ticketing.CheckBalance(ctx, *number)
}

func runReload(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("reload")
	number := uuidFlag(fs, "number", "card number")
	amount := decimalFlag(fs, "amount", "amount to add to the balance")
	payment := decimalFlag(fs, "payment", "cash tendered")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "number", "amount", "payment"); err != nil {
		return nil, err
	}
	return a.ticketing.Reload(ctx, *number, *amount, *payment)
}

func runEnter(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("enter")
	number := uuidFlag(fs, "number", "card number")
	station := fs.Int("station", 0, "entry station number")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "number", "station"); err != nil {
		return nil, err
	}
	if err := a.gate.Enter(ctx, *number, *station); err != nil {
		return nil, err
	}
	return struct {
		Number             uuid.UUID `json:"number"`
		EntryStationNumber int       `json:"entry_station_number"`
	}{*number, *station}, nil
}

func runExit(ctx context.Context, a *app, inv *invocation) (any, error) {
	fs := inv.flags("exit")
	number := uuidFlag(fs, "number", "card number")
	station := fs.Int("station", 0, "exit station number")
	if err := inv.parse(fs); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "number", "station"); err != nil {
		return nil, err
	}
	return a.gate.Exit(ctx, *number, *station)
}

// runBatch executes one command per input line against the same engines, so
// an in-memory store keeps its state across lines. Blank lines and lines
// starting with # are skipped. The batch fails with the highest exit code of
// its lines.
func runBatch(ctx context.Context, a *app, inv *invocation) (any, error) {
	if err := inv.parse(inv.flags("batch")); err != nil {
		return nil, err
	}

	worst := exitOK
	scanner := bufio.NewScanner(inv.stdin)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		args, err := splitArgs(line)
		if err == nil && args[0] == "batch" {
			err = errors.New("batch cannot be nested")
		}
		if err != nil {
			writeError(inv.stderr, usageError{fmt.Errorf("line %d: %w", lineNo, err)})
			worst = max(worst, exitUsage)
			continue
		}
		worst = max(worst, a.execute(ctx, args, nil, inv.stdout, inv.stderr))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch input: %w", err)
	}
	if worst != exitOK {
		return nil, batchFailure{code: worst}
	}
	return nil, nil
}

// batchFailure reports that at least one batch line failed. The lines have
// already written their own errors.
type batchFailure struct{ code int }

func (e batchFailure) Error() string { return fmt.Sprintf("batch finished with exit code %d", e.code) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorOutput struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeError prints err as JSON. Failures other than rule and usage errors
// come from the store or broker and are redacted.
func writeError(w io.Writer, err error) {
	out := errorOutput{Error: err.Error()}

	var usage usageError
	var rule *service.RuleError
	switch {
	case errors.As(err, &usage):
		out.Kind = "usage"
	case errors.As(err, &rule):
		out.Message = rule.Message
		if rule.Kind != nil {
			out.Kind = rule.Kind.Error()
		}
	default:
		out.Error = redact.Error(err)
	}
	_ = writeJSON(w, out)
}
