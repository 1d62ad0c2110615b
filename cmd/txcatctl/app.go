package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"

	"txcat/internal/backend"
	"txcat/internal/cli"
	"txcat/internal/config"
	"txcat/internal/core"
	"txcat/internal/log"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&categorizeCmd{},
	&addCmd{},
	&listCmd{},
	&summaryCmd{},
	&exportedCmd{},
}

// app carries process-wide state to commands. Configuration is loaded on
// first use so that offline commands work without a database.
type app struct {
	logger *log.Logger
	out    io.Writer
	cfg    *config.Config
}

func (a *app) config() *config.Config {
	if a.cfg == nil {
		a.cfg = cli.LoadAndValidateConfig(a.logger)
	}
	return a.cfg
}

func (a *app) backendConfig() backend.Config {
	return cli.BackendConfig(a.logger, a.config())
}

func (a *app) factory() backend.Factory {
	return backend.NewFactory(a.logger)
}

func (a *app) currency() string {
	if a.cfg != nil {
		return a.cfg.Currency
	}
	return money.USD
}

// appFrom extracts the app passed to Commander.Execute.
func appFrom(args []interface{}) *app {
	if len(args) > 0 {
		if a, ok := args[0].(*app); ok {
			return a
		}
	}
	return &app{logger: log.Discard(), out: os.Stdout}
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

// formatMoney renders m in currency, e.g. "$1,234.56".
func formatMoney(m core.Money, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return m.String() + " " + currency
	}
	amount := m.Decimal().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(amount, cur.Code).Display()
}

func runWithRepo(ctx context.Context, a *app, fn func(context.Context, *backend.Result) error) error {
	res, err := a.factory().CreateService(ctx, a.backendConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.WarnContext(ctx, "Cleanup failed", log.FieldError, err)
		}
	}()
	return fn(ctx, res)
}
