package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"txcat/internal/backend"
	"txcat/internal/core"
	"txcat/internal/sheets"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the database schema" }
func (*migrateCmd) Usage() string {
	return `txcatctl migrate

  Applies pending migrations to the database selected by DB_DRIVER.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	repo, err := a.factory().OpenRepository(ctx, a.backendConfig())
	if err != nil {
		return fail(err)
	}
	defer repo.Close()
	fmt.Fprintf(a.out, "%s schema is up to date\n", repo.Driver())
	return subcommands.ExitSuccess
}

type categorizeCmd struct{}

func (*categorizeCmd) Name() string     { return "categorize" }
func (*categorizeCmd) Synopsis() string { return "print the category of merchant names" }
func (*categorizeCmd) Usage() string {
	return `txcatctl categorize <merchant>...

  Prints each merchant with the category it would be stored under.
  Does not touch the database.
`
}
func (*categorizeCmd) SetFlags(*flag.FlagSet) {}

func (*categorizeCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() == 0 {
		return subcommands.ExitUsageError
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, merchant := range f.Args() {
		fmt.Fprintf(w, "%s\t%s\n", merchant, core.Categorize(merchant))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	amount   string
	merchant string
	date     string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "store a transaction" }
func (*addCmd) Usage() string {
	return `txcatctl add -amount <decimal> -merchant <name> -date <YYYY-MM-DD>

  Categorizes and stores a transaction, publishing it for export when
  AMQP is configured.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "Amount, e.g. 12.34 or -5 for a refund.")
	f.StringVar(&c.merchant, "merchant", "", "Merchant name.")
	f.StringVar(&c.date, "date", "", "Transaction date (YYYY-MM-DD).")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return fail(err)
	}
	date, err := core.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}

	err = runWithRepo(ctx, a, func(ctx context.Context, res *backend.Result) error {
		tx, err := res.Service.Create(ctx, core.NewTransaction{Amount: amount, Merchant: c.merchant, Date: date})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "#%d %s %s %s (%s)\n", tx.ID, tx.Date, tx.Merchant, formatMoney(tx.Amount, a.currency()), tx.Category)
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	start string
	end   string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list stored transactions" }
func (*listCmd) Usage() string {
	return `txcatctl list [-start <YYYY-MM-DD>] [-end <YYYY-MM-DD>]

  Lists transactions ordered by date, optionally within an inclusive range.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First date to include.")
	f.StringVar(&c.end, "end", "", "Last date to include.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	var filter core.Filter
	for _, p := range []struct {
		value string
		dst   **core.Date
	}{{c.start, &filter.Start}, {c.end, &filter.End}} {
		if p.value == "" {
			continue
		}
		d, err := core.ParseDate(p.value)
		if err != nil {
			return fail(err)
		}
		*p.dst = &d
	}

	err := runWithRepo(ctx, a, func(ctx context.Context, res *backend.Result) error {
		txs, err := res.Service.List(ctx, filter)
		if err != nil {
			return err
		}
		return writeTransactions(a, txs)
	})
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func writeTransactions(a *app, txs []core.Transaction) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tCATEGORY\tMERCHANT\t")
	for _, tx := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", tx.ID, tx.Date, formatMoney(tx.Amount, a.currency()), tx.Category, tx.Merchant)
	}
	return w.Flush()
}

type summaryCmd struct {
	month string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the totals of a month by category" }
func (*summaryCmd) Usage() string {
	return `txcatctl summary -month <YYYY-MM>
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Month to summarize (YYYY-MM).")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	month, err := core.ParseMonth(c.month)
	if err != nil {
		return fail(err)
	}

	err = runWithRepo(ctx, a, func(ctx context.Context, res *backend.Result) error {
		summary, err := res.Service.Summary(ctx, month)
		if err != nil {
			return err
		}
		return writeSummary(a, summary)
	})
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// writeSummary prints categories in Categories order, skipping empty ones.
func writeSummary(a *app, s core.MonthlySummary) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\tCOUNT\tTOTAL\t\n", strings.ToUpper(s.Month))
	for _, category := range core.Categories() {
		total, ok := s.TotalsByCategory[category]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t\n", category, s.CountsByCategory[category], formatMoney(total, a.currency()))
	}
	fmt.Fprintf(w, "Total\t%d\t%s\t\n", s.TransactionCount, formatMoney(s.OverallTotal, a.currency()))
	return w.Flush()
}

type exportedCmd struct {
	month string
}

func (*exportedCmd) Name() string     { return "exported" }
func (*exportedCmd) Synopsis() string { return "summarize the rows exported to the spreadsheet" }
func (*exportedCmd) Usage() string {
	return `txcatctl exported -month <YYYY-MM>

  Reads back the spreadsheet rows of a month and prints their summary, to
  compare with "txcatctl summary".
`
}

func (c *exportedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Month to read (YYYY-MM).")
}

func (c *exportedCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	month, err := core.ParseMonth(c.month)
	if err != nil {
		return fail(err)
	}

	exporter, err := a.factory().CreateExporter(ctx, a.backendConfig())
	if err != nil {
		return fail(err)
	}
	reader, ok := exporter.(sheets.MonthReader)
	if !ok {
		return fail(errors.New("export backend cannot be read back"))
	}

	txs, err := reader.ReadMonth(ctx, month)
	if err != nil {
		return fail(err)
	}
	if err := writeSummary(a, core.Summarize(month, txs)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
