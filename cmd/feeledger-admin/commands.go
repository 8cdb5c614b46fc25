package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/export"
	"feeledger/internal/ledger"
	applog "feeledger/internal/log"
)

const usage = `usage: feeledger-admin <command> [flags]

commands:
  stats                         print dashboard totals
  reset-month -yes              delete every payment dated in the current month
  reset-all -yes                delete every payment
  delete-range -from M -to M -yes
                                delete payments dated between two months (YYYY-MM)
  export -o FILE [-student ID]  write all payments, or one ledger, as XLSX
`

var errUsage = errors.New("invalid usage")

type adminLedger interface {
	Snapshot(ctx context.Context) (ledger.Snapshot, error)
	StudentLedger(ctx context.Context, id string) (ledger.Ledger, error)
	DashboardStats(ctx context.Context, now time.Time) (ledger.DashboardStats, error)
	ResetCurrentMonth(ctx context.Context, now time.Time) (int, error)
	ResetAll(ctx context.Context) (int, error)
	DeleteMonthRange(ctx context.Context, start, end core.MonthKey, loc *time.Location) (int, error)
}

type command struct {
	ledger adminLedger
	out    io.Writer
	now    time.Time
	logger *applog.Logger
}

func (c *command) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return errUsage
	}
	name, rest := args[0], args[1:]
	switch name {
	case "stats":
		return c.stats(ctx)
	case "reset-month":
		return c.reset(ctx, name, rest, func() (int, error) { return c.ledger.ResetCurrentMonth(ctx, c.now) })
	case "reset-all":
		return c.reset(ctx, name, rest, func() (int, error) { return c.ledger.ResetAll(ctx) })
	case "delete-range":
		return c.deleteRange(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func (c *command) stats(ctx context.Context) error {
	st, err := c.ledger.DashboardStats(ctx, c.now)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "students:       %d (%d active)\n", st.TotalStudents, st.ActiveStudents)
	fmt.Fprintf(c.out, "total revenue:  %s\n", st.TotalRevenue)
	fmt.Fprintf(c.out, "%s: %s\n", core.MonthOf(c.now).Label(), st.CurrentMonthRevenue)
	return nil
}

func (c *command) reset(ctx context.Context, name string, args []string, do func() (int, error)) error {
	fs := newFlagSet(name, c.out)
	yes := fs.Bool("yes", false, "confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if !*yes {
		return fmt.Errorf("%w: %s deletes payments, pass -yes to confirm", errUsage, name)
	}
	n, err := do()
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Payments deleted", applog.FieldOperation, applog.OpReset, "scope", name, "deleted", n)
	fmt.Fprintf(c.out, "deleted %d payment(s)\n", n)
	return nil
}

func (c *command) deleteRange(ctx context.Context, args []string) error {
	fs := newFlagSet("delete-range", c.out)
	from := fs.String("from", "", "first month, YYYY-MM")
	to := fs.String("to", "", "last month, YYYY-MM")
	yes := fs.Bool("yes", false, "confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	start, err := core.ParseMonthKey(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	end, err := core.ParseMonthKey(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	if !*yes {
		return fmt.Errorf("%w: delete-range deletes payments, pass -yes to confirm", errUsage)
	}
	n, err := c.ledger.DeleteMonthRange(ctx, start, end, c.now.Location())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted %d payment(s) dated %s to %s\n", n, start.Label(), end.Label())
	return nil
}

func (c *command) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export", c.out)
	path := fs.String("o", "", "output file")
	studentID := fs.String("student", "", "export one student's ledger instead of all payments")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *path == "" {
		return fmt.Errorf("%w: -o is required", errUsage)
	}

	f, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("create %s: %w", *path, err)
	}
	if err := c.writeExport(ctx, f, *studentID); err != nil {
		f.Close()
		os.Remove(*path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *path, err)
	}
	c.logger.InfoContext(ctx, "Workbook exported", applog.FieldOperation, applog.OpExport, "path", *path)
	fmt.Fprintf(c.out, "wrote %s\n", *path)
	return nil
}

func (c *command) writeExport(ctx context.Context, w io.Writer, studentID string) error {
	if studentID != "" {
		l, err := c.ledger.StudentLedger(ctx, studentID)
		if err != nil {
			return err
		}
		return export.WriteLedger(w, l, c.now.Location())
	}
	snap, err := c.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	return export.WritePayments(w, snap.Students, snap.Payments, c.now.Location())
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
