package main

import (
	"context"
	"fmt"

	"github.com/boddenberg/financeos-bfa-go/internal/cli"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/spf13/cobra"
)

var (
	flagBillDays int
	flagBurnDays int
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Balance, safe-to-spend and upcoming bills",
	RunE:  runDashboard,
}

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Bills due in the next N days",
	RunE:  runBills,
}

var burndownCmd = &cobra.Command{
	Use:   "burndown",
	Short: "Projected end-of-day balance for the next N days",
	RunE:  runBurndown,
}

func init() {
	billsCmd.Flags().IntVarP(&flagBillDays, "days", "n", 30, "Horizon in days")
	burndownCmd.Flags().IntVarP(&flagBurnDays, "days", "n", 60, "Horizon in days")
	rootCmd.AddCommand(dashboardCmd, billsCmd, burndownCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.svc.ComputeDashboard(context.Background(), flagAccount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("FORECAST  %s  as of %s", d.AccountID, d.AsOf.Format(domain.DateLayout))))
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderStats([]cli.Stat{
		{Label: "Balance", Value: cli.FormatMoney(d.TotalBalance), Negative: d.TotalBalance.IsNegative()},
		{Label: "Pending bills", Value: cli.FormatMoney(d.PendingBillsTotal)},
		{Label: "Buffer", Value: cli.FormatMoney(d.BufferTarget)},
		{Label: "Safe to spend", Value: cli.FormatMoney(d.SafeToSpend), Negative: d.SafeToSpend.IsNegative()},
	}))
	fmt.Fprintln(out)

	if len(d.UpcomingBills) == 0 {
		fmt.Fprintf(out, "  No bills in the next %d days.\n", s.svc.Settings().BillWindowDays)
	} else {
		fmt.Fprint(out, cli.RenderTable(billsTable("UPCOMING BILLS", d.UpcomingBills)))
	}

	if n := len(d.BurnDownChart); n > 0 {
		last := d.BurnDownChart[n-1]
		fmt.Fprintf(out, "\n  Projected balance on %s: %s\n", last.Date.Format(domain.DateLayout), cli.FormatMoney(last.Balance))
	}
	return nil
}

func runBills(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	bills, err := s.svc.UpcomingBills(context.Background(), flagAccount, flagBillDays)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(bills) == 0 {
		fmt.Fprintf(out, "\n  No bills in the next %d days.\n", flagBillDays)
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(billsTable(fmt.Sprintf("BILLS  next %dd", flagBillDays), bills)))
	return nil
}

func runBurndown(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	points, err := s.svc.BurnDown(context.Background(), flagAccount, flagBurnDays)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(points))
	for i, p := range points {
		change := ""
		if i > 0 {
			if delta := p.Balance.Sub(points[i-1].Balance); !delta.IsZero() {
				change = cli.FormatMoney(delta)
			}
		}
		rows = append(rows, []string{
			p.Date.Format(domain.DateLayout),
			p.Date.Weekday().String()[:3],
			change,
			cli.FormatMoney(p.Balance),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("BURN-DOWN  next %dd", flagBurnDays),
		Headers: []string{"Date", "Day", "Change", "Balance"},
		Rows:    rows,
	}))
	return nil
}

func billsTable(title string, bills []domain.Occurrence) cli.Table {
	rows := make([][]string, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []string{b.DueDate.Format(domain.DateLayout), b.Name, cli.FormatMoney(b.Amount)})
	}
	return cli.Table{
		Title:   title,
		Headers: []string{"Due", "Name", "Amount"},
		Rows:    rows,
	}
}
