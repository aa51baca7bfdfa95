package main

import (
	"context"
	"fmt"

	"github.com/boddenberg/financeos-bfa-go/internal/cli"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagTxDate        string
	flagTxAmount      string
	flagTxDescription string
	flagTxMerchant    string
	flagTxStatus      string
	flagTxFrom        string
	flagTxTo          string
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Record and list ledger transactions",
}

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction (positive amounts are credits)",
	Args:  cobra.NoArgs,
	RunE:  runTxAdd,
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions in a date range",
	Args:  cobra.NoArgs,
	RunE:  runTxList,
}

func init() {
	txAddCmd.Flags().StringVar(&flagTxDate, "date", "", "Transaction date (YYYY-MM-DD)")
	txAddCmd.Flags().StringVar(&flagTxAmount, "amount", "", "Signed amount, e.g. -42.10")
	txAddCmd.Flags().StringVar(&flagTxDescription, "description", "", "Description")
	txAddCmd.Flags().StringVar(&flagTxMerchant, "merchant", "", "Merchant")
	txAddCmd.Flags().StringVar(&flagTxStatus, "status", domain.TransactionStatusReal, "REAL or GHOST")
	_ = txAddCmd.MarkFlagRequired("date")
	_ = txAddCmd.MarkFlagRequired("amount")

	txListCmd.Flags().StringVar(&flagTxFrom, "from", "", "First date (default 30 days ago)")
	txListCmd.Flags().StringVar(&flagTxTo, "to", "", "Last date (default today)")

	txCmd.AddCommand(txAddCmd, txListCmd)
	rootCmd.AddCommand(txCmd)
}

func runTxAdd(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(flagTxAmount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", flagTxAmount, err)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	tx, err := s.svc.RecordTransaction(context.Background(), flagAccount, &domain.TransactionRequest{
		Date:        flagTxDate,
		Amount:      amount,
		Description: flagTxDescription,
		Merchant:    flagTxMerchant,
		Status:      flagTxStatus,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  Recorded %s  %s  %s (%s)\n",
		tx.Date.Format(domain.DateLayout), cli.FormatMoney(tx.Amount), tx.Description, tx.Status)
	return nil
}

func runTxList(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := s.svc.ListTransactions(context.Background(), flagAccount, flagTxFrom, flagTxTo)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(txs) == 0 {
		fmt.Fprintln(out, "\n  No transactions.")
		return nil
	}

	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []string{
			t.Date.Format(domain.DateLayout), t.Description, t.Merchant, t.Status, cli.FormatMoney(t.Amount),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   "TRANSACTIONS  " + flagAccount,
		Headers: []string{"Date", "Description", "Merchant", "Status", "Amount"},
		Rows:    rows,
	}))
	return nil
}
