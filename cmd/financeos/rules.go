package main

import (
	"context"
	"fmt"

	"github.com/boddenberg/financeos-bfa-go/internal/cli"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage recurring rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the account's rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Create rules from a TOML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

var rulesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <rule-id>",
	Short: "Stop a rule from producing bills",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDeactivate,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd, rulesImportCmd, rulesDeactivateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	rules, err := s.svc.ListRules(context.Background(), flagAccount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		fmt.Fprintln(out, "\n  No rules.")
		return nil
	}

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		end, active := "", "yes"
		if r.EndDate != nil {
			end = r.EndDate.Format(domain.DateLayout)
		}
		if !r.IsActive {
			active = "no"
		}
		rows = append(rows, []string{
			r.Name, string(r.Frequency), cli.FormatMoney(r.Amount),
			r.StartDate.Format(domain.DateLayout), end, active, r.ID,
		})
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   "RULES  " + flagAccount,
		Headers: []string{"Name", "Frequency", "Amount", "Start", "End", "Active", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	reqs, err := cli.LoadRuleFile(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	// Nothing is stored unless every entry validates.
	out := cmd.OutOrStdout()
	created, err := s.svc.ImportRules(context.Background(), flagAccount, reqs)
	for _, rule := range created {
		fmt.Fprintf(out, "  + %s  %s  %s\n", rule.ID, rule.Name, cli.FormatMoney(rule.Amount))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n  Imported %d rules into %s.\n", len(created), flagAccount)
	return nil
}

func runRulesDeactivate(cmd *cobra.Command, args []string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.svc.DeactivateRule(context.Background(), flagAccount, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  Rule %s deactivated.\n", args[0])
	return nil
}
