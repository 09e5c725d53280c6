package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var accountBalance string

// accountCmd groups account subcommands.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage ledger accounts",
}

// accountAddCmd represents the account add command.
var accountAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add an account",
	Long: `Add an account with an opening balance.

The opening balance counts as both projected and recorded.

Example:
  beancounter account add checking --balance 1000`,
	Args: cobra.ExactArgs(1),
	Run:  runAccountAdd,
}

// accountListCmd represents the account list command.
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with projected and recorded balances",
	Args:  cobra.NoArgs,
	Run:   runAccountList,
}

func init() {
	accountAddCmd.Flags().StringVar(&accountBalance, "balance", "0", "Opening balance")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	balance, err := parseAmount(accountBalance)
	exitOnError(err, "invalid balance")

	s := openSession(ctx)
	defer s.close()

	if _, exists := s.ledger.AccountByName(args[0]); exists {
		slog.Warn("Account name already in use", "name", args[0])
	}

	a := s.ledger.AddAccount(args[0], balance)
	s.save(ctx)

	slog.Info("Account added", "name", a.Name(), "id", a.ID(), "balance", a.Balance())
	fmt.Printf("Added %s (%s) with balance %s\n", a.Name(), a.ID(), a.Balance().StringFixed(2))
}

func runAccountList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := openSession(ctx)
	defer s.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "NAME\tBALANCE\tRECORDED\tPENDING\tID\t")
	for _, a := range s.ledger.Accounts() {
		pending := a.Balance().Sub(a.RecordedBalance())
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			a.Name(),
			a.Balance().StringFixed(2),
			a.RecordedBalance().StringFixed(2),
			pending.StringFixed(2),
			a.ID(),
		)
	}
	w.Flush()
}
