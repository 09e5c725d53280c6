package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

var historyAccount string

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List entered transactions",
	Long: `List transactions in the order they were entered, or the operations
of one account with --account.

Example:
  beancounter history
  beancounter history --account checking`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyAccount, "account", "", "Only show operations of this account")
}

func runHistory(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := openSession(ctx)
	defer s.close()

	if historyAccount == "" {
		writeTransactions(os.Stdout, s.ledger.Transactions())
		return
	}

	a, err := resolveAccount(s.ledger, historyAccount)
	exitOnError(err, "invalid account")
	writeOperations(os.Stdout, a)
}

func writeTransactions(out io.Writer, txs []ledger.Transaction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tENTERED\tKIND\tACCOUNTS\tAMOUNT\tRECORDED")
	for _, tx := range txs {
		var names []string
		for _, op := range tx.Operations() {
			names = append(names, op.Account().Name())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(tx.ID()),
			tx.Date(),
			tx.Entered(),
			tx.Kind(),
			strings.Join(names, " -> "),
			tx.Amount().StringFixed(2),
			recordedLabel(tx),
		)
	}
	w.Flush()
}

func writeOperations(out io.Writer, a *ledger.Account) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tKIND\tCHANGE\tRECORDED")
	for _, op := range a.Operations() {
		recorded := "-"
		if d, ok := op.Recorded(); ok {
			recorded = d.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(op.Transaction().ID()),
			op.Transaction().Date(),
			op.Kind(),
			op.BalanceChange().StringFixed(2),
			recorded,
		)
	}
	fmt.Fprintf(w, "\t\tbalance\t%s\t%s\n", a.Balance().StringFixed(2), a.RecordedBalance().StringFixed(2))
	w.Flush()
}

// recordedLabel shows the recorded date, or how far recording has got.
func recordedLabel(tx ledger.Transaction) string {
	if d, ok := tx.Recorded(); ok {
		return d.String()
	}
	ops := tx.Operations()
	done := 0
	for _, op := range ops {
		if op.IsRecorded() {
			done++
		}
	}
	if done == 0 {
		return "pending"
	}
	return fmt.Sprintf("partial %d/%d", done, len(ops))
}
