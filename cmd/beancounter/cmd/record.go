package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
)

var (
	recordSide string
	recordDate string
)

// recordCmd represents the record command.
var recordCmd = &cobra.Command{
	Use:   "record TXID",
	Short: "Mark a transaction as recorded by the bank",
	Long: `Mark a transaction, or one side of a transfer, as recorded by the
bank on the given date. TXID may be a unique prefix of the ID.

Without --side every unrecorded side is recorded.

Example:
  beancounter record 3f2a9c1e --date 2024-02-03
  beancounter record 3f2a9c1e --side in --date 2024-02-05`,
	Args: cobra.ExactArgs(1),
	Run:  runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordSide, "side", "", "Transfer side to record: out or in")
	recordCmd.Flags().StringVar(&recordDate, "date", "", "Date the bank recorded it (YYYY-MM-DD) (default today)")
}

func runRecord(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	date, err := parseDate(recordDate, clock.System{}.Today())
	exitOnError(err, "invalid date")

	s := openSession(ctx)
	defer s.close()

	tx, err := resolveTransaction(s.ledger, args[0])
	exitOnError(err, "invalid transaction")

	ops, err := selectOperations(tx, recordSide)
	exitOnError(err, "nothing to record")

	for _, op := range ops {
		exitOnError(op.Record(date), "failed to record")
		slog.Info("Operation recorded", "transaction", tx.ID(), "account", op.Account().Name(), "kind", op.Kind(), "date", date)
	}
	s.save(ctx)

	for _, op := range ops {
		a := op.Account()
		fmt.Printf("Recorded %s on %s: %s recorded balance %s\n",
			op.Kind(), date, a.Name(), a.RecordedBalance().StringFixed(2))
	}
}
