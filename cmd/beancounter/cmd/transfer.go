package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

var (
	transferDate    string
	transferEntered string
)

// transferCmd represents the transfer command.
var transferCmd = &cobra.Command{
	Use:   "transfer FROM TO AMOUNT",
	Short: "Move money between two accounts",
	Long: `Enter a transfer. Each side is recorded separately with
"beancounter record TXID --side out|in".

Example:
  beancounter transfer checking savings 300 --date 2024-02-01`,
	Args: cobra.ExactArgs(3),
	Run:  runTransfer,
}

func init() {
	transferCmd.Flags().StringVar(&transferDate, "date", "", "Transaction date (YYYY-MM-DD) (default today)")
	transferCmd.Flags().StringVar(&transferEntered, "entered", "", "Entry date (YYYY-MM-DD) (default today)")
}

func runTransfer(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	amount, err := parseAmount(args[2])
	exitOnError(err, "invalid amount")

	today := clock.System{}.Today()
	date, err := parseDate(transferDate, today)
	exitOnError(err, "invalid date")

	var opts []ledger.TxOption
	if transferEntered != "" {
		entered, err := parseDate(transferEntered, today)
		exitOnError(err, "invalid entry date")
		opts = append(opts, ledger.EnteredOn(entered))
	}

	s := openSession(ctx)
	defer s.close()

	from, err := resolveAccount(s.ledger, args[0])
	exitOnError(err, "invalid source account")
	to, err := resolveAccount(s.ledger, args[1])
	exitOnError(err, "invalid destination account")

	tx, err := s.ledger.Transfer(from, to, amount, date, opts...)
	exitOnError(err, "failed to enter transfer")
	s.save(ctx)

	slog.Info("Transfer entered", "id", tx.ID(), "from", from.Name(), "to", to.Name(), "amount", amount)
	fmt.Printf("%s %s transfer %s -> %s %s\n", shortID(tx.ID()), tx.Date(), from.Name(), to.Name(), tx.Amount().StringFixed(2))
}
