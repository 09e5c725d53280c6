package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
	"github.com/shunichi-ikebuchi/beancounter/pkg/frequency"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

// entryFlags are the flags shared by deposit and bill.
type entryFlags struct {
	date    string
	entered string
	repeat  int
	every   string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Transaction date (YYYY-MM-DD) (default today)")
	cmd.Flags().StringVar(&f.entered, "entered", "", "Entry date (YYYY-MM-DD) (default today)")
	cmd.Flags().IntVar(&f.repeat, "repeat", 1, "Number of occurrences to enter")
	cmd.Flags().StringVar(&f.every, "every", "1w", "Recurrence for --repeat: Nd (days) or Nw (weeks)")
}

// dates returns the transaction dates the flags describe.
func (f *entryFlags) dates(today civil.Date) ([]civil.Date, error) {
	start, err := parseDate(f.date, today)
	if err != nil {
		return nil, err
	}
	if f.repeat < 1 {
		return nil, fmt.Errorf("--repeat must be at least 1, got %d", f.repeat)
	}
	if f.repeat == 1 {
		return []civil.Date{start}, nil
	}

	freq, err := frequency.Parse(f.every)
	if err != nil {
		return nil, err
	}
	return frequency.Take(freq.Since(start), f.repeat), nil
}

var (
	depositFlags entryFlags
	billFlags    entryFlags
)

// depositCmd represents the deposit command.
var depositCmd = &cobra.Command{
	Use:   "deposit ACCOUNT AMOUNT",
	Short: "Enter money coming into an account",
	Long: `Enter a deposit. The account's projected balance grows at once; the
recorded balance follows when the deposit is recorded.

Example:
  beancounter deposit checking 1200 --date 2024-01-25
  beancounter deposit checking 1200 --date 2024-01-25 --repeat 6 --every 4w`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runEntry(&depositFlags, args, func(l *ledger.Ledger, a *ledger.Account, amount decimal.Decimal, date civil.Date, opts ...ledger.TxOption) (ledger.Transaction, error) {
			return l.Deposit(a, amount, date, opts...)
		})
	},
}

// billCmd represents the bill command.
var billCmd = &cobra.Command{
	Use:   "bill ACCOUNT AMOUNT",
	Short: "Enter money going out of an account",
	Long: `Enter a bill. The account's projected balance drops at once; the
recorded balance follows when the bill is recorded.

Example:
  beancounter bill checking 89.99 --date 2024-01-30
  beancounter bill checking 15 --date 2024-01-01 --repeat 4 --every 1w`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runEntry(&billFlags, args, func(l *ledger.Ledger, a *ledger.Account, amount decimal.Decimal, date civil.Date, opts ...ledger.TxOption) (ledger.Transaction, error) {
			return l.Bill(a, amount, date, opts...)
		})
	},
}

func init() {
	depositFlags.register(depositCmd)
	billFlags.register(billCmd)
}

type enterFunc func(l *ledger.Ledger, a *ledger.Account, amount decimal.Decimal, date civil.Date, opts ...ledger.TxOption) (ledger.Transaction, error)

func runEntry(flags *entryFlags, args []string, enter enterFunc) {
	ctx := context.Background()
	amount, err := parseAmount(args[1])
	exitOnError(err, "invalid amount")

	s := openSession(ctx)
	defer s.close()

	account, err := resolveAccount(s.ledger, args[0])
	exitOnError(err, "invalid account")

	today := clock.System{}.Today()
	dates, err := flags.dates(today)
	exitOnError(err, "invalid date")

	var opts []ledger.TxOption
	if flags.entered != "" {
		entered, err := parseDate(flags.entered, today)
		exitOnError(err, "invalid entry date")
		opts = append(opts, ledger.EnteredOn(entered))
	}

	txs, err := enterAll(s.ledger, account, amount, dates, enter, opts...)
	exitOnError(err, "failed to enter transaction")
	s.save(ctx)

	for _, tx := range txs {
		slog.Info("Transaction entered", "kind", tx.Kind(), "id", tx.ID(), "account", account.Name(), "date", tx.Date())
		fmt.Printf("%s %s %s %s %s\n", shortID(tx.ID()), tx.Date(), tx.Kind(), account.Name(), tx.Amount().StringFixed(2))
	}
	fmt.Printf("%s balance: %s (recorded %s)\n", account.Name(),
		account.Balance().StringFixed(2), account.RecordedBalance().StringFixed(2))
}

// enterAll enters one transaction per date. Validation failures surface on
// the first date, before the ledger has changed.
func enterAll(l *ledger.Ledger, a *ledger.Account, amount decimal.Decimal, dates []civil.Date, enter enterFunc, opts ...ledger.TxOption) ([]ledger.Transaction, error) {
	var txs []ledger.Transaction
	for _, date := range dates {
		tx, err := enter(l, a, amount, date, opts...)
		if err != nil {
			return txs, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
