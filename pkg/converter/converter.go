package converter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancounter/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

// MetaRecorded is the posting metadata key holding the bank record date.
const MetaRecorded = "recorded"

// Converter converts ledger transactions to Beancount format.
type Converter struct {
	mapper   *Mapper
	currency string
}

// NewConverter creates a new Converter.
func NewConverter(mapper *Mapper, currency string) *Converter {
	if currency == "" {
		currency = "EUR"
	}
	return &Converter{
		mapper:   mapper,
		currency: currency,
	}
}

// Convert converts a ledger transaction to a Beancount transaction.
// The flag is cleared only when every side has been recorded.
func (c *Converter) Convert(tx ledger.Transaction) beancount.Transaction {
	flag := beancount.FlagPending
	if _, ok := tx.Recorded(); ok {
		flag = beancount.FlagCleared
	}

	txn := beancount.Transaction{
		Date:      tx.Date(),
		Flag:      flag,
		Narration: buildNarration(tx),
		Tags:      []string{string(tx.Kind())},
		Metadata: map[string]string{
			"id":      tx.ID().String(),
			"entered": tx.Entered().String(),
		},
	}

	for _, op := range tx.Operations() {
		txn.Postings = append(txn.Postings, c.operationPosting(op))
	}

	// Deposits and bills balance against a counter account.
	switch tx.Kind() {
	case ledger.KindDeposit:
		txn.Postings = append(txn.Postings, beancount.Posting{
			Account:  c.mapper.IncomeAccount(),
			Amount:   tx.Amount().Neg(),
			Currency: c.currency,
		})
	case ledger.KindBill:
		txn.Postings = append(txn.Postings, beancount.Posting{
			Account:  c.mapper.ExpensesAccount(),
			Amount:   tx.Amount(),
			Currency: c.currency,
		})
	}

	return txn
}

func (c *Converter) operationPosting(op *ledger.Operation) beancount.Posting {
	p := beancount.Posting{
		Account:  c.mapper.GetBeancountAccount(op.Account().Name()),
		Amount:   op.BalanceChange(),
		Currency: c.currency,
	}
	if d, ok := op.Recorded(); ok {
		p.Metadata = map[string]string{MetaRecorded: d.String()}
	}
	return p
}

// FormatTransaction formats a Beancount transaction as a string.
func (c *Converter) FormatTransaction(txn beancount.Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date.String())
	sb.WriteString(" ")
	sb.WriteString(string(txn.Flag))
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" %q", txn.Narration))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	for _, link := range txn.Links {
		sb.WriteString(" ^")
		sb.WriteString(link)
	}
	sb.WriteString("\n")
	writeMetadata(&sb, "  ", txn.Metadata)

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		// Right-align amount (typical Beancount style)
		amount := formatAmount(posting.Amount)
		spaces := max(1, 60-len(posting.Account)-len(amount))
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(amount)
		sb.WriteString(" ")
		sb.WriteString(posting.Currency)

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}

		sb.WriteString("\n")
		writeMetadata(&sb, "    ", posting.Metadata)
	}

	return sb.String()
}

// Helper functions

// formatAmount pads to cents but never rounds away sub-cent digits.
func formatAmount(d decimal.Decimal) string {
	if !d.Equal(d.Round(2)) {
		return d.String()
	}
	return d.StringFixed(2)
}

func writeMetadata(sb *strings.Builder, indent string, meta map[string]string) {
	for _, key := range slices.Sorted(maps.Keys(meta)) {
		sb.WriteString(fmt.Sprintf("%s%s: %q\n", indent, key, meta[key]))
	}
}

func buildNarration(tx ledger.Transaction) string {
	switch t := tx.(type) {
	case *ledger.Deposit:
		return "Deposit to " + t.Operation().Account().Name()
	case *ledger.Bill:
		return "Bill from " + t.Operation().Account().Name()
	case *ledger.Transfer:
		return fmt.Sprintf("Transfer %s to %s", t.Outgoing().Account().Name(), t.Incoming().Account().Name())
	}
	return string(tx.Kind())
}
