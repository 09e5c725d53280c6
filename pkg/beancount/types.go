// Package beancount provides repository pattern for Beancount file operations.
package beancount

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Flag is a Beancount transaction flag.
type Flag string

const (
	FlagCleared Flag = "*" // all sides recorded by the bank
	FlagPending Flag = "!" // at least one side not yet recorded
)

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      civil.Date
	Flag      Flag
	Payee     string            // Payee name (optional)
	Narration string            // Transaction description
	Tags      []string          // Tags (e.g., ["transfer"])
	Links     []string          // Links (optional)
	Metadata  map[string]string // Metadata key-value pairs
	Postings  []Posting         // Transaction postings
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Account  string            // Account name (e.g., "Assets:Bank:Checking")
	Amount   decimal.Decimal   // Amount (positive for debit, negative for credit)
	Currency string            // Currency code (e.g., "EUR")
	Metadata map[string]string // Posting metadata (optional)
	Comment  string            // Posting comment (optional)
}

// YearMonth returns the transaction's month in YYYY-MM format.
func (t Transaction) YearMonth() string {
	return fmt.Sprintf("%04d-%02d", t.Date.Year, int(t.Date.Month))
}

// Balanced reports whether the postings sum to zero.
func (t Transaction) Balanced() bool {
	sum := decimal.Zero
	for _, p := range t.Postings {
		sum = sum.Add(p.Amount)
	}
	return sum.IsZero()
}
