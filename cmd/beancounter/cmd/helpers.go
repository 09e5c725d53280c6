package cmd

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

var (
	errNoMatch   = errors.New("no match")
	errAmbiguous = errors.New("ambiguous")
)

// parseAmount parses a decimal amount such as "89.99". Amounts are kept to
// the cent, so "1.50" and "1.500" are accepted but "0.125" is not.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: at most 2 decimal places", s)
	}
	return d, nil
}

// parseDate parses a YYYY-MM-DD date. An empty string yields fallback.
func parseDate(s string, fallback civil.Date) (civil.Date, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// resolveAccount finds an account by name or ID.
func resolveAccount(l *ledger.Ledger, ref string) (*ledger.Account, error) {
	if a, ok := l.AccountByName(ref); ok {
		return a, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		if a, ok := l.Account(id); ok {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, ref)
}

// resolveTransaction finds a transaction by ID or unique ID prefix.
func resolveTransaction(l *ledger.Ledger, ref string) (ledger.Transaction, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty transaction id: %w", errNoMatch)
	}
	if id, err := uuid.Parse(ref); err == nil {
		if tx, ok := l.Transaction(id); ok {
			return tx, nil
		}
		return nil, fmt.Errorf("transaction %s: %w", ref, errNoMatch)
	}

	var found ledger.Transaction
	for _, tx := range l.Transactions() {
		if !strings.HasPrefix(tx.ID().String(), strings.ToLower(ref)) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("transaction prefix %q: %w", ref, errAmbiguous)
		}
		found = tx
	}
	if found == nil {
		return nil, fmt.Errorf("transaction %q: %w", ref, errNoMatch)
	}
	return found, nil
}

// selectOperations picks the operations of tx that record should confirm.
// side is "out" or "in" for transfers; empty selects every unrecorded side.
func selectOperations(tx ledger.Transaction, side string) ([]*ledger.Operation, error) {
	if t, ok := tx.(*ledger.Transfer); ok {
		switch side {
		case "out":
			return []*ledger.Operation{t.Outgoing()}, nil
		case "in":
			return []*ledger.Operation{t.Incoming()}, nil
		}
	}
	if side != "" && tx.Kind() != ledger.KindTransfer {
		return nil, fmt.Errorf("--side only applies to transfers, %s is a %s", tx.ID(), tx.Kind())
	}
	if side != "" {
		return nil, fmt.Errorf("invalid side %q (expected out or in)", side)
	}

	var ops []*ledger.Operation
	for _, op := range tx.Operations() {
		if !op.IsRecorded() {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", tx.ID(), ledger.ErrAlreadyRecorded)
	}
	return ops, nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
