package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a named balance holder owned by a Ledger.
//
// Balance and RecordedBalance are cached projections of the ledger's operation
// log. They change only when the ledger enters an operation or an operation is
// recorded.
type Account struct {
	id      uuid.UUID
	name    string
	initial decimal.Decimal

	balance  decimal.Decimal
	recorded decimal.Decimal

	ledger *Ledger
}

// ID returns the account identity used by operations and persistence.
func (a *Account) ID() uuid.UUID {
	return a.id
}

// Name returns the display name. Names are not unique.
func (a *Account) Name() string {
	return a.name
}

// InitialBalance returns the balance the account was created with.
func (a *Account) InitialBalance() decimal.Decimal {
	return a.initial
}

// Balance returns the running balance over all entered operations.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// RecordedBalance returns the balance over recorded operations only.
func (a *Account) RecordedBalance() decimal.Decimal {
	return a.recorded
}

// Operations returns every operation targeting this account, in ledger
// insertion order.
func (a *Account) Operations() []*Operation {
	var ops []*Operation
	for _, tx := range a.ledger.transactions {
		for _, op := range tx.Operations() {
			if op.account == a {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// Equal compares identity, name and the three balances.
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id &&
		a.name == other.name &&
		a.initial.Equal(other.initial) &&
		a.balance.Equal(other.balance) &&
		a.recorded.Equal(other.recorded)
}

func (a *Account) String() string {
	return fmt.Sprintf("Account(%s)", a.name)
}

// enter applies op to the running balance.
func (a *Account) enter(op *Operation) {
	a.project(op, false)
}

// record applies op to the recorded balance.
func (a *Account) record(op *Operation) {
	a.project(op, true)
}

// project is the single place where cached balances move.
func (a *Account) project(op *Operation, recorded bool) {
	if recorded {
		a.recorded = a.recorded.Add(op.BalanceChange())
		return
	}
	a.balance = a.balance.Add(op.BalanceChange())
}
