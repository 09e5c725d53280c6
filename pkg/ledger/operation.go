package ledger

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind is the side of an operation.
type Kind string

const (
	// Debit operations decrease the target account balance.
	Debit Kind = "debit"
	// Credit operations increase the target account balance.
	Credit Kind = "credit"
)

// Valid reports whether k is Debit or Credit.
func (k Kind) Valid() bool {
	return k == Debit || k == Credit
}

// Operation is a single signed balance effect on one account. It belongs to
// exactly one transaction and is recorded (bank-confirmed) independently of the
// transaction's other operations.
type Operation struct {
	tx      Transaction
	account *Account
	kind    Kind
	change  decimal.Decimal

	recorded   civil.Date
	isRecorded bool
}

func newOperation(tx Transaction, account *Account, kind Kind, amount decimal.Decimal) *Operation {
	change := amount
	if kind == Debit {
		change = amount.Neg()
	}
	return &Operation{tx: tx, account: account, kind: kind, change: change}
}

// Transaction returns the transaction the operation belongs to.
func (o *Operation) Transaction() Transaction {
	return o.tx
}

// Account returns the account the operation affects.
func (o *Operation) Account() *Account {
	return o.account
}

// Kind returns Debit or Credit.
func (o *Operation) Kind() Kind {
	return o.kind
}

// BalanceChange returns the signed effect on the account balance:
// +amount for credits, -amount for debits.
func (o *Operation) BalanceChange() decimal.Decimal {
	return o.change
}

// Recorded returns the date the operation was confirmed by the bank.
// The boolean is false while the operation is unrecorded.
func (o *Operation) Recorded() (civil.Date, bool) {
	return o.recorded, o.isRecorded
}

// IsRecorded reports whether the operation has been recorded.
func (o *Operation) IsRecorded() bool {
	return o.isRecorded
}

// Record marks the operation as confirmed on date and adds its balance change
// to the account's recorded balance. An operation can be recorded only once;
// a second call returns ErrAlreadyRecorded and changes nothing.
func (o *Operation) Record(date civil.Date) error {
	if o.isRecorded {
		return fmt.Errorf("%w: %s operation on %s was recorded on %s",
			ErrAlreadyRecorded, o.kind, o.account, o.recorded)
	}
	if !date.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	o.recorded = date
	o.isRecorded = true
	o.account.record(o)
	return nil
}

// Equal compares kind, balance change, recorded state and the identity of the
// target account. The owning transaction is not compared.
func (o *Operation) Equal(other *Operation) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.kind != other.kind || !o.change.Equal(other.change) {
		return false
	}
	if o.isRecorded != other.isRecorded || o.recorded != other.recorded {
		return false
	}
	return o.account.ID() == other.account.ID()
}
