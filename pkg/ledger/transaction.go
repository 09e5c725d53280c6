package ledger

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxKind identifies a transaction variant.
type TxKind string

const (
	KindDeposit  TxKind = "deposit"
	KindBill     TxKind = "bill"
	KindTransfer TxKind = "transfer"
)

// Transaction is a dated financial event made of one or more operations.
// Implementations are *Deposit, *Bill and *Transfer.
type Transaction interface {
	ID() uuid.UUID
	Kind() TxKind
	Amount() decimal.Decimal
	// Date is the effective date of the transaction.
	Date() civil.Date
	// Entered is the date the transaction was added to the ledger.
	Entered() civil.Date
	// Operations returns the operations in construction order.
	Operations() []*Operation
	// Recorded returns the date the whole transaction was confirmed.
	Recorded() (civil.Date, bool)
	// Equal compares variant, amount, dates and operations pairwise.
	Equal(other Transaction) bool
}

// base holds the fields shared by all variants.
type base struct {
	id      uuid.UUID
	amount  decimal.Decimal
	date    civil.Date
	entered civil.Date
	ops     []*Operation
}

func newBase(id uuid.UUID, amount decimal.Decimal, date, entered civil.Date) (base, error) {
	if !amount.IsPositive() {
		return base{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if !date.IsValid() {
		return base{}, fmt.Errorf("%w: transaction date %s", ErrInvalidDate, date)
	}
	if !entered.IsValid() {
		return base{}, fmt.Errorf("%w: entered date %s", ErrInvalidDate, entered)
	}
	return base{id: id, amount: amount, date: date, entered: entered}, nil
}

func (b *base) ID() uuid.UUID           { return b.id }
func (b *base) Amount() decimal.Decimal { return b.amount }
func (b *base) Date() civil.Date        { return b.date }
func (b *base) Entered() civil.Date     { return b.entered }

func (b *base) Operations() []*Operation {
	out := make([]*Operation, len(b.ops))
	copy(out, b.ops)
	return out
}

func (b *base) equal(other *base) bool {
	if !b.amount.Equal(other.amount) || b.date != other.date || b.entered != other.entered {
		return false
	}
	if len(b.ops) != len(other.ops) {
		return false
	}
	for i := range b.ops {
		if !b.ops[i].Equal(other.ops[i]) {
			return false
		}
	}
	return true
}

// Deposit adds money to one account through a single credit operation.
type Deposit struct {
	base
}

func newDeposit(id uuid.UUID, account *Account, amount decimal.Decimal, date, entered civil.Date) (*Deposit, error) {
	b, err := newBase(id, amount, date, entered)
	if err != nil {
		return nil, err
	}
	d := &Deposit{base: b}
	d.ops = []*Operation{newOperation(d, account, Credit, amount)}
	return d, nil
}

func (d *Deposit) Kind() TxKind { return KindDeposit }

// Operation returns the single credit operation.
func (d *Deposit) Operation() *Operation { return d.ops[0] }

func (d *Deposit) Recorded() (civil.Date, bool) { return d.ops[0].Recorded() }

func (d *Deposit) Equal(other Transaction) bool {
	o, ok := other.(*Deposit)
	if !ok || d == nil || o == nil {
		return ok && d == o
	}
	return d.equal(&o.base)
}

// Bill pays money out of one account through a single debit operation.
type Bill struct {
	base
}

func newBill(id uuid.UUID, account *Account, amount decimal.Decimal, date, entered civil.Date) (*Bill, error) {
	b, err := newBase(id, amount, date, entered)
	if err != nil {
		return nil, err
	}
	bill := &Bill{base: b}
	bill.ops = []*Operation{newOperation(bill, account, Debit, amount)}
	return bill, nil
}

func (b *Bill) Kind() TxKind { return KindBill }

// Operation returns the single debit operation.
func (b *Bill) Operation() *Operation { return b.ops[0] }

func (b *Bill) Recorded() (civil.Date, bool) { return b.ops[0].Recorded() }

func (b *Bill) Equal(other Transaction) bool {
	o, ok := other.(*Bill)
	if !ok || b == nil || o == nil {
		return ok && b == o
	}
	return b.equal(&o.base)
}

// Transfer moves money between two accounts. The outgoing debit is the first
// operation and the incoming credit the second; each side clears at its own bank.
type Transfer struct {
	base
}

func newTransfer(id uuid.UUID, from, to *Account, amount decimal.Decimal, date, entered civil.Date) (*Transfer, error) {
	if from == to {
		return nil, fmt.Errorf("%w: %s", ErrSelfTransfer, from)
	}
	b, err := newBase(id, amount, date, entered)
	if err != nil {
		return nil, err
	}
	t := &Transfer{base: b}
	t.ops = []*Operation{
		newOperation(t, from, Debit, amount),
		newOperation(t, to, Credit, amount),
	}
	return t, nil
}

func (t *Transfer) Kind() TxKind { return KindTransfer }

// Outgoing returns the debit on the source account.
func (t *Transfer) Outgoing() *Operation { return t.ops[0] }

// Incoming returns the credit on the destination account.
func (t *Transfer) Incoming() *Operation { return t.ops[1] }

// Recorded returns the later of the two sides' recorded dates, and false
// unless both sides are recorded.
func (t *Transfer) Recorded() (civil.Date, bool) {
	out, outOK := t.Outgoing().Recorded()
	in, inOK := t.Incoming().Recorded()
	if !outOK || !inOK {
		return civil.Date{}, false
	}
	if in.After(out) {
		return in, true
	}
	return out, true
}

func (t *Transfer) Equal(other Transaction) bool {
	o, ok := other.(*Transfer)
	if !ok || t == nil || o == nil {
		return ok && t == o
	}
	return t.equal(&o.base)
}
