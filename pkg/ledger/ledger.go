// Package ledger implements the personal finance ledger core: accounts, the
// transaction log, and the balances derived from it.
//
// Every transaction decomposes into operations, each targeting exactly one
// account. The Ledger is the only mutation entry point: Deposit, Bill and
// Transfer validate their input completely, then append the transaction to the
// log and enter each operation into its account's running balance. Recording
// an operation (Operation.Record) moves the account's recorded balance.
//
// A Ledger is not safe for concurrent use. Callers sharing one across
// goroutines must serialize AddAccount, Deposit, Bill, Transfer and
// Operation.Record behind a single lock.
package ledger

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
)

// Ledger owns all accounts and the full transaction history.
type Ledger struct {
	clock clock.Clock

	accounts     []*Account
	accountsByID map[uuid.UUID]*Account

	transactions []Transaction
	txByID       map[uuid.UUID]Transaction
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock that supplies the default entered date.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		clock:        clock.System{},
		accountsByID: make(map[uuid.UUID]*Account),
		txByID:       make(map[uuid.UUID]Transaction),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TxOption configures a single Deposit, Bill or Transfer call.
type TxOption func(*txOptions)

type txOptions struct {
	id      uuid.UUID
	entered civil.Date
}

// EnteredOn sets the date the transaction is entered into the system.
// Without it the ledger's clock supplies today's date.
func EnteredOn(d civil.Date) TxOption {
	return func(o *txOptions) {
		o.entered = d
	}
}

// withID fixes the transaction id; used when replaying a snapshot.
func withID(id uuid.UUID) TxOption {
	return func(o *txOptions) {
		o.id = id
	}
}

func (l *Ledger) txOptions(opts []TxOption) txOptions {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	if o.entered.IsZero() {
		o.entered = l.clock.Today()
	}
	return o
}

// AddAccount creates and registers an account whose initial and running
// balance are both balance. Duplicate names are allowed.
func (l *Ledger) AddAccount(name string, balance decimal.Decimal) *Account {
	return l.addAccount(uuid.New(), name, balance)
}

func (l *Ledger) addAccount(id uuid.UUID, name string, balance decimal.Decimal) *Account {
	a := &Account{
		id:       id,
		name:     name,
		initial:  balance,
		balance:  balance,
		recorded: balance,
		ledger:   l,
	}
	l.accounts = append(l.accounts, a)
	l.accountsByID[id] = a
	return a
}

// Deposit enters a deposit of amount into account.
func (l *Ledger) Deposit(account *Account, amount decimal.Decimal, date civil.Date, opts ...TxOption) (*Deposit, error) {
	if err := l.owns(account); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	o := l.txOptions(opts)
	d, err := newDeposit(o.id, account, amount, date, o.entered)
	if err != nil {
		return nil, fmt.Errorf("deposit to %s: %w", account, err)
	}
	l.append(d)
	return d, nil
}

// Bill enters a bill of amount paid from account.
func (l *Ledger) Bill(account *Account, amount decimal.Decimal, date civil.Date, opts ...TxOption) (*Bill, error) {
	if err := l.owns(account); err != nil {
		return nil, fmt.Errorf("bill: %w", err)
	}
	o := l.txOptions(opts)
	b, err := newBill(o.id, account, amount, date, o.entered)
	if err != nil {
		return nil, fmt.Errorf("bill from %s: %w", account, err)
	}
	l.append(b)
	return b, nil
}

// Transfer enters a transfer of amount from one account to another.
// Both accounts must belong to the ledger and must differ.
func (l *Ledger) Transfer(from, to *Account, amount decimal.Decimal, date civil.Date, opts ...TxOption) (*Transfer, error) {
	if err := l.owns(from); err != nil {
		return nil, fmt.Errorf("transfer source: %w", err)
	}
	if err := l.owns(to); err != nil {
		return nil, fmt.Errorf("transfer destination: %w", err)
	}
	o := l.txOptions(opts)
	t, err := newTransfer(o.id, from, to, amount, date, o.entered)
	if err != nil {
		return nil, fmt.Errorf("transfer %s -> %s: %w", from, to, err)
	}
	l.append(t)
	return t, nil
}

// append logs a fully constructed transaction and enters its operations.
// Nothing here can fail, so the log and the balances never diverge.
func (l *Ledger) append(tx Transaction) {
	l.transactions = append(l.transactions, tx)
	l.txByID[tx.ID()] = tx
	for _, op := range tx.Operations() {
		op.account.enter(op)
	}
}

func (l *Ledger) owns(a *Account) error {
	if a == nil {
		return fmt.Errorf("%w: nil account", ErrForeignAccount)
	}
	if a.ledger != l {
		return fmt.Errorf("%w: %s", ErrForeignAccount, a)
	}
	return nil
}

// Accounts returns the accounts in creation order.
func (l *Ledger) Accounts() []*Account {
	out := make([]*Account, len(l.accounts))
	copy(out, l.accounts)
	return out
}

// Transactions returns the log in entry order.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Account looks up an account by id.
func (l *Ledger) Account(id uuid.UUID) (*Account, bool) {
	a, ok := l.accountsByID[id]
	return a, ok
}

// AccountByName returns the first account created with name.
func (l *Ledger) AccountByName(name string) (*Account, bool) {
	for _, a := range l.accounts {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

// Transaction looks up a transaction by id.
func (l *Ledger) Transaction(id uuid.UUID) (Transaction, bool) {
	tx, ok := l.txByID[id]
	return tx, ok
}

// Equal reports whether both ledgers hold equal accounts and equal
// transactions in the same order.
func (l *Ledger) Equal(other *Ledger) bool {
	if l == nil || other == nil {
		return l == other
	}
	if len(l.accounts) != len(other.accounts) || len(l.transactions) != len(other.transactions) {
		return false
	}
	for i := range l.accounts {
		if !l.accounts[i].Equal(other.accounts[i]) {
			return false
		}
	}
	for i := range l.transactions {
		if !l.transactions[i].Equal(other.transactions[i]) {
			return false
		}
	}
	return true
}
