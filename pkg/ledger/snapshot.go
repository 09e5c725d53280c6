package ledger

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a format-neutral copy of a ledger's full state. Persistence
// backends translate it to and from their own encoding.
type Snapshot struct {
	Accounts     []AccountSnapshot
	Transactions []TransactionSnapshot
}

// AccountSnapshot is the saved state of one account.
type AccountSnapshot struct {
	ID              uuid.UUID
	Name            string
	InitialBalance  decimal.Decimal
	Balance         decimal.Decimal
	RecordedBalance decimal.Decimal
}

// TransactionSnapshot is the saved state of one transaction.
type TransactionSnapshot struct {
	ID         uuid.UUID
	Kind       TxKind
	Amount     decimal.Decimal
	Date       civil.Date
	Entered    civil.Date
	Operations []OperationSnapshot
}

// OperationSnapshot is the saved state of one operation.
// Recorded is nil while the operation is unrecorded.
type OperationSnapshot struct {
	AccountID uuid.UUID
	Kind      Kind
	Recorded  *civil.Date
}

// Snapshot copies the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Accounts:     make([]AccountSnapshot, 0, len(l.accounts)),
		Transactions: make([]TransactionSnapshot, 0, len(l.transactions)),
	}
	for _, a := range l.accounts {
		s.Accounts = append(s.Accounts, AccountSnapshot{
			ID:              a.id,
			Name:            a.name,
			InitialBalance:  a.initial,
			Balance:         a.balance,
			RecordedBalance: a.recorded,
		})
	}
	for _, tx := range l.transactions {
		ts := TransactionSnapshot{
			ID:      tx.ID(),
			Kind:    tx.Kind(),
			Amount:  tx.Amount(),
			Date:    tx.Date(),
			Entered: tx.Entered(),
		}
		for _, op := range tx.Operations() {
			snap := OperationSnapshot{AccountID: op.account.id, Kind: op.kind}
			if d, ok := op.Recorded(); ok {
				snap.Recorded = &d
			}
			ts.Operations = append(ts.Operations, snap)
		}
		s.Transactions = append(s.Transactions, ts)
	}
	return s
}

// Restore rebuilds a ledger from s. The log is replayed through the same
// enter and record path used by live mutations, and the saved balances are
// then checked against the replayed ones.
func Restore(s Snapshot, opts ...Option) (*Ledger, error) {
	l := New(opts...)

	for _, as := range s.Accounts {
		if _, dup := l.accountsByID[as.ID]; dup || as.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: duplicate or empty account id %q", ErrInvalidSnapshot, as.ID)
		}
		l.addAccount(as.ID, as.Name, as.InitialBalance)
	}

	for i, ts := range s.Transactions {
		if err := l.replay(ts); err != nil {
			return nil, fmt.Errorf("%w: transaction %d (%s): %w", ErrInvalidSnapshot, i, ts.ID, err)
		}
	}

	for _, as := range s.Accounts {
		a := l.accountsByID[as.ID]
		if !a.balance.Equal(as.Balance) {
			return nil, fmt.Errorf("%w: %s balance %s, log gives %s", ErrInvalidSnapshot, a, as.Balance, a.balance)
		}
		if !a.recorded.Equal(as.RecordedBalance) {
			return nil, fmt.Errorf("%w: %s recorded balance %s, log gives %s",
				ErrInvalidSnapshot, a, as.RecordedBalance, a.recorded)
		}
	}
	return l, nil
}

var errOperationShape = errors.New("operations do not match transaction kind")

func (l *Ledger) replay(ts TransactionSnapshot) error {
	if _, dup := l.txByID[ts.ID]; dup || ts.ID == uuid.Nil {
		return errors.New("duplicate or empty transaction id")
	}

	accounts := make([]*Account, len(ts.Operations))
	for i, snap := range ts.Operations {
		a, ok := l.accountsByID[snap.AccountID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, snap.AccountID)
		}
		accounts[i] = a
	}

	opts := []TxOption{withID(ts.ID), EnteredOn(ts.Entered)}
	var (
		tx  Transaction
		err error
	)
	switch ts.Kind {
	case KindDeposit:
		if !shaped(ts.Operations, Credit) {
			return errOperationShape
		}
		tx, err = l.Deposit(accounts[0], ts.Amount, ts.Date, opts...)
	case KindBill:
		if !shaped(ts.Operations, Debit) {
			return errOperationShape
		}
		tx, err = l.Bill(accounts[0], ts.Amount, ts.Date, opts...)
	case KindTransfer:
		if !shaped(ts.Operations, Debit, Credit) {
			return errOperationShape
		}
		tx, err = l.Transfer(accounts[0], accounts[1], ts.Amount, ts.Date, opts...)
	default:
		return fmt.Errorf("unknown transaction kind %q", ts.Kind)
	}
	if err != nil {
		return err
	}

	ops := tx.Operations()
	for i, snap := range ts.Operations {
		if snap.Recorded == nil {
			continue
		}
		if err := ops[i].Record(*snap.Recorded); err != nil {
			return err
		}
	}
	return nil
}

func shaped(ops []OperationSnapshot, kinds ...Kind) bool {
	if len(ops) != len(kinds) {
		return false
	}
	for i, k := range kinds {
		if ops[i].Kind != k {
			return false
		}
	}
	return true
}
