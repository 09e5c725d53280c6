package storage

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

// DocumentVersion is the current document layout version.
const DocumentVersion = 1

// Meta describes a saved document.
type Meta struct {
	Storage   string    `json:"storage" yaml:"storage"`
	Version   int       `json:"version" yaml:"version"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// Document is the serialized form of a ledger used by the file and bolt
// backends. Amounts and dates are kept as strings so no precision is lost
// and files stay readable.
type Document struct {
	Meta         Meta                `json:"_meta" yaml:"_meta"`
	Accounts     []AccountRecord     `json:"accounts" yaml:"accounts"`
	Transactions []TransactionRecord `json:"transactions" yaml:"transactions"`
}

// AccountRecord is the serialized form of an account.
type AccountRecord struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	InitialBalance  string `json:"initial_balance" yaml:"initial_balance"`
	Balance         string `json:"balance" yaml:"balance"`
	RecordedBalance string `json:"recorded_balance" yaml:"recorded_balance"`
}

// TransactionRecord is the serialized form of a transaction.
type TransactionRecord struct {
	ID         string            `json:"id" yaml:"id"`
	Kind       string            `json:"kind" yaml:"kind"`
	Amount     string            `json:"amount" yaml:"amount"`
	Date       string            `json:"date" yaml:"date"`
	Entered    string            `json:"entered" yaml:"entered"`
	Operations []OperationRecord `json:"operations" yaml:"operations"`
}

// OperationRecord is the serialized form of an operation.
// Recorded is empty while the operation is unrecorded.
type OperationRecord struct {
	Account  string `json:"account" yaml:"account"`
	Kind     string `json:"kind" yaml:"kind"`
	Recorded string `json:"recorded,omitempty" yaml:"recorded,omitempty"`
}

// NewDocument converts a snapshot to its serialized form.
func NewDocument(s ledger.Snapshot, storage string) Document {
	doc := Document{
		Meta: Meta{
			Storage:   storage,
			Version:   DocumentVersion,
			Timestamp: time.Now().UTC(),
		},
		Accounts:     make([]AccountRecord, 0, len(s.Accounts)),
		Transactions: make([]TransactionRecord, 0, len(s.Transactions)),
	}
	for _, a := range s.Accounts {
		doc.Accounts = append(doc.Accounts, AccountRecord{
			ID:              a.ID.String(),
			Name:            a.Name,
			InitialBalance:  a.InitialBalance.String(),
			Balance:         a.Balance.String(),
			RecordedBalance: a.RecordedBalance.String(),
		})
	}
	for _, t := range s.Transactions {
		rec := TransactionRecord{
			ID:      t.ID.String(),
			Kind:    string(t.Kind),
			Amount:  t.Amount.String(),
			Date:    t.Date.String(),
			Entered: t.Entered.String(),
		}
		for _, op := range t.Operations {
			or := OperationRecord{Account: op.AccountID.String(), Kind: string(op.Kind)}
			if op.Recorded != nil {
				or.Recorded = op.Recorded.String()
			}
			rec.Operations = append(rec.Operations, or)
		}
		doc.Transactions = append(doc.Transactions, rec)
	}
	return doc
}

// Snapshot parses the document back into a snapshot.
func (d Document) Snapshot() (ledger.Snapshot, error) {
	if d.Meta.Version > DocumentVersion {
		return ledger.Snapshot{}, fmt.Errorf("unsupported document version %d", d.Meta.Version)
	}

	var s ledger.Snapshot
	for i, a := range d.Accounts {
		as, err := a.snapshot()
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("account %d: %w", i, err)
		}
		s.Accounts = append(s.Accounts, as)
	}
	for i, t := range d.Transactions {
		ts, err := t.snapshot()
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		s.Transactions = append(s.Transactions, ts)
	}
	return s, nil
}

func (a AccountRecord) snapshot() (ledger.AccountSnapshot, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return ledger.AccountSnapshot{}, fmt.Errorf("invalid id: %w", err)
	}
	var amounts [3]decimal.Decimal
	for i, s := range []string{a.InitialBalance, a.Balance, a.RecordedBalance} {
		if amounts[i], err = decimal.NewFromString(s); err != nil {
			return ledger.AccountSnapshot{}, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	return ledger.AccountSnapshot{
		ID:              id,
		Name:            a.Name,
		InitialBalance:  amounts[0],
		Balance:         amounts[1],
		RecordedBalance: amounts[2],
	}, nil
}

func (t TransactionRecord) snapshot() (ledger.TransactionSnapshot, error) {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return ledger.TransactionSnapshot{}, fmt.Errorf("invalid id: %w", err)
	}
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return ledger.TransactionSnapshot{}, fmt.Errorf("invalid amount %q: %w", t.Amount, err)
	}
	date, err := civil.ParseDate(t.Date)
	if err != nil {
		return ledger.TransactionSnapshot{}, err
	}
	entered, err := civil.ParseDate(t.Entered)
	if err != nil {
		return ledger.TransactionSnapshot{}, err
	}

	ts := ledger.TransactionSnapshot{
		ID:      id,
		Kind:    ledger.TxKind(t.Kind),
		Amount:  amount,
		Date:    date,
		Entered: entered,
	}
	for _, op := range t.Operations {
		snap, err := op.snapshot()
		if err != nil {
			return ledger.TransactionSnapshot{}, err
		}
		ts.Operations = append(ts.Operations, snap)
	}
	return ts, nil
}

func (o OperationRecord) snapshot() (ledger.OperationSnapshot, error) {
	id, err := uuid.Parse(o.Account)
	if err != nil {
		return ledger.OperationSnapshot{}, fmt.Errorf("invalid account id: %w", err)
	}
	snap := ledger.OperationSnapshot{AccountID: id, Kind: ledger.Kind(o.Kind)}
	if o.Recorded != "" {
		d, err := civil.ParseDate(o.Recorded)
		if err != nil {
			return ledger.OperationSnapshot{}, err
		}
		snap.Recorded = &d
	}
	return snap, nil
}

// restore parses d and replays it into a ledger.
func (d Document) restore(opts ...ledger.Option) (*ledger.Ledger, error) {
	s, err := d.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrInvalidSnapshot, err)
	}
	return ledger.Restore(s, opts...)
}
