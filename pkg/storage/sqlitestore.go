package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shunichi-ikebuchi/beancounter/pkg/db"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

const metaSavedAt = "ledger_saved_at"

// SQLiteStore keeps the ledger in the accounts, transactions and
// operations tables. Save replaces every row in one SQL transaction.
type SQLiteStore struct {
	conn  *db.Connection
	owned bool
}

// OpenSQLite opens the SQLite database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{conn: conn, owned: true}, nil
}

// NewSQLiteStore returns a store on an already open connection.
// Close leaves the connection open.
func NewSQLiteStore(conn *db.Connection) *SQLiteStore {
	return &SQLiteStore{conn: conn}
}

// Load reads and restores the ledger.
func (s *SQLiteStore) Load(ctx context.Context, opts ...ledger.Option) (*ledger.Ledger, error) {
	savedAt, err := db.GetMetadata(ctx, s.conn, metaSavedAt)
	if err != nil {
		return nil, err
	}
	if savedAt == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.conn.Path())
	}

	var snap ledger.Snapshot
	if snap.Accounts, err = s.loadAccounts(ctx); err != nil {
		return nil, err
	}
	if snap.Transactions, err = s.loadTransactions(ctx); err != nil {
		return nil, err
	}

	l, err := ledger.Restore(snap, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("Ledger loaded", "path", s.conn.Path(), "saved_at", savedAt)
	return l, nil
}

func (s *SQLiteStore) loadAccounts(ctx context.Context) ([]ledger.AccountSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, initial_balance, balance, recorded_balance
		FROM accounts ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.AccountSnapshot
	for rows.Next() {
		var rec AccountRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.InitialBalance, &rec.Balance, &rec.RecordedBalance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a, err := rec.snapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: account %s: %w", ledger.ErrInvalidSnapshot, rec.ID, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) loadTransactions(ctx context.Context) ([]ledger.TransactionSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT t.id, t.kind, t.amount, t.tx_date, t.entered,
		       o.account_id, o.kind, o.recorded
		FROM transactions t
		JOIN operations o ON o.transaction_id = t.id
		ORDER BY t.seq, o.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var (
		txs  []ledger.TransactionSnapshot
		last string
	)
	for rows.Next() {
		var (
			rec      TransactionRecord
			op       OperationRecord
			recorded sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Amount, &rec.Date, &rec.Entered,
			&op.Account, &op.Kind, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		op.Recorded = recorded.String

		snap, err := op.snapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %w", ledger.ErrInvalidSnapshot, rec.ID, err)
		}
		if rec.ID == last {
			txs[len(txs)-1].Operations = append(txs[len(txs)-1].Operations, snap)
			continue
		}

		ts, err := rec.snapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %w", ledger.ErrInvalidSnapshot, rec.ID, err)
		}
		ts.Operations = []ledger.OperationSnapshot{snap}
		txs = append(txs, ts)
		last = rec.ID
	}
	return txs, rows.Err()
}

// Save replaces the stored ledger.
func (s *SQLiteStore) Save(ctx context.Context, l *ledger.Ledger) error {
	snap := l.Snapshot()

	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"operations", "transactions", "accounts"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for i, a := range snap.Accounts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO accounts (id, seq, name, initial_balance, balance, recorded_balance)
				VALUES (?, ?, ?, ?, ?, ?)
			`, a.ID.String(), i, a.Name, a.InitialBalance.String(), a.Balance.String(), a.RecordedBalance.String())
			if err != nil {
				return fmt.Errorf("failed to insert account %s: %w", a.Name, err)
			}
		}

		for i, t := range snap.Transactions {
			if err := insertTransaction(ctx, tx, i, t); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, db.UpsertMetadataQuery, metaSavedAt, time.Now().UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	slog.Debug("Ledger saved", "path", s.conn.Path(), "transactions", len(snap.Transactions))
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, seq int, t ledger.TransactionSnapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, seq, kind, amount, tx_date, entered)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID.String(), seq, string(t.Kind), t.Amount.String(), t.Date.String(), t.Entered.String())
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
	}

	for pos, op := range t.Operations {
		var recorded sql.NullString
		if op.Recorded != nil {
			recorded = sql.NullString{String: op.Recorded.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO operations (transaction_id, position, account_id, kind, recorded)
			VALUES (?, ?, ?, ?, ?)
		`, t.ID.String(), pos, op.AccountID.String(), string(op.Kind), recorded)
		if err != nil {
			return fmt.Errorf("failed to insert operation %d of %s: %w", pos, t.ID, err)
		}
	}
	return nil
}

// Close closes the connection if the store opened it.
func (s *SQLiteStore) Close() error {
	if s.owned {
		return s.conn.Close()
	}
	return nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*BoltStore)(nil)
)

