package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ExportRecord represents an export history record.
type ExportRecord struct {
	ID            int64
	TransactionID string
	Kind          string
	Date          string
	Amount        string
	Flag          string
	BeancountFile string
	ExportedAt    time.Time
}

// ExportHistory manages export history operations.
type ExportHistory struct {
	conn *Connection
}

// NewExportHistory creates a new ExportHistory instance.
func NewExportHistory(conn *Connection) *ExportHistory {
	return &ExportHistory{conn: conn}
}

const upsertExportQuery = `
	INSERT INTO export_history (transaction_id, kind, tx_date, amount, flag, beancount_file)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(transaction_id) DO UPDATE SET
		kind = excluded.kind,
		tx_date = excluded.tx_date,
		amount = excluded.amount,
		flag = excluded.flag,
		beancount_file = excluded.beancount_file,
		exported_at = CURRENT_TIMESTAMP
`

// RecordExports records records in one database transaction. A record for
// an already exported transaction is updated.
//
// If write is non-nil it runs after the rows are inserted and before the
// commit, so a failed write leaves no history behind.
func (h *ExportHistory) RecordExports(ctx context.Context, records []ExportRecord, write func() error) error {
	args := make([][]any, len(records))
	for i, r := range records {
		args[i] = []any{r.TransactionID, r.Kind, r.Date, r.Amount, r.Flag, r.BeancountFile}
	}

	return h.conn.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, upsertExportQuery, args); err != nil {
			return fmt.Errorf("failed to record export: %w", err)
		}
		if write == nil {
			return nil
		}
		return write()
	})
}

// GetExportRecord retrieves an export record by transaction ID.
// It returns nil if the transaction was never exported.
func (h *ExportHistory) GetExportRecord(ctx context.Context, transactionID string) (*ExportRecord, error) {
	query := `
		SELECT id, transaction_id, kind, tx_date, amount, flag, beancount_file, exported_at
		FROM export_history
		WHERE transaction_id = ?
	`

	var record ExportRecord
	err := h.conn.QueryRow(ctx, query, transactionID).Scan(
		&record.ID,
		&record.TransactionID,
		&record.Kind,
		&record.Date,
		&record.Amount,
		&record.Flag,
		&record.BeancountFile,
		&record.ExportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export record: %w", err)
	}

	return &record, nil
}

// ExportedIDs retrieves the IDs of all exported transactions.
// This is useful for bulk filtering.
func (h *ExportHistory) ExportedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := h.conn.Query(ctx, `SELECT transaction_id FROM export_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to get exported IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction ID: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// DeleteExportRecord forgets the export of a transaction so the next
// export writes it again.
func (h *ExportHistory) DeleteExportRecord(ctx context.Context, transactionID string) (bool, error) {
	result, err := h.conn.Exec(ctx, `DELETE FROM export_history WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete export record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Stats represents export statistics.
type Stats struct {
	TotalDeposits  int
	TotalBills     int
	TotalTransfers int
	Pending        int
	LastExport     sql.NullString
}

// Total returns the number of exported transactions.
func (s *Stats) Total() int {
	return s.TotalDeposits + s.TotalBills + s.TotalTransfers
}

// GetStats retrieves export statistics.
func (h *ExportHistory) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	counts := []struct {
		kind string
		dst  *int
	}{
		{"deposit", &stats.TotalDeposits},
		{"bill", &stats.TotalBills},
		{"transfer", &stats.TotalTransfers},
	}
	for _, c := range counts {
		err := h.conn.QueryRow(ctx, `SELECT COUNT(*) FROM export_history WHERE kind = ?`, c.kind).Scan(c.dst)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s count: %w", c.kind, err)
		}
	}

	err := h.conn.QueryRow(ctx, `SELECT COUNT(*) FROM export_history WHERE flag = '!'`).Scan(&stats.Pending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending count: %w", err)
	}

	err = h.conn.QueryRow(ctx, `SELECT MAX(exported_at) FROM export_history`).Scan(&stats.LastExport)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last export time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value from conn.
func GetMetadata(ctx context.Context, conn *Connection, key string) (string, error) {
	var value string
	err := conn.QueryRow(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// UpsertMetadataQuery sets metadata key ? to value ?.
const UpsertMetadataQuery = `
	INSERT INTO metadata (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
`
