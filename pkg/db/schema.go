// Package db provides SQLite database management for the ledger and its
// Beancount export history.
package db

import "context"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Ledger accounts, in creation order
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,               -- account UUID
    seq INTEGER NOT NULL UNIQUE,       -- creation order
    name TEXT NOT NULL,
    initial_balance TEXT NOT NULL,     -- decimal string
    balance TEXT NOT NULL,
    recorded_balance TEXT NOT NULL
);

-- Ledger transactions, in entry order
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,               -- transaction UUID
    seq INTEGER NOT NULL UNIQUE,       -- entry order
    kind TEXT NOT NULL,                -- 'deposit', 'bill' or 'transfer'
    amount TEXT NOT NULL,              -- decimal string
    tx_date TEXT NOT NULL,             -- YYYY-MM-DD
    entered TEXT NOT NULL              -- YYYY-MM-DD
);

-- Operations, one or two per transaction
CREATE TABLE IF NOT EXISTS operations (
    transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,         -- construction order within the transaction
    account_id TEXT NOT NULL REFERENCES accounts(id),
    kind TEXT NOT NULL,                -- 'debit' or 'credit'
    recorded TEXT,                     -- YYYY-MM-DD, NULL while unrecorded
    PRIMARY KEY (transaction_id, position)
);

CREATE INDEX IF NOT EXISTS idx_operations_account
    ON operations(account_id);

-- Export history table
-- Tracks which ledger transactions have been exported to Beancount
CREATE TABLE IF NOT EXISTS export_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id TEXT NOT NULL UNIQUE, -- ledger transaction UUID
    kind TEXT NOT NULL,
    tx_date TEXT NOT NULL,             -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- decimal string
    flag TEXT NOT NULL,                -- '*' recorded, '!' pending
    beancount_file TEXT NOT NULL,      -- Path to Beancount file
    exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_export_history_date
    ON export_history(tx_date);

-- Key-value metadata
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables that don't exist yet.
func InitializeSchema(ctx context.Context, conn *Connection) error {
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return err
	}
	return nil
}
