package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/shunichi-ikebuchi/beancounter/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancounter/pkg/db"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

// History remembers which transactions were already exported.
type History interface {
	ExportedIDs(ctx context.Context) (map[string]bool, error)
	// RecordExports stores records and runs write before committing them.
	RecordExports(ctx context.Context, records []db.ExportRecord, write func() error) error
	GetExportRecord(ctx context.Context, transactionID string) (*db.ExportRecord, error)
	DeleteExportRecord(ctx context.Context, transactionID string) (bool, error)
}

// ExportResult summarizes one export run.
type ExportResult struct {
	Exported int
	Skipped  int
	Files    []string
}

// Exporter appends not yet exported ledger transactions to monthly
// Beancount files and records them in the export history.
type Exporter struct {
	converter *Converter
	repo      beancount.Repository
	history   History
}

// NewExporter creates a new Exporter.
func NewExporter(converter *Converter, repo beancount.Repository, history History) *Exporter {
	return &Exporter{converter: converter, repo: repo, history: history}
}

// Pending returns the transactions of l that have not been exported, in
// ledger order.
func (e *Exporter) Pending(ctx context.Context, l *ledger.Ledger) ([]ledger.Transaction, error) {
	exported, err := e.history.ExportedIDs(ctx)
	if err != nil {
		return nil, err
	}

	var pending []ledger.Transaction
	for _, tx := range l.Transactions() {
		if !exported[tx.ID().String()] {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}

// Export writes every pending transaction. In dry-run mode the formatted
// transactions go to w and nothing is written or recorded.
//
// Each month is appended and recorded together: if the history cannot be
// committed the appended text is removed again.
func (e *Exporter) Export(ctx context.Context, l *ledger.Ledger, dryRun bool, w io.Writer) (*ExportResult, error) {
	pending, err := e.Pending(ctx, l)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Skipped: len(l.Transactions()) - len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	byMonth := make(map[string][]beancount.Transaction)
	ids := make(map[string][]ledger.Transaction)
	for _, tx := range pending {
		txn := e.converter.Convert(tx)
		month := txn.YearMonth()
		byMonth[month] = append(byMonth[month], txn)
		ids[month] = append(ids[month], tx)
	}

	for _, month := range sortedMonths(byMonth) {
		filePath, err := e.repo.MonthFilePath(month)
		if err != nil {
			return result, fmt.Errorf("failed to get month file path: %w", err)
		}

		entries := make([]string, len(byMonth[month]))
		records := make([]db.ExportRecord, len(byMonth[month]))
		for i, txn := range byMonth[month] {
			tx := ids[month][i]
			entries[i] = e.converter.FormatTransaction(txn)
			records[i] = db.ExportRecord{
				TransactionID: tx.ID().String(),
				Kind:          string(tx.Kind()),
				Date:          tx.Date().String(),
				Amount:        tx.Amount().String(),
				Flag:          string(txn.Flag),
				BeancountFile: filePath,
			}
		}

		if dryRun {
			if err := e.preview(w, month, filePath, entries); err != nil {
				return result, err
			}
			result.Exported += len(entries)
			continue
		}

		var undo func() error
		err = e.history.RecordExports(ctx, records, func() error {
			var err error
			undo, err = e.repo.AppendEntries(month, entries)
			return err
		})
		if err != nil {
			if undo != nil {
				err = errors.Join(err, undo())
			}
			return result, fmt.Errorf("failed to export %s: %w", month, err)
		}

		result.Exported += len(entries)
		result.Files = append(result.Files, filePath)
		slog.Debug("Updated file", "path", filePath, "transactions", len(entries))
	}

	return result, nil
}

func (e *Exporter) preview(w io.Writer, month, filePath string, entries []string) error {
	state := "new file"
	if e.repo.MonthFileExists(month) {
		content, err := e.repo.ReadMonthFile(month)
		if err != nil {
			return err
		}
		state = fmt.Sprintf("%d existing entries", beancount.CountEntries(content))
	}

	fmt.Fprintf(w, "[DRY RUN] Would append %d transactions to %s (%s)\n", len(entries), filePath, state)
	for _, entry := range entries {
		fmt.Fprintln(w, entry)
	}
	return nil
}

// MonthFile describes one exported Beancount file.
type MonthFile struct {
	Month   string
	Path    string
	Entries int
}

// MonthFiles lists the Beancount files for every year the ledger has
// transactions in, oldest first.
func (e *Exporter) MonthFiles(l *ledger.Ledger) ([]MonthFile, error) {
	years := make(map[string]bool)
	for _, tx := range l.Transactions() {
		years[fmt.Sprintf("%04d", tx.Date().Year)] = true
	}

	var files []MonthFile
	for _, year := range slices.Sorted(maps.Keys(years)) {
		months, err := e.repo.MonthFiles(year)
		if err != nil {
			return nil, err
		}
		for _, month := range months {
			path, err := e.repo.MonthFilePath(month)
			if err != nil {
				return nil, err
			}
			content, err := e.repo.ReadMonthFile(month)
			if err != nil {
				return nil, err
			}
			files = append(files, MonthFile{Month: month, Path: path, Entries: beancount.CountEntries(content)})
		}
	}
	return files, nil
}

// Forget drops the export record of tx so the next export writes it again.
// It returns the forgotten record, or nil if tx was never exported.
func (e *Exporter) Forget(ctx context.Context, tx ledger.Transaction) (*db.ExportRecord, error) {
	id := tx.ID().String()
	record, err := e.history.GetExportRecord(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	if _, err := e.history.DeleteExportRecord(ctx, id); err != nil {
		return nil, err
	}
	return record, nil
}

func sortedMonths(groups map[string][]beancount.Transaction) []string {
	// YYYY-MM sorts lexically
	return slices.Sorted(maps.Keys(groups))
}
