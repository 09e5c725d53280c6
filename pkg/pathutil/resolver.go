// Package pathutil provides centralized path management for the ledger file,
// the export history database and the exported Beancount files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathResolver manages paths under the data root.
type PathResolver struct {
	root        string
	ledgerPath  string
	historyPath string
	mappingPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// Root is the data directory (e.g., ~/finance/beancounter)
	Root string
	// Store is the ledger backend name; it selects the default ledger file extension
	Store string
	// LedgerPath overrides the ledger file location
	LedgerPath string
	// HistoryPath overrides the export history SQLite database location
	HistoryPath string
	// MappingPath overrides the Beancount account mapping file location
	MappingPath string
}

// ledgerFiles maps a store backend to its default ledger file name.
var ledgerFiles = map[string]string{
	"sqlite": "ledger.db",
	"json":   "ledger.json",
	"yaml":   "ledger.yaml",
	"bolt":   "ledger.bolt",
}

// New creates a new PathResolver with the given configuration.
// If LedgerPath is empty, it defaults to {Root}/.ledger/<backend file>.
// If HistoryPath is empty, it defaults to {Root}/.ledger/export.db.
// If MappingPath is empty, it defaults to {Root}/account-mapping.yaml.
func New(config Config) *PathResolver {
	ledgerPath := config.LedgerPath
	if ledgerPath == "" {
		name, ok := ledgerFiles[config.Store]
		if !ok {
			name = ledgerFiles["sqlite"]
		}
		ledgerPath = filepath.Join(config.Root, ".ledger", name)
	}

	historyPath := config.HistoryPath
	if historyPath == "" {
		historyPath = filepath.Join(config.Root, ".ledger", "export.db")
	}

	mappingPath := config.MappingPath
	if mappingPath == "" {
		mappingPath = filepath.Join(config.Root, "account-mapping.yaml")
	}

	return &PathResolver{
		root:        config.Root,
		ledgerPath:  ledgerPath,
		historyPath: historyPath,
		mappingPath: mappingPath,
	}
}

// Root returns the data root directory.
func (p *PathResolver) Root() string {
	return p.root
}

// LedgerPath returns the ledger file path.
func (p *PathResolver) LedgerPath() string {
	return p.ledgerPath
}

// HistoryPath returns the export history database path.
func (p *PathResolver) HistoryPath() string {
	return p.historyPath
}

// MappingPath returns the account mapping file path.
func (p *PathResolver) MappingPath() string {
	return p.mappingPath
}

// YearDir returns the directory path for a year.
// Example: ~/finance/beancounter/2024
func (p *PathResolver) YearDir(year string) string {
	return filepath.Join(p.root, year)
}

// MonthFilePath returns the Beancount file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/finance/beancounter/2024/2024-01.beancount
func (p *PathResolver) MonthFilePath(yearMonth string) (string, error) {
	if _, err := time.Parse("2006-01", yearMonth); err != nil {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	filename := fmt.Sprintf("%s.beancount", yearMonth)
	return filepath.Join(p.YearDir(yearMonth[:4]), filename), nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
