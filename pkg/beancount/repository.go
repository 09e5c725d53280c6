package beancount

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/beancounter/pkg/pathutil"
)

const monthFileExt = ".beancount"

// Repository stores formatted Beancount entries in one file per month,
// laid out as {root}/{YYYY}/{YYYY-MM}.beancount.
type Repository interface {
	// MonthFilePath returns the file holding yearMonth (YYYY-MM).
	MonthFilePath(yearMonth string) (string, error)

	// EnsureMonthFile creates the month file with its header. It reports
	// whether the file was created.
	EnsureMonthFile(yearMonth string) (bool, error)

	// AppendEntries appends entries to the month file, creating it first
	// if needed. The returned undo puts the file back the way it was.
	AppendEntries(yearMonth string, entries []string) (undo func() error, err error)

	// ReadMonthFile returns the month file content, or "" if it is missing.
	ReadMonthFile(yearMonth string) (string, error)

	MonthFileExists(yearMonth string) bool

	// MonthFiles lists the months of year that have a file, in order.
	MonthFiles(year string) ([]string, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	paths *pathutil.PathResolver
	now   func() time.Time
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(paths *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{paths: paths, now: time.Now}
}

// MonthFilePath returns the path of a monthly file.
func (r *FileSystemRepository) MonthFilePath(yearMonth string) (string, error) {
	return r.paths.MonthFilePath(yearMonth)
}

// EnsureMonthFile writes the header of a new month file. An existing file
// is left untouched.
func (r *FileSystemRepository) EnsureMonthFile(yearMonth string) (bool, error) {
	path, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return false, err
	}
	if err := r.paths.EnsureParentDir(path); err != nil {
		return false, fmt.Errorf("failed to create year directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}

	header := fmt.Sprintf("; %s entries exported by beancounter\n; created %s\n\n",
		yearMonth, r.now().Format(time.RFC3339))
	_, werr := f.WriteString(header)
	if err := errors.Join(werr, f.Close()); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("failed to write header of %s: %w", path, err)
	}
	return true, nil
}

// AppendEntries writes each entry followed by a blank line. A failed write
// is undone before returning.
func (r *FileSystemRepository) AppendEntries(yearMonth string, entries []string) (func() error, error) {
	if len(entries) == 0 {
		return func() error { return nil }, nil
	}

	path, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return nil, err
	}
	created, err := r.EnsureMonthFile(yearMonth)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	undo := restorer(path, info.Size(), created)

	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(strings.TrimRight(entry, "\n"))
		b.WriteString("\n\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open %s: %w", path, err), undo())
	}
	_, werr := f.WriteString(b.String())
	if err := errors.Join(werr, f.Close()); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to append to %s: %w", path, err), undo())
	}
	return undo, nil
}

// restorer truncates path back to size, or removes it if this append
// created it.
func restorer(path string, size int64, created bool) func() error {
	return func() error {
		if created {
			return os.Remove(path)
		}
		return os.Truncate(path, size)
	}
}

// ReadMonthFile reads the content of a monthly file.
func (r *FileSystemRepository) ReadMonthFile(yearMonth string) (string, error) {
	path, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// MonthFileExists reports whether the month file exists. An invalid month
// never has one.
func (r *FileSystemRepository) MonthFileExists(yearMonth string) bool {
	path, err := r.MonthFilePath(yearMonth)
	return err == nil && r.paths.FileExists(path)
}

// MonthFiles returns the YYYY-MM keys of the month files under year.
func (r *FileSystemRepository) MonthFiles(year string) ([]string, error) {
	entries, err := os.ReadDir(r.paths.YearDir(year))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", year, err)
	}

	var months []string
	for _, entry := range entries {
		month, ok := strings.CutSuffix(entry.Name(), monthFileExt)
		if !ok || entry.IsDir() || !strings.HasPrefix(month, year+"-") {
			continue
		}
		months = append(months, month)
	}
	slices.Sort(months)
	return months, nil
}

// CountEntries counts the dated directives in Beancount text.
func CountEntries(content string) int {
	n := 0
	for line := range strings.Lines(content) {
		if line != "" && line[0] >= '0' && line[0] <= '9' {
			n++
		}
	}
	return n
}
