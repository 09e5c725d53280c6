package beancount

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancounter/pkg/pathutil"
)

func newTestRepository(t *testing.T) (*FileSystemRepository, string) {
	t.Helper()
	root := t.TempDir()
	return NewFileSystemRepository(pathutil.New(pathutil.Config{Root: root})), root
}

func TestAppendEntries(t *testing.T) {
	repo, root := newTestRepository(t)
	repo.now = func() time.Time { return time.Date(2015, 2, 2, 9, 0, 0, 0, time.UTC) }

	_, err := repo.AppendEntries("2015-02", []string{
		"2015-02-02 * \"rent\"\n  Assets:Checking  -300.00 EUR",
		"2015-02-03 ! \"coffee\"\n",
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "2015", "2015-02.beancount"))
	require.NoError(t, err)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "; 2015-02 entries exported by beancounter\n; created 2015-02-02T09:00:00Z\n\n"))
	assert.Contains(t, text, "2015-02-02 * \"rent\"\n  Assets:Checking  -300.00 EUR\n\n")
	assert.True(t, strings.HasSuffix(text, "2015-02-03 ! \"coffee\"\n\n"))
	assert.Equal(t, 2, CountEntries(text))

	read, err := repo.ReadMonthFile("2015-02")
	require.NoError(t, err)
	assert.Equal(t, text, read)
}

func TestAppendEntriesUndo(t *testing.T) {
	repo, root := newTestRepository(t)
	path := filepath.Join(root, "2015", "2015-02.beancount")

	// Undoing the append that created the file removes it.
	undo, err := repo.AppendEntries("2015-02", []string{"2015-02-02 * \"first\""})
	require.NoError(t, err)
	require.NoError(t, undo())
	assert.False(t, repo.MonthFileExists("2015-02"))

	_, err = repo.AppendEntries("2015-02", []string{"2015-02-02 * \"first\""})
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Undoing a later append truncates back to the earlier content.
	undo, err = repo.AppendEntries("2015-02", []string{"2015-02-03 * \"second\"", "2015-02-04 * \"third\""})
	require.NoError(t, err)
	require.NoError(t, undo())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	undo, err = repo.AppendEntries("2015-02", nil)
	require.NoError(t, err)
	require.NoError(t, undo())
}

func TestMonthFiles(t *testing.T) {
	repo, root := newTestRepository(t)

	assert.False(t, repo.MonthFileExists("2015-03"))
	months, err := repo.MonthFiles("2015")
	require.NoError(t, err)
	assert.Empty(t, months)

	for _, ym := range []string{"2015-03", "2015-01", "2016-01"} {
		created, err := repo.EnsureMonthFile(ym)
		require.NoError(t, err)
		assert.True(t, created)
	}

	// Existing files are left alone.
	_, err = repo.AppendEntries("2015-03", []string{"2015-03-01 * \"x\""})
	require.NoError(t, err)
	created, err := repo.EnsureMonthFile("2015-03")
	require.NoError(t, err)
	assert.False(t, created)
	content, err := repo.ReadMonthFile("2015-03")
	require.NoError(t, err)
	assert.Equal(t, 1, CountEntries(content))

	// Unrelated files in the year directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "2015", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2015", "main.beancount"), []byte("x"), 0o644))

	months, err = repo.MonthFiles("2015")
	require.NoError(t, err)
	assert.Equal(t, []string{"2015-01", "2015-03"}, months)
	assert.True(t, repo.MonthFileExists("2016-01"))

	empty, err := repo.ReadMonthFile("2017-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInvalidYearMonth(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.AppendEntries("2015-2", []string{"x"})
	assert.Error(t, err)
	_, err = repo.EnsureMonthFile("201502")
	assert.Error(t, err)
	_, err = repo.ReadMonthFile("2015-13")
	assert.Error(t, err)
	assert.False(t, repo.MonthFileExists("15-02"))
}

func TestCountEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"header only", "; 2015-02 entries exported by beancounter\n\n", 0},
		{"entries with postings", "2015-02-02 * \"a\"\n  Assets:Cash  1.00 EUR\n\n2015-02-03 ! \"b\"\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountEntries(tt.content))
		})
	}
}

func TestTransactionHelpers(t *testing.T) {
	txn := Transaction{
		Date: civil.Date{Year: 2015, Month: time.February, Day: 2},
		Flag: FlagPending,
		Postings: []Posting{
			{Account: "Assets:Checking", Amount: decimal.RequireFromString("-89.99"), Currency: "EUR"},
			{Account: "Expenses:Unclassified", Amount: decimal.RequireFromString("89.99"), Currency: "EUR"},
		},
	}
	assert.Equal(t, "2015-02", txn.YearMonth())
	assert.True(t, txn.Balanced())

	txn.Postings = txn.Postings[:1]
	assert.False(t, txn.Balanced())
}
