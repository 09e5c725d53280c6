package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancounter/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
	"github.com/shunichi-ikebuchi/beancounter/pkg/db"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancounter/pkg/pathutil"
)

var today = civil.Date{Year: 2015, Month: time.February, Day: 2}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testMapper() *Mapper {
	return NewMapperFromConfig(AccountMappingConfig{
		Accounts: []AccountMapping{{Ledger: "checking", Beancount: "Assets:Bank:Checking"}},
		Income:   "Income:Salary",
	})
}

func TestMapper(t *testing.T) {
	m := testMapper()

	tests := []struct {
		name     string
		ledger   string
		expected string
	}{
		{"mapped", "checking", "Assets:Bank:Checking"},
		{"unmapped", "savings", "Assets:Savings"},
		{"spaces", "rainy day fund", "Assets:RainyDayFund"},
		{"dash kept", "cash-box", "Assets:Cash-box"},
		{"punctuation dropped", "joe's wallet!", "Assets:JoeSWallet"},
		{"digits", "2nd account", "Assets:2ndAccount"},
		{"nothing usable", "???", "Assets:Unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.GetBeancountAccount(tt.ledger))
		})
	}

	assert.Equal(t, "Income:Salary", m.IncomeAccount())
	assert.Equal(t, DefaultExpensesAccount, m.ExpensesAccount())
	assert.True(t, m.HasMapping("checking"))
	assert.False(t, m.HasMapping("savings"))
	assert.Equal(t, map[string]string{"checking": "Assets:Bank:Checking"}, m.GetAllMappings())
}

func TestNewMapperFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account-mapping.yaml")
	content := `accounts:
  - ledger: checking
    beancount: Assets:Bank:Checking
  - ledger: card
    beancount: Liabilities:CreditCard
expenses: Expenses:Household
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := NewMapper(path)
	require.NoError(t, err)
	assert.Equal(t, "Liabilities:CreditCard", m.GetBeancountAccount("card"))
	assert.Equal(t, DefaultIncomeAccount, m.IncomeAccount())
	assert.Equal(t, "Expenses:Household", m.ExpensesAccount())
}

func TestNewMapperMissingFile(t *testing.T) {
	m, err := NewMapper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultIncomeAccount, m.IncomeAccount())
	assert.Equal(t, "Assets:Checking", m.GetBeancountAccount("checking"))
}

func TestNewMapperInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts: [\n"), 0644))

	_, err := NewMapper(path)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

type fixture struct {
	ledger   *ledger.Ledger
	deposit  *ledger.Deposit
	bill     *ledger.Bill
	transfer *ledger.Transfer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	l := ledger.New(ledger.WithClock(clock.Fixed(today)))
	checking := l.AddAccount("checking", dec("1000"))
	savings := l.AddAccount("savings", decimal.Zero)

	dep, err := l.Deposit(checking, dec("1200"), today.AddDays(-30))
	require.NoError(t, err)
	require.NoError(t, dep.Operation().Record(today.AddDays(-29)))

	bill, err := l.Bill(checking, dec("89.9"), today.AddDays(-3), ledger.EnteredOn(today.AddDays(-5)))
	require.NoError(t, err)

	tr, err := l.Transfer(checking, savings, dec("300"), today)
	require.NoError(t, err)
	require.NoError(t, tr.Outgoing().Record(today))

	return fixture{ledger: l, deposit: dep, bill: bill, transfer: tr}
}

func TestConvert(t *testing.T) {
	f := newFixture(t)
	c := NewConverter(testMapper(), "")

	t.Run("deposit", func(t *testing.T) {
		txn := c.Convert(f.deposit)
		assert.Equal(t, beancount.FlagCleared, txn.Flag)
		assert.Equal(t, "Deposit to checking", txn.Narration)
		assert.Equal(t, []string{"deposit"}, txn.Tags)
		assert.Equal(t, f.deposit.ID().String(), txn.Metadata["id"])
		require.Len(t, txn.Postings, 2)
		assert.Equal(t, "Assets:Bank:Checking", txn.Postings[0].Account)
		assert.Equal(t, "1200", txn.Postings[0].Amount.String())
		assert.Equal(t, "2015-01-04", txn.Postings[0].Metadata[MetaRecorded])
		assert.Equal(t, "Income:Salary", txn.Postings[1].Account)
		assert.Equal(t, "-1200", txn.Postings[1].Amount.String())
		assert.Equal(t, "EUR", txn.Postings[1].Currency)
		assert.True(t, txn.Balanced())
	})

	t.Run("bill", func(t *testing.T) {
		txn := c.Convert(f.bill)
		assert.Equal(t, beancount.FlagPending, txn.Flag)
		assert.Equal(t, "2015-01-28", txn.Metadata["entered"])
		require.Len(t, txn.Postings, 2)
		assert.Equal(t, "-89.9", txn.Postings[0].Amount.String())
		assert.Nil(t, txn.Postings[0].Metadata)
		assert.Equal(t, DefaultExpensesAccount, txn.Postings[1].Account)
		assert.Equal(t, "89.9", txn.Postings[1].Amount.String())
		assert.True(t, txn.Balanced())
	})

	t.Run("half recorded transfer", func(t *testing.T) {
		txn := c.Convert(f.transfer)
		assert.Equal(t, beancount.FlagPending, txn.Flag)
		assert.Equal(t, "Transfer checking to savings", txn.Narration)
		require.Len(t, txn.Postings, 2)
		assert.Equal(t, "Assets:Bank:Checking", txn.Postings[0].Account)
		assert.Equal(t, "-300", txn.Postings[0].Amount.String())
		assert.Equal(t, "Assets:Savings", txn.Postings[1].Account)
		assert.Equal(t, "300", txn.Postings[1].Amount.String())
		assert.Nil(t, txn.Postings[1].Metadata)
		assert.True(t, txn.Balanced())

		require.NoError(t, f.transfer.Incoming().Record(today.AddDays(1)))
		assert.Equal(t, beancount.FlagCleared, c.Convert(f.transfer).Flag)
	})
}

func TestFormatTransaction(t *testing.T) {
	f := newFixture(t)
	c := NewConverter(testMapper(), "EUR")

	got := c.FormatTransaction(c.Convert(f.bill))

	line := func(account, amount string) string {
		return "  " + account + strings.Repeat(" ", 60-len(account)-len(amount)) + amount + " EUR\n"
	}
	want := `2015-01-30 ! "Bill from checking" #bill` + "\n" +
		`  entered: "2015-01-28"` + "\n" +
		`  id: "` + f.bill.ID().String() + `"` + "\n" +
		line("Assets:Bank:Checking", "-89.90") +
		line("Expenses:Unclassified", "89.90")
	assert.Equal(t, want, got)

	dep := c.FormatTransaction(c.Convert(f.deposit))
	assert.Contains(t, dep, line("Assets:Bank:Checking", "1200.00")+`    recorded: "2015-01-04"`+"\n")
}

func TestFormatTransactionPayeeLinksComment(t *testing.T) {
	c := NewConverter(testMapper(), "EUR")
	got := c.FormatTransaction(beancount.Transaction{
		Date:      today,
		Flag:      beancount.FlagCleared,
		Payee:     "Landlord",
		Narration: "Rent",
		Links:     []string{"lease-2015"},
		Postings: []beancount.Posting{
			{Account: "Assets:Bank:Checking", Amount: dec("-500"), Currency: "EUR", Comment: "February"},
		},
	})
	assert.True(t, strings.HasPrefix(got, `2015-02-02 * "Landlord" "Rent" ^lease-2015`+"\n"))
	assert.Contains(t, got, "-500.00 EUR ; February\n")
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1200", "1200.00"},
		{"-89.9", "-89.90"},
		{"1.500", "1.50"},
		{"0.125", "0.125"},
		{"-0.0001", "-0.0001"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(dec(tt.in)))
		})
	}
}

func newExportParts(t *testing.T) (*beancount.FileSystemRepository, *db.ExportHistory, string) {
	t.Helper()
	root := t.TempDir()
	resolver := pathutil.New(pathutil.Config{Root: root})

	conn, err := db.Open(resolver.HistoryPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return beancount.NewFileSystemRepository(resolver), db.NewExportHistory(conn), root
}

func newExporter(t *testing.T) (*Exporter, *db.ExportHistory, string) {
	t.Helper()
	repo, history, root := newExportParts(t)
	return NewExporter(NewConverter(testMapper(), "EUR"), repo, history), history, root
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter, history, root := newExporter(t)

	result, err := exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Exported)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, []string{
		filepath.Join(root, "2015", "2015-01.beancount"),
		filepath.Join(root, "2015", "2015-02.beancount"),
	}, result.Files)

	january, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(january), `2015-01-03 * "Deposit to checking" #deposit`)
	assert.Contains(t, string(january), `2015-01-30 ! "Bill from checking" #bill`)
	assert.Less(t, strings.Index(string(january), "Deposit"), strings.Index(string(january), "Bill"))

	record, err := history.GetExportRecord(ctx, f.transfer.ID().String())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "!", record.Flag)
	assert.Equal(t, result.Files[1], record.BeancountFile)

	// A second run only picks up new transactions.
	savings, _ := f.ledger.AccountByName("savings")
	_, err = f.ledger.Bill(savings, dec("5"), today)
	require.NoError(t, err)

	result, err = exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Exported)
	assert.Equal(t, 3, result.Skipped)

	result, err = exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Exported)
	assert.Empty(t, result.Files)
}

func TestExportDryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter, history, root := newExporter(t)

	var out bytes.Buffer
	result, err := exporter.Export(ctx, f.ledger, true, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Exported)
	assert.Empty(t, result.Files)
	assert.Contains(t, out.String(), "[DRY RUN] Would append 1 transactions to "+filepath.Join(root, "2015", "2015-02.beancount")+" (new file)")
	assert.Contains(t, out.String(), `"Transfer checking to savings"`)

	_, err = os.Stat(filepath.Join(root, "2015"))
	assert.True(t, os.IsNotExist(err))

	ids, err := history.ExportedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestExportDryRunExistingFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter, _, root := newExporter(t)

	_, err := exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)

	savings, _ := f.ledger.AccountByName("savings")
	_, err = f.ledger.Bill(savings, dec("5"), today)
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := exporter.Export(ctx, f.ledger, true, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Exported)
	assert.Contains(t, out.String(),
		"[DRY RUN] Would append 1 transactions to "+filepath.Join(root, "2015", "2015-02.beancount")+" (1 existing entries)")
}

func TestExportMonthFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter, _, root := newExporter(t)

	files, err := exporter.MonthFiles(f.ledger)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)

	files, err = exporter.MonthFiles(f.ledger)
	require.NoError(t, err)
	assert.Equal(t, []MonthFile{
		{Month: "2015-01", Path: filepath.Join(root, "2015", "2015-01.beancount"), Entries: 2},
		{Month: "2015-02", Path: filepath.Join(root, "2015", "2015-02.beancount"), Entries: 1},
	}, files)
}

func TestExportForget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter, history, _ := newExporter(t)

	record, err := exporter.Forget(ctx, f.bill)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = exporter.Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)

	record, err = exporter.Forget(ctx, f.bill)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "bill", record.Kind)

	pending, err := exporter.Pending(ctx, f.ledger)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.bill.ID(), pending[0].ID())

	ids, err := history.ExportedIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

// commitFailingHistory writes the file but never commits the records.
type commitFailingHistory struct {
	*db.ExportHistory
}

func (h commitFailingHistory) RecordExports(_ context.Context, _ []db.ExportRecord, write func() error) error {
	if err := write(); err != nil {
		return err
	}
	return errors.New("database is locked")
}

func TestExportHistoryFailureRemovesText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo, history, root := newExportParts(t)
	conv := NewConverter(testMapper(), "EUR")

	_, err := NewExporter(conv, repo, commitFailingHistory{history}).Export(ctx, f.ledger, false, nil)
	require.ErrorContains(t, err, "database is locked")
	assert.False(t, repo.MonthFileExists("2015-01"))

	// A retry against a working history writes each transaction once.
	result, err := NewExporter(conv, repo, history).Export(ctx, f.ledger, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Exported)

	january, err := os.ReadFile(filepath.Join(root, "2015", "2015-01.beancount"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(january), `"Deposit to checking"`))
}

// failingRepository refuses to append.
type failingRepository struct {
	*beancount.FileSystemRepository
}

func (failingRepository) AppendEntries(string, []string) (func() error, error) {
	return nil, errors.New("read-only file system")
}

func TestExportAppendFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo, history, _ := newExportParts(t)

	exporter := NewExporter(NewConverter(testMapper(), "EUR"), failingRepository{repo}, history)
	result, err := exporter.Export(ctx, f.ledger, false, nil)
	require.ErrorContains(t, err, "read-only file system")
	assert.Zero(t, result.Exported)

	ids, err := history.ExportedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
