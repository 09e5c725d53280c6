package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancounter/pkg/clock"
	"github.com/shunichi-ikebuchi/beancounter/pkg/converter"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

var today = civil.Date{Year: 2015, Month: time.February, Day: 2}

func testLedger(t *testing.T) (*ledger.Ledger, *ledger.Transfer, *ledger.Bill) {
	t.Helper()
	l := ledger.New(ledger.WithClock(clock.Fixed(today)))
	checking := l.AddAccount("checking", decimal.NewFromInt(1000))
	savings := l.AddAccount("savings", decimal.Zero)

	tr, err := l.Transfer(checking, savings, decimal.NewFromInt(300), today)
	require.NoError(t, err)
	bill, err := l.Bill(checking, decimal.RequireFromString("89.99"), today)
	require.NoError(t, err)
	return l, tr, bill
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd, "rootCmd should be defined")
	assert.Equal(t, "beancounter", rootCmd.Use)
	assert.Contains(t, rootCmd.Short, "bills and transfers")
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"account", "deposit", "bill", "transfer", "record", "history", "export", "stats"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, c := range []string{"deposit", "bill"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		for _, flag := range []string{"date", "entered", "repeat", "every"} {
			assert.NotNil(t, cmd.Flags().Lookup(flag), "%s --%s", c, flag)
		}
	}

	export, _, err := rootCmd.Find([]string{"export"})
	require.NoError(t, err)
	for _, flag := range []string{"dry-run", "list", "forget"} {
		assert.NotNil(t, export.Flags().Lookup(flag), "export --%s", flag)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"integer", "1200", "1200", false},
		{"cents", "89.99", "89.99", false},
		{"padded", " 5.5 ", "5.5", false},
		{"negative parses", "-3", "-3", false},
		{"trailing zeros", "1.500", "1.5", false},
		{"sub-cent", "0.125", "", true},
		{"garbage", "ten", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("", today)
	require.NoError(t, err)
	assert.Equal(t, today, got)

	got, err = parseDate("2024-02-29", today)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 29}, got)

	_, err = parseDate("02/03/2024", today)
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")
}

func TestEntryDates(t *testing.T) {
	tests := []struct {
		name     string
		flags    entryFlags
		expected []civil.Date
		wantErr  bool
	}{
		{
			name:     "single defaults to today",
			flags:    entryFlags{repeat: 1, every: "1w"},
			expected: []civil.Date{today},
		},
		{
			name:  "weekly",
			flags: entryFlags{date: "2015-01-26", repeat: 3, every: "1w"},
			expected: []civil.Date{
				{Year: 2015, Month: time.January, Day: 26},
				{Year: 2015, Month: time.February, Day: 2},
				{Year: 2015, Month: time.February, Day: 9},
			},
		},
		{
			name:  "every other day",
			flags: entryFlags{date: "2015-02-27", repeat: 2, every: "2d"},
			expected: []civil.Date{
				{Year: 2015, Month: time.February, Day: 27},
				{Year: 2015, Month: time.March, Day: 1},
			},
		},
		{name: "zero repeat", flags: entryFlags{repeat: 0, every: "1d"}, wantErr: true},
		{name: "bad frequency", flags: entryFlags{repeat: 2, every: "monthly"}, wantErr: true},
		{name: "bad date", flags: entryFlags{date: "soon", repeat: 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.dates(today)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEnterAll(t *testing.T) {
	l, _, _ := testLedger(t)
	checking, _ := l.AccountByName("checking")
	bill := func(l *ledger.Ledger, a *ledger.Account, amount decimal.Decimal, date civil.Date, opts ...ledger.TxOption) (ledger.Transaction, error) {
		return l.Bill(a, amount, date, opts...)
	}

	dates := []civil.Date{today, today.AddDays(7)}
	txs, err := enterAll(l, checking, decimal.NewFromInt(10), dates, bill, ledger.EnteredOn(today.AddDays(-1)))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, today.AddDays(7), txs[1].Date())
	assert.Equal(t, today.AddDays(-1), txs[1].Entered())
	assert.Equal(t, "590.01", checking.Balance().String())

	before := len(l.Transactions())
	_, err = enterAll(l, checking, decimal.Zero, dates, bill)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	assert.Len(t, l.Transactions(), before)
}

func TestResolveAccount(t *testing.T) {
	l, _, _ := testLedger(t)
	savings, _ := l.AccountByName("savings")

	a, err := resolveAccount(l, "savings")
	require.NoError(t, err)
	assert.Same(t, savings, a)

	a, err = resolveAccount(l, savings.ID().String())
	require.NoError(t, err)
	assert.Same(t, savings, a)

	_, err = resolveAccount(l, "brokerage")
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)
}

func TestResolveTransaction(t *testing.T) {
	l, tr, bill := testLedger(t)

	got, err := resolveTransaction(l, tr.ID().String())
	require.NoError(t, err)
	assert.Same(t, tr, got)

	got, err = resolveTransaction(l, bill.ID().String()[:8])
	if tr.ID().String()[:8] == bill.ID().String()[:8] {
		assert.ErrorIs(t, err, errAmbiguous)
	} else {
		require.NoError(t, err)
		assert.Same(t, bill, got)
	}

	_, err = resolveTransaction(l, "")
	assert.ErrorIs(t, err, errNoMatch)
	_, err = resolveTransaction(l, "zzzz")
	assert.ErrorIs(t, err, errNoMatch)
}

func TestSelectOperations(t *testing.T) {
	_, tr, bill := testLedger(t)

	ops, err := selectOperations(tr, "in")
	require.NoError(t, err)
	assert.Equal(t, []*ledger.Operation{tr.Incoming()}, ops)

	ops, err = selectOperations(tr, "")
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	_, err = selectOperations(tr, "sideways")
	assert.ErrorContains(t, err, "invalid side")

	_, err = selectOperations(bill, "out")
	assert.ErrorContains(t, err, "only applies to transfers")

	require.NoError(t, tr.Outgoing().Record(today))
	ops, err = selectOperations(tr, "")
	require.NoError(t, err)
	assert.Equal(t, []*ledger.Operation{tr.Incoming()}, ops)

	require.NoError(t, tr.Incoming().Record(today))
	_, err = selectOperations(tr, "")
	assert.ErrorIs(t, err, ledger.ErrAlreadyRecorded)
}

func TestHistoryOutput(t *testing.T) {
	l, tr, _ := testLedger(t)
	require.NoError(t, tr.Outgoing().Record(today))

	var out bytes.Buffer
	writeTransactions(&out, l.Transactions())
	assert.Contains(t, out.String(), "checking -> savings")
	assert.Contains(t, out.String(), "partial 1/2")
	assert.Contains(t, out.String(), "pending")

	out.Reset()
	checking, _ := l.AccountByName("checking")
	writeOperations(&out, checking)
	assert.Contains(t, out.String(), "-300.00")
	assert.Contains(t, out.String(), "-89.99")
	assert.Contains(t, out.String(), "610.01")
	assert.Contains(t, out.String(), "700.00")
}

func TestWriteMonthFiles(t *testing.T) {
	var out bytes.Buffer
	writeMonthFiles(&out, nil)
	assert.Equal(t, "No Beancount files\n", out.String())

	out.Reset()
	writeMonthFiles(&out, []converter.MonthFile{
		{Month: "2015-01", Path: "/data/2015/2015-01.beancount", Entries: 2},
		{Month: "2015-02", Path: "/data/2015/2015-02.beancount", Entries: 11},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"MONTH", "ENTRIES", "PATH"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2015-02", "11", "/data/2015/2015-02.beancount"}, strings.Fields(lines[2]))
}
