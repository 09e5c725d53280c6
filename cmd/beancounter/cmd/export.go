package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancounter/pkg/converter"
	"github.com/shunichi-ikebuchi/beancounter/pkg/db"
)

var (
	dryRun     bool
	listFiles  bool
	forgetRefs []string
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger transactions to Beancount",
	Long: `Export ledger transactions to monthly Beancount files.

This command:
1. Loads the ledger
2. Filters out already exported transactions
3. Converts them to Beancount format
4. Appends to monthly Beancount files
5. Records export history in SQLite

Recorded transactions are flagged "*", the rest "!". A transaction
exported while pending can be written again with --forget once it is
recorded.

Example:
  beancounter export
  beancounter export --dry-run
  beancounter export --list
  beancounter export --forget 3f2a`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no file writes)")
	exportCmd.Flags().BoolVar(&listFiles, "list", false, "List the exported Beancount files and exit")
	exportCmd.Flags().StringSliceVar(&forgetRefs, "forget", nil, "Transaction IDs (or prefixes) to export again")
	exportCmd.MarkFlagsMutuallyExclusive("dry-run", "forget")
	exportCmd.MarkFlagsMutuallyExclusive("list", "forget")
}

func runExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := openSession(ctx)
	defer s.close()

	slog.Info("Starting export", "dry_run", dryRun, "transactions", len(s.ledger.Transactions()))

	// Open export history database
	historyPath := s.resolver.HistoryPath()
	slog.Debug("Opening database", "path", historyPath)
	conn, err := db.OpenContext(ctx, historyPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	exportHistory := db.NewExportHistory(conn)

	// Initialize account mapper
	mapper, err := converter.NewMapper(s.resolver.MappingPath())
	exitOnError(err, "failed to load account mapping")

	exporter := converter.NewExporter(
		converter.NewConverter(mapper, s.cfg.Beancount.Currency),
		beancount.NewFileSystemRepository(s.resolver),
		exportHistory,
	)

	if listFiles {
		files, err := exporter.MonthFiles(s.ledger)
		exitOnError(err, "failed to list Beancount files")
		writeMonthFiles(os.Stdout, files)
		return
	}

	for _, ref := range forgetRefs {
		tx, err := resolveTransaction(s.ledger, ref)
		exitOnError(err, "failed to resolve transaction")
		record, err := exporter.Forget(ctx, tx)
		exitOnError(err, "failed to forget export")
		if record == nil {
			slog.Warn("Transaction was never exported", "transaction", tx.ID())
			continue
		}
		slog.Info("Forgot export", "transaction", tx.ID(), "file", record.BeancountFile)
	}

	result, err := exporter.Export(ctx, s.ledger, dryRun, os.Stdout)
	exitOnError(err, "failed to export")

	if result.Exported == 0 {
		fmt.Println("No new transactions to export")
	}

	if !dryRun {
		for _, f := range result.Files {
			slog.Info("Updated file", "path", f)
		}
		stats, err := exportHistory.GetStats(ctx)
		if err == nil {
			printStats(stats)
		}
	}

	slog.Info("Export completed",
		"exported", result.Exported,
		"skipped", result.Skipped,
		"files_written", len(result.Files),
	)
}

func writeMonthFiles(out io.Writer, files []converter.MonthFile) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No Beancount files")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tENTRIES\tPATH")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Month, f.Entries, f.Path)
	}
	w.Flush()
}
