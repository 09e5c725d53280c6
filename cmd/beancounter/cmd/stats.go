package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display export statistics",
	Long: `Display statistics about exported transactions.

Shows:
- Number of exported deposits, bills and transfers
- Number exported while still pending
- Last export timestamp

Example:
  beancounter stats`,
	Args: cobra.NoArgs,
	Run:  runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, resolver := loadSettings()

	// Open database connection
	dbPath := resolver.HistoryPath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.OpenContext(ctx, dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	stats, err := db.NewExportHistory(conn).GetStats(ctx)
	exitOnError(err, "failed to get statistics")

	printStats(stats)
}

func printStats(stats *db.Stats) {
	fmt.Println("\n=== Export Statistics ===")
	fmt.Printf("Exported deposits:  %d\n", stats.TotalDeposits)
	fmt.Printf("Exported bills:     %d\n", stats.TotalBills)
	fmt.Printf("Exported transfers: %d\n", stats.TotalTransfers)
	fmt.Printf("Exported pending:   %d\n", stats.Pending)
	fmt.Printf("Exported total:     %d\n", stats.Total())

	if stats.LastExport.Valid {
		fmt.Printf("Last export:        %s\n", stats.LastExport.String)
	} else {
		fmt.Printf("Last export:        (never)\n")
	}

	fmt.Println()
}
