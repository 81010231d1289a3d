package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/meter/analytics"
	"tollgate-hq/tollgate/pkg/meter/history"
	"tollgate-hq/tollgate/pkg/meter/storage"
)

var reportFlags struct {
	dbPath string
	user   string
	from   string
	to     string
	format string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report spend from a usage database",
	Long: `Aggregate persisted usage records into a cost report.

The report covers a date range (inclusive) and can be restricted to one
user. Dates are local calendar days in YYYY-MM-DD form; --to defaults to
today and --from defaults to 30 days before --to.

Examples:
  # Last 30 days, all users
  tollgate report --db data/tollgate.db

  # One user over one month, as JSON
  tollgate report --db data/tollgate.db --user alice \
    --from 2026-08-01 --to 2026-08-31 --format json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.dbPath, "db", "", "SQLite usage database path (required)")
	reportCmd.Flags().StringVar(&reportFlags.user, "user", "", "restrict the report to one user")
	reportCmd.Flags().StringVar(&reportFlags.from, "from", "", "start date, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportFlags.to, "to", "", "end date, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportFlags.format, "format", "text", "output format: text, json")
	_ = reportCmd.MarkFlagRequired("db")
}

func runReport(cmd *cobra.Command, args []string) error {
	from, to, err := reportRange(reportFlags.from, reportFlags.to)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(reportFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open usage database: %w", err)
	}
	defer store.Close()

	records, err := store.ListRecords(cmd.Context(), history.Filter{
		UserID: reportFlags.user,
		From:   from,
		To:     to,
	}, 0)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	summary := analytics.Summarize(records, from, to)

	switch reportFlags.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "text":
		printSummary(cmd, summary)
		return nil
	default:
		return fmt.Errorf("unknown format %q, must be text or json", reportFlags.format)
	}
}

// reportRange resolves the --from/--to flags into an inclusive time
// range. The end date extends to the last instant of that day.
func reportRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var to time.Time
	if toStr == "" {
		now := time.Now()
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	} else {
		var err error
		to, err = time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
	}

	var from time.Time
	if fromStr == "" {
		from = to.AddDate(0, 0, -30)
	} else {
		var err error
		from, err = time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
	}

	to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", fromStr, toStr)
	}
	return from, to, nil
}

func printSummary(cmd *cobra.Command, s analytics.CostSummary) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Usage report %s to %s\n",
		s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))
	if reportFlags.user != "" {
		fmt.Fprintf(out, "User: %s\n", reportFlags.user)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Total cost:      $%.4f\n", s.TotalCost)
	fmt.Fprintf(out, "Requests:        %d (%d ok, %d failed)\n",
		s.TotalRequests, s.SuccessfulRequests, s.FailedRequests)
	fmt.Fprintf(out, "Avg cost/req:    $%.6f\n", s.AvgCostPerRequest)
	fmt.Fprintf(out, "Avg tokens/req:  %.0f\n", s.AvgTokensPerRequest)

	printGroup(cmd, "By provider", s.ByProvider)
	printGroup(cmd, "By model", s.ByModel)
	if reportFlags.user == "" {
		printGroup(cmd, "By user", s.ByUser)
	}
}

func printGroup(cmd *cobra.Command, title string, groups map[string]analytics.GroupStats) {
	if len(groups) == 0 {
		return
	}
	out := cmd.OutOrStdout()

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// largest spend first
	sort.Slice(keys, func(i, j int) bool {
		return groups[keys[i]].Cost > groups[keys[j]].Cost
	})

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", title)
	for _, k := range keys {
		g := groups[k]
		fmt.Fprintf(out, "  %-32s $%10.4f  %6d req  %10d tokens\n",
			k, g.Cost, g.Requests, g.Tokens)
	}
}
