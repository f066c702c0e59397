package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and flaky cases",
		Long: `Show the most recent recorded runs and the cases whose status changed
between passing and failing within the last --window runs of --mode.

With --case, show the status of one case across recent runs instead.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 10, "Number of recent runs to show")
	cmd.Flags().String("mode", "regress", "Mode inspected for flaky cases (run, verdict, regress, judge)")
	cmd.Flags().Int("window", 10, "Number of recent runs inspected for flaky cases")
	cmd.Flags().String("case", "", "Show the status history of one case id")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is disabled (history.enabled: false)")
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	limit, _ := cmd.Flags().GetInt("limit")

	if caseID, _ := cmd.Flags().GetString("case"); caseID != "" {
		statuses, err := store.CaseHistory(ctx, caseID, limit)
		if err != nil {
			return err
		}
		heading(out, "History of "+caseID)
		if len(statuses) == 0 {
			fmt.Fprintln(out, "No recorded results.")
			return nil
		}
		labels := make([]string, len(statuses))
		for i, st := range statuses {
			labels[i] = string(st)
		}
		fmt.Fprintln(out, strings.Join(labels, " "))
		return nil
	}

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	heading(out, "Recent runs")
	printRuns(out, runs)

	mode, _ := cmd.Flags().GetString("mode")
	window, _ := cmd.Flags().GetInt("window")
	flaky, err := store.FlakyCases(ctx, mode, window)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	heading(out, fmt.Sprintf("Flaky cases (%s, last %d runs)", mode, window))
	printFlaky(out, flaky)
	return nil
}

func heading(w io.Writer, text string) {
	fmt.Fprintln(w, color.New(color.Bold).Sprintf("=== %s ===", text))
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tMODE\tSET\tPASSED\tFAILED\tDURATION\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.TestSet,
			r.Passed, r.Total, r.Failed, r.Duration.Round(time.Millisecond), r.ID)
	}
	tw.Flush()
}

func printFlaky(w io.Writer, cases []history.FlakyCase) {
	if len(cases) == 0 {
		fmt.Fprintln(w, "No flaky cases.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tPASSES\tFAILURES\tLAST SEEN")
	for _, c := range cases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.CaseID, c.Passes, c.Failures,
			c.LastSeen.Local().Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}
