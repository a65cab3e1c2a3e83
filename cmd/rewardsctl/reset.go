package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/service/reset"
)

var (
	resetForce   bool
	historyJob   string
	historyLimit int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Run a period reset by hand",
}

var resetWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Award and reset the current week",
	Long: `Awards weekly badges for the current week and zeroes weekly XP.
The run is recorded once per week; --force runs it again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd, func(svc *reset.Service) (*reset.Report, error) {
			return svc.RunWeeklyManual(cmd.Context(), now(), resetForce)
		})
	},
}

var resetMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Award and reset the month that just closed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd, func(svc *reset.Service) (*reset.Report, error) {
			return svc.RunMonthly(cmd.Context(), now())
		})
	},
}

var resetHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded reset runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		switch historyJob {
		case models.JobWeekly, models.JobWeeklyManual, models.JobMonthly:
		default:
			return fmt.Errorf("unknown job %q", historyJob)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		runs, err := a.reset.History(cmd.Context(), historyJob, historyLimit)
		if err != nil {
			return err
		}
		return writeJSON(cmd, runs)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.AddCommand(resetWeeklyCmd, resetMonthlyCmd, resetHistoryCmd)
	resetWeeklyCmd.Flags().BoolVar(&resetForce, "force", false, "Run even if this week was already processed")
	resetHistoryCmd.Flags().StringVar(&historyJob, "job", models.JobWeekly, "Job name: weekly, weekly_manual or monthly")
	resetHistoryCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of runs")
}

func runReset(cmd *cobra.Command, run func(*reset.Service) (*reset.Report, error)) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	report, err := run(a.reset)
	if err != nil {
		return err
	}
	return writeJSON(cmd, report)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
