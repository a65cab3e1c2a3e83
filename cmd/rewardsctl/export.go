package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aimd54/campus-rewards/internal/export"
	"github.com/aimd54/campus-rewards/internal/models"
)

var (
	exportSubject string
	exportID      uint
	exportLimit   int
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reward data",
}

var exportLedgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Export a user's or club's ledger and awards as YAML",
	Args:  cobra.NoArgs,
	RunE:  runExportLedger,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportLedgerCmd)

	exportLedgerCmd.Flags().StringVar(&exportSubject, "subject", "user", "Subject type: user or club")
	exportLedgerCmd.Flags().UintVar(&exportID, "id", 0, "Subject ID")
	exportLedgerCmd.Flags().IntVar(&exportLimit, "limit", 0, "Newest entries to export (0 = all)")
	exportLedgerCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	_ = exportLedgerCmd.MarkFlagRequired("id")
}

func parseSubject(s string) (models.SubjectType, error) {
	switch models.SubjectType(s) {
	case models.SubjectUser, models.SubjectClub:
		return models.SubjectType(s), nil
	default:
		return "", fmt.Errorf("unknown subject %q: expected user or club", s)
	}
}

func runExportLedger(cmd *cobra.Command, _ []string) error {
	subject, err := parseSubject(exportSubject)
	if err != nil {
		return err
	}
	if exportID == 0 {
		return fmt.Errorf("--id must be positive")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	entries, err := a.ledger.History(ctx, subject, exportID, exportLimit)
	if err != nil {
		return err
	}

	doc := export.NewDocument(subject, exportID, entries, now())
	switch subject {
	case models.SubjectUser:
		badges, err := a.leaderboard.UserBadges(ctx, exportID)
		if err != nil {
			return err
		}
		doc.WithBadges(badges)
	case models.SubjectClub:
		achievements, err := a.leaderboard.ClubAchievements(ctx, exportID)
		if err != nil {
			return err
		}
		doc.WithAchievements(achievements)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}
	return doc.Write(w)
}
