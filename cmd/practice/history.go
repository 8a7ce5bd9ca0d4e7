package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List finished practice sessions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			return printHistory(cmd.Context(), cmd.OutOrStdout(), dbPath, limit)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite file the sessions were saved to")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of sessions to show")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func printHistory(ctx context.Context, out io.Writer, dbPath string, limit int) error {
	repo, err := openHistory(dbPath)
	if err != nil {
		return err
	}
	records, err := repo.ListByUser(ctx, localUser, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No sessions yet.")
		return nil
	}
	for _, rec := range records {
		s := rec.Summary()
		score := color.HiBlackString("-")
		if s.OverallScore != nil {
			score = formatScore(*s.OverallScore) + "/10"
		}
		note := ""
		if s.EndedEarly {
			note = color.YellowString(" ended early")
		}
		fmt.Fprintf(out, "%s  %-6s %2d questions  %s%s\n",
			s.StartedAt.Local().Format(time.DateTime), s.Difficulty, s.QuestionCount, score, note)
	}
	return nil
}
