package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"initguard/internal/report"
	"initguard/internal/storage"
	"initguard/internal/storage/factory"
)

func newAttemptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recorded verification attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}

			store, err := factory.NewStorageFromURI(cmd.Context(), v.GetString("db"))
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer store.Close()

			sinceTime := time.Now().Add(-v.GetDuration("since"))
			out := cmd.OutOrStdout()

			if v.GetBool("stats") {
				stats, err := store.GetStats(cmd.Context(), sinceTime)
				if err != nil {
					return fmt.Errorf("failed to get stats: %w", err)
				}
				return printStats(out, stats, sinceTime)
			}

			opts := storage.QueryOptions{
				Limit:  v.GetInt("limit"),
				Since:  sinceTime,
				UserID: v.GetInt64("user-id"),
			}
			for _, o := range stringSlice(v, "outcome") {
				opts.Outcomes = append(opts.Outcomes, storage.Outcome(o))
			}

			attempts, total, err := store.ListAttempts(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to query attempts: %w", err)
			}
			a.logger.Debug("queried attempts", "shown", len(attempts), "total", total)

			return printAttempts(out, attempts, total, sinceTime)
		},
	}

	flags := cmd.Flags()
	flags.String("db", "sqlite:initguard.db", "Database URI")
	flags.Int("limit", 10, "Maximum number of attempts to show")
	flags.Duration("since", 24*time.Hour, "Show attempts since duration (e.g. 1h, 24h)")
	flags.Bool("stats", false, "Show counts per outcome instead of attempts")
	flags.StringSlice("outcome", nil, "Filter by outcome (valid, invalid, malformed, expired, replayed, blocked)")
	flags.Int64("user-id", 0, "Filter by user ID")

	return cmd
}

func printStats(w io.Writer, stats map[string]int64, since time.Time) error {
	outcomes := make([]string, 0, len(stats))
	for outcome := range stats {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	ew := report.NewErrWriter(w)
	ew.Printf("\nOutcome Statistics (since %s):\n", since.Format(time.RFC3339))
	for _, outcome := range outcomes {
		ew.Printf("  %s: %d\n", outcome, stats[outcome])
	}
	return ew.Err()
}

func printAttempts(w io.Writer, attempts []*storage.Attempt, total int, since time.Time) error {
	ew := report.NewErrWriter(w)
	ew.Printf("\nShowing %d of %d attempts since %s:\n", len(attempts), total, since.Format(time.RFC3339))
	ew.Printf("----------------------------------------\n")
	for _, attempt := range attempts {
		ew.Printf("ID:        %s\n", attempt.ID)
		ew.Printf("Outcome:   %s\n", attempt.Outcome)
		if attempt.UserID != 0 {
			ew.Printf("User:      %d %s\n", attempt.UserID, attempt.Username)
		}
		if attempt.AuthDate != 0 {
			ew.Printf("Auth date: %s\n", time.Unix(attempt.AuthDate, 0).UTC().Format(time.RFC3339))
		}
		ew.Printf("Remote:    %s\n", attempt.RemoteAddr)
		ew.Printf("Timestamp: %s\n", attempt.CreatedAt.Format(time.RFC3339))
		if attempt.Error != "" {
			ew.Printf("Error:     %s\n", attempt.Error)
		}
		ew.Printf("----------------------------------------\n")
	}
	return ew.Err()
}
