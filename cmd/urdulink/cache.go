package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func cacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation memory",
	}

	var limit int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show translation memory size and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("the store is disabled (store.enabled=false)")
			}
			defer st.Close()

			s, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "entries:     %d\n", s.Entries)
			fmt.Fprintf(w, "hits:        %d\n", s.TotalHits)
			fmt.Fprintf(w, "runs:        %d (%d failed)\n", s.Runs, s.FailedRuns)

			runs, err := st.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-9s %-7s %d/%d records, %d warnings, %s",
					r.StartedAt.Local().Format(time.DateTime), r.Status, r.Quality,
					r.Records, r.TotalUnits, r.Warnings, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
				if r.Error != "" {
					fmt.Fprintln(w, errorf("%s: %s", line, r.Error))
				} else {
					fmt.Fprintln(w, line)
				}
			}
			return nil
		},
	}
	stats.Flags().IntVarP(&limit, "runs", "n", 10, "recent runs to list")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every remembered translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("the store is disabled (store.enabled=false)")
			}
			defer st.Close()
			n, err := st.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("✓ removed %d entries", n))
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}
