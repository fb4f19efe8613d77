package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contactrelay/internal/config"
	"contactrelay/internal/contact"
	"contactrelay/internal/outcome"
	"contactrelay/pkg/db"
)

var statsOutcomes = []string{
	contact.OutcomeSucceeded,
	contact.OutcomeDemo,
	contact.OutcomeFailed,
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count logged deliveries per outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.env, flags.configDir)
			if err != nil {
				return err
			}
			if !cfg.DB.Enabled() {
				return errors.New("delivery log is disabled: set db.host")
			}

			ctx := cmd.Context()
			pool, err := db.NewConnection(ctx, cfg.DB, zap.NewNop())
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := outcome.NewRepository(pool)
			from := time.Now().Add(-since)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deliveries since %s\n", from.Format(time.RFC3339))
			for _, o := range statsOutcomes {
				n, err := repo.CountSince(ctx, o, from)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-10s %d\n", o, n)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Look-back window")

	return cmd
}
