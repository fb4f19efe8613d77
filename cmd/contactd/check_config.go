package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contactrelay/internal/config"
)

func newCheckConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.env, flags.configDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "env: %s\n", flags.env)
			fmt.Fprintf(out, "listen: %s\n", cfg.Server.Port)
			if cfg.Relay.Configured() {
				fmt.Fprintf(out, "relay: configured (%s)\n", cfg.Relay.BaseURL)
			} else {
				fmt.Fprintln(out, "relay: demo mode (credentials missing or placeholders)")
			}
			if cfg.Relay.Timeout > 0 {
				fmt.Fprintf(out, "relay timeout: %s\n", cfg.Relay.Timeout)
			} else {
				fmt.Fprintln(out, "relay timeout: none")
			}
			fmt.Fprintf(out, "delivery log: %s\n", enabled(cfg.DB.Enabled()))
			fmt.Fprintf(out, "outcome events: %s\n", enabled(cfg.MQ.URL != ""))
			fmt.Fprintf(out, "redis: %s\n", enabled(cfg.Redis.Addr != ""))
			return nil
		},
	}
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
