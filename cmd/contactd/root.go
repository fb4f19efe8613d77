package main

import (
	"github.com/spf13/cobra"

	"contactrelay/pkg/config"
)

type rootFlags struct {
	env       string
	configDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "contactd",
		Short:         "contactd validates contact-form submissions and relays them by mail",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.env, "env", config.GetConfigEnv(), "Config environment (loads config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", config.GetEnv("CONFIG_DIR", "config"), "Directory holding base.yaml, <env>.yaml and secrets.env")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newCheckConfigCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newStatsCmd(flags))

	return cmd
}
