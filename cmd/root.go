// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "beefy-client",
	Short:        "BEEFY light client verifying relay chain finality commitments",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")

	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(verifyHistoryCmd())
	rootCmd.AddCommand(selectValidatorsCmd())
	rootCmd.AddCommand(showStateCmd())
	rootCmd.AddCommand(generateFixtureCmd())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
