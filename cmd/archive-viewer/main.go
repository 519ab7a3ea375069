// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command archive-viewer inspects and builds bootloader archives.
package main

import (
	"os"

	"go.amzn.com/bootloader/launcher/logging"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "archive-viewer",
		Short: "Inspect and build bootloader archives",
		Long: `archive-viewer lists and extracts the entries of an archive, whether
appended to a bootloader executable or stored in a separate .pkg file,
and packs a directory into a new archive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetOutput(cmd.ErrOrStderr())
			return logging.SetLogLevel(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(newListCmd(), newExtractCmd(), newPackCmd())
	return rootCmd
}
