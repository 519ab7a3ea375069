// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.amzn.com/bootloader/launcher/archive"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <archive>",
		Short: "List the table of contents in stored order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := archive.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return list(cmd.OutOrStdout(), s)
		},
	}
}

func list(out io.Writer, s *archive.Status) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "archive %s: %d bytes, runtime %d (%s)\n", s.ArchivePath, s.Length, s.RuntimeVersion, s.RuntimeLibrary)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCOMPRESSION\tSTORED\tSIZE\tNAME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%c\t%s\t%d\t%d\t%s\n", byte(e.Type), e.Compression, e.Length, e.ULength, e.Name)
	}
	return tw.Flush()
}

func newExtractCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <archive> <name>",
		Short: "Write the decompressed content of one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := archive.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.Find(args[1])
			if err != nil {
				return err
			}
			rc, err := s.Extract(e)
			if err != nil {
				return err
			}
			defer rc.Close()

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			_, err = io.Copy(out, rc)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of standard output")
	return cmd
}
