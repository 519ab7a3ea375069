// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.amzn.com/bootloader/launcher/archive"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type packOptions struct {
	output         string
	appendTo       string
	entrypoint     string
	compression    string
	options        []string
	runtimeVersion uint32
	runtimeLibrary string
}

func newPackCmd() *cobra.Command {
	var opts packOptions

	cmd := &cobra.Command{
		Use:   "pack <directory>",
		Short: "Pack a directory into an archive",
		Long: `pack stores every file below <directory> in an archive, in lexical
order. Shared libraries and executables become binary entries, symbolic
links become link entries and everything else becomes data.

With --append-to the archive is written after a copy of the given
bootloader executable, producing a single self-extracting file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return pack(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "archive or executable to create")
	cmd.Flags().StringVar(&opts.appendTo, "append-to", "", "bootloader executable to prepend to the archive")
	cmd.Flags().StringVar(&opts.entrypoint, "entrypoint", "", "payload executable, relative to <directory>")
	cmd.Flags().StringVar(&opts.compression, "compress", archive.Zlib.String(), "compression: stored, zlib, lz4 or s2")
	cmd.Flags().StringArrayVar(&opts.options, "option", nil, "additional runtime option, repeatable")
	cmd.Flags().Uint32Var(&opts.runtimeVersion, "runtime-version", 0, "runtime version tag")
	cmd.Flags().StringVar(&opts.runtimeLibrary, "runtime-library", "", "runtime library name")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func pack(dir string, opts packOptions) (err error) {
	compression, err := archive.ParseCompression(opts.compression)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(opts.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if opts.appendTo != "" {
		if err := copyFile(f, opts.appendTo); err != nil {
			return fmt.Errorf("copy bootloader: %w", err)
		}
	}

	w := archive.NewWriter(f)
	w.SetRuntime(opts.runtimeVersion, opts.runtimeLibrary)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(w, path, filepath.ToSlash(rel), d, compression)
	})
	if err != nil {
		return err
	}

	if opts.entrypoint != "" {
		if err := w.AddOption("entrypoint " + filepath.ToSlash(opts.entrypoint)); err != nil {
			return err
		}
	}
	for _, option := range opts.options {
		if err := w.AddOption(option); err != nil {
			return err
		}
	}
	return w.Close()
}

func addFile(w *archive.Writer, path, name string, d fs.DirEntry, compression archive.Compression) error {
	if d.Type()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"entry": name, "target": target}).Debug("Packing symlink")
		return w.Add(name, archive.TypeSymlink, archive.Stored, []byte(filepath.ToSlash(target)))
	}
	if !d.Type().IsRegular() {
		log.WithField("path", path).Warn("Skipping special file")
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	typ := archive.TypeData
	if info.Mode()&0o111 != 0 || isLibrary(name) {
		typ = archive.TypeBinary
	}
	log.WithFields(log.Fields{"entry": name, "type": typ}).Debug("Packing file")
	return w.Add(name, typ, compression, data)
}

func isLibrary(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".dll") || strings.HasSuffix(base, ".dylib") ||
		strings.HasSuffix(base, ".so") || strings.Contains(base, ".so.")
}

func copyFile(dst io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
