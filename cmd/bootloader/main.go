// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command bootloader is the stub an application is packed onto. It unpacks
// the archive it carries and runs the application from it.
package main

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"
	"go.amzn.com/bootloader/launcher/bootstrap"
	"go.amzn.com/bootloader/launcher/fatalerror"
	"go.amzn.com/bootloader/launcher/logging"

	log "github.com/sirupsen/logrus"
)

// options come from the environment only: the command line belongs to the
// packaged application.
type options struct {
	LogLevel string `long:"log-level" env:"SFX_LOG_LEVEL" default:"warn" description:"log level"`
	TempDir  string `long:"tmpdir" env:"SFX_TMPDIR" description:"directory to extract into, overrides the archive's runtime-tmpdir"`
	Archive  string `long:"archive" env:"SFX_ARCHIVE" description:"archive to run instead of the one carried by the executable"`
}

func main() {
	opts := getEnvOptions()

	logging.SetOutput(os.Stderr)
	if err := logging.SetLogLevel(opts.LogLevel); err != nil {
		log.WithError(err).Warn("Keeping default log level")
	}

	bootstrap.Main(context.Background(), bootstrap.Options{
		ArchivePath: opts.Archive,
		TempRoot:    opts.TempDir,
	})
}

func getEnvOptions() options {
	var opts options
	parser := flags.NewParser(&opts, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		log.WithError(err).Error("Failed to parse bootloader options")
		os.Exit(fatalerror.BootstrapFailureExitCode)
	}
	return opts
}
