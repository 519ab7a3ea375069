// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap drives a launch from self-location to payload exit.
package bootstrap

import (
	"context"
	"errors"
	"os"

	"go.amzn.com/bootloader/launcher/archive"
	"go.amzn.com/bootloader/launcher/cleanup"
	"go.amzn.com/bootloader/launcher/env"
	"go.amzn.com/bootloader/launcher/extract"
	"go.amzn.com/bootloader/launcher/fatalerror"
	"go.amzn.com/bootloader/launcher/pathutil"
	"go.amzn.com/bootloader/launcher/supervisor"
	"go.amzn.com/bootloader/launcher/supervisor/model"

	log "github.com/sirupsen/logrus"
)

// Runtime options read from the archive.
const (
	OptionTempDir     = "runtime-tmpdir"
	OptionEntrypoint  = "entrypoint"
	OptionKeepWorkdir = "keep-workdir"
)

// Options configure a Launcher. Zero values select the defaults.
type Options struct {
	// Self overrides the executable location, resolved from the OS if nil.
	Self *pathutil.SelfLocation
	// ArchivePath opens this archive instead of locating it from Self.
	ArchivePath string
	// TempRoot is the directory extraction happens under. It takes
	// precedence over the archive's runtime-tmpdir option.
	TempRoot string
	// Runtime runs the payload in-process. Without one, the archive's
	// entrypoint is executed.
	Runtime supervisor.Runtime
	// Child starts the payload as a separate process.
	Child model.Launcher
	// Configurator points library resolution at the resources.
	Configurator env.Configurator
	// FileSystem receives extracted entries.
	FileSystem extract.FileSystem
}

// Launcher runs one launch. It is not reusable.
type Launcher struct {
	opts    Options
	cleanup *cleanup.Session
	list    *archive.List
}

func NewLauncher(opts Options) *Launcher {
	if opts.Child == nil {
		opts.Child = supervisor.NewForkExec()
	}
	if opts.Configurator == nil {
		opts.Configurator = env.NewConfigurator()
	}
	if opts.FileSystem == nil {
		opts.FileSystem = extract.OSFileSystem{}
	}
	return &Launcher{opts: opts, cleanup: cleanup.New()}
}

// Run performs the launch with args as the payload's argument vector, args[0]
// included. On return every archive is closed and the working directory is
// gone, unless the archive asked to keep it. The error is a fatalerror.Error
// whenever the payload never ran.
func (l *Launcher) Run(ctx context.Context, args []string) (*model.Result, error) {
	defer l.close()

	self, err := l.self()
	if err != nil {
		return nil, typed(fatalerror.PathError, err)
	}

	if err := l.openArchives(self); err != nil {
		return nil, typed(fatalerror.ArchiveError, err)
	}
	main := l.list.Main()

	options, err := main.Options()
	if err != nil {
		return nil, typed(fatalerror.ArchiveError, err)
	}

	if workDir, ok := env.WorkDirFromEnv(); ok {
		return l.runSecondStage(ctx, workDir, options, args)
	}

	need, err := extract.NeedsExtraction(l.list)
	if err != nil {
		return nil, typed(fatalerror.ArchiveError, err)
	}
	if !need {
		log.Debug("Nothing to extract, running from the install directory")
		l.configure(main.HomePath)
		return l.runInProcess(ctx, main.HomePath, options, args)
	}

	// A relaunched second stage would find nothing to run.
	if l.opts.Runtime == nil && options[OptionEntrypoint] == "" {
		return nil, typed(fatalerror.LaunchError, supervisor.ErrNoEntrypoint)
	}

	workDir, err := l.extract(options)
	if err != nil {
		return nil, err
	}
	l.configure(workDir)

	req, err := l.childRequest(self, workDir, options, args)
	if err != nil {
		return nil, typed(fatalerror.LaunchError, err)
	}
	result, err := l.opts.Child.Launch(ctx, req)
	if err != nil {
		return nil, typed(fatalerror.LaunchError, err)
	}
	return result, nil
}

func (l *Launcher) self() (pathutil.SelfLocation, error) {
	if l.opts.Self != nil {
		return *l.opts.Self, nil
	}
	return pathutil.ResolveSelf()
}

func (l *Launcher) openArchives(self pathutil.SelfLocation) error {
	var (
		main *archive.Status
		err  error
	)
	if l.opts.ArchivePath != "" {
		main, err = archive.Open(l.opts.ArchivePath)
	} else {
		main, err = archive.OpenSelf(self)
	}
	if err != nil {
		return err
	}

	l.list = archive.NewList(main)
	return nil
}

// runSecondStage runs the payload of a relaunched process against the
// directory its first stage extracted to. The first stage owns that
// directory and removes it.
func (l *Launcher) runSecondStage(ctx context.Context, workDir string, options map[string]string, args []string) (*model.Result, error) {
	if err := env.ClearSecondStage(); err != nil {
		return nil, typed(fatalerror.EnvironmentError, err)
	}

	home, err := pathutil.WithTrailingSeparator(workDir)
	if err != nil {
		return nil, typed(fatalerror.PathError, err)
	}
	l.list.Main().WorkPath = workDir

	log.WithField("workdir", workDir).Debug("Second stage, reusing extracted resources")
	l.configure(workDir)
	return l.runInProcess(ctx, home, options, args)
}

func (l *Launcher) runInProcess(ctx context.Context, home string, options map[string]string, args []string) (*model.Result, error) {
	rt := l.opts.Runtime
	if rt == nil {
		rt = supervisor.ExecRuntime{Entrypoint: options[OptionEntrypoint]}
	}

	result, err := supervisor.NewInProcess(rt).Launch(ctx, &model.LaunchRequest{Home: home, Args: args})
	if err != nil {
		return nil, typed(fatalerror.LaunchError, err)
	}
	return result, nil
}

func (l *Launcher) extract(options map[string]string) (string, error) {
	root := l.opts.TempRoot
	if root == "" {
		root = os.ExpandEnv(options[OptionTempDir])
	}

	x := extract.New(extract.WithTempRoot(root), extract.WithFileSystem(l.opts.FileSystem))
	workDir, err := x.ExtractAll(l.list)
	l.cleanup.Track(workDir)
	if _, keep := options[OptionKeepWorkdir]; keep {
		l.cleanup.Keep()
	}
	if err != nil {
		return "", typed(fatalerror.ExtractionError, err)
	}
	return workDir, nil
}

// configure applies the library search path. Failing to do so is reported
// but the launch goes on: libraries may resolve without it.
func (l *Launcher) configure(dir string) {
	err := typed(fatalerror.EnvironmentError, l.opts.Configurator.Apply(dir))
	if err == nil {
		return
	}
	log.WithError(err).WithField("strategy", l.opts.Configurator.Name()).Warn("Failed to configure environment")
}

// childRequest runs the archive's entrypoint if it names one, and relaunches
// the bootloader as second stage otherwise.
func (l *Launcher) childRequest(self pathutil.SelfLocation, workDir string, options map[string]string, args []string) (*model.LaunchRequest, error) {
	rest := []string{}
	if len(args) > 1 {
		rest = args[1:]
	}

	if entrypoint := options[OptionEntrypoint]; entrypoint != "" {
		path, err := pathutil.Join(workDir, entrypoint)
		if err != nil {
			return nil, err
		}
		return &model.LaunchRequest{
			Path: path,
			Args: append([]string{path}, rest...),
			Env:  os.Environ(),
			Home: workDir,
		}, nil
	}

	argv0 := self.Path
	if len(args) > 0 {
		argv0 = args[0]
	}
	return &model.LaunchRequest{
		Path: self.Path,
		Args: append([]string{argv0}, rest...),
		Env:  env.SecondStageEnv(os.Environ(), workDir),
		Home: workDir,
	}, nil
}

func (l *Launcher) close() {
	if l.list != nil {
		if err := l.list.Close(); err != nil {
			log.WithError(err).Warn("Failed to close archive")
		}
	}
	// Failures are logged by the session and never fatal.
	_ = l.cleanup.Cleanup()
}

// typed attaches t to err unless err already carries a type. Path length
// failures are always path errors.
func typed(t fatalerror.ErrorType, err error) error {
	if err == nil {
		return nil
	}
	if fatalerror.TypeOf(err) != fatalerror.Unknown {
		return err
	}
	if errors.Is(err, pathutil.ErrPathTooLong) {
		t = fatalerror.PathError
	}
	return fatalerror.New(t, err)
}
