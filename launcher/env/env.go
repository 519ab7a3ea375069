// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package env configures the process environment the payload starts with.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// WorkDirEnvKey hands the extraction directory to the relaunched second
	// stage, so extraction happens at most once per run.
	WorkDirEnvKey = "_SFX_WORKDIR"
	// ParentPidEnvKey records the first stage's pid in the second stage.
	ParentPidEnvKey = "_SFX_PARENT_PID"

	// origSuffix names the variable preserving the user's own search path.
	origSuffix = "_ORIG"
)

func isSecondStageEnvVar(key string) bool {
	return key == WorkDirEnvKey || key == ParentPidEnvKey
}

// Configurator makes dynamically loaded libraries resolve against a
// resource directory. Exactly one strategy is active per platform.
type Configurator interface {
	// Apply points library resolution at dir. Failure is reported, the
	// caller decides whether it is fatal.
	Apply(dir string) error
	Name() string
}

// NewConfigurator returns the strategy for the running platform.
func NewConfigurator() Configurator {
	return platformStrategy()
}

// searchPath prepends the resource directory to a library search-path
// variable. The user's value is kept after it and saved in <key>_ORIG.
type searchPath struct {
	key string
}

func (s searchPath) Name() string {
	return s.key
}

func (s searchPath) Apply(dir string) error {
	origKey := s.key + origSuffix

	// A relaunched process already sees our value; start from the saved one.
	original, saved := os.LookupEnv(origKey)
	if !saved {
		original = os.Getenv(s.key)
		if original != "" {
			if err := os.Setenv(origKey, original); err != nil {
				return fmt.Errorf("save %s: %w", s.key, err)
			}
		}
	}

	value := dir
	if original != "" {
		value = dir + string(os.PathListSeparator) + original
	}
	if err := os.Setenv(s.key, value); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}

	log.WithField(s.key, value).Debug("Configured library search path")
	return nil
}

// noop is used where libraries resolve through load paths baked into them.
type noop struct{}

func (noop) Name() string { return "none" }

func (noop) Apply(dir string) error {
	log.WithField("dir", dir).Debug("Library search path left untouched")
	return nil
}

// WorkDirFromEnv returns the working directory handed down by a first stage.
func WorkDirFromEnv() (string, bool) {
	dir, ok := os.LookupEnv(WorkDirEnvKey)
	return dir, ok && dir != ""
}

// SecondStageEnv returns environ with the second-stage variables set for a
// relaunch that reuses dir.
func SecondStageEnv(environ []string, dir string) []string {
	res := make([]string, 0, len(environ)+2)
	for _, keyval := range environ {
		key, _, err := SplitEnvironmentVariable(keyval)
		if err == nil && isSecondStageEnvVar(key) {
			continue
		}
		res = append(res, keyval)
	}

	return append(res,
		WorkDirEnvKey+"="+dir,
		ParentPidEnvKey+"="+strconv.Itoa(os.Getpid()),
	)
}

// ClearSecondStage removes the second-stage variables so they do not leak
// into anything the payload starts.
func ClearSecondStage() error {
	for _, key := range []string{WorkDirEnvKey, ParentPidEnvKey} {
		if err := os.Unsetenv(key); err != nil {
			return fmt.Errorf("unset %s: %w", key, err)
		}
	}
	return nil
}

// SplitEnvironmentVariable splits "KEY=VALUE" at the first '='.
func SplitEnvironmentVariable(envKeyVal string) (string, string, error) {
	splitKeyVal := strings.SplitN(envKeyVal, "=", 2)
	if len(splitKeyVal) < 2 {
		return "", "", fmt.Errorf("could not split env var by '=' delimiter: %q", envKeyVal)
	}
	return splitKeyVal[0], splitKeyVal[1], nil
}
