// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

func platformStrategy() Configurator {
	return dllDirectory{}
}

// dllDirectory adds the resource directory to the DLL search order of this
// process and the processes it starts.
type dllDirectory struct{}

func (dllDirectory) Name() string { return "SetDllDirectory" }

func (dllDirectory) Apply(dir string) error {
	if err := windows.SetDllDirectory(dir); err != nil {
		return fmt.Errorf("SetDllDirectory(%s): %w", dir, err)
	}
	log.WithField("dir", dir).Debug("Configured DLL directory")
	return nil
}
