// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package runtimecmd

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// PayloadCmd wraps exec.Cmd
type PayloadCmd struct {
	*exec.Cmd
}

// NewPayloadCmd returns a command running argv[0] with the given arguments.
// The payload stays in our process group, so terminal job control keeps
// treating it as the foreground process. Cancellation is the supervisor's
// job: it forwards signals instead of killing the payload outright.
func NewPayloadCmd(argv []string, dir string, env []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) *PayloadCmd {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env

	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return &PayloadCmd{cmd}
}

// NewInheritedPayloadCmd is NewPayloadCmd with the standard streams of the
// current process.
func NewInheritedPayloadCmd(argv []string, dir string, env []string) *PayloadCmd {
	return NewPayloadCmd(argv, dir, env, os.Stdin, os.Stdout, os.Stderr)
}

// Name returns the payload executable name
func (cmd *PayloadCmd) Name() string {
	return filepath.Base(cmd.Path)
}

// Pid returns the pid of a started payload process
func (cmd *PayloadCmd) Pid() int {
	return cmd.Process.Pid
}
