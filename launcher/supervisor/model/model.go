// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"syscall"
)

// Launcher starts the payload and blocks until it has finished.
type Launcher interface {
	Launch(context.Context, *LaunchRequest) (*Result, error)
}

// State of a launch, in the order a launch moves through them.
type State int

const (
	Idle State = iota
	Spawning
	Running
	Reaping
	Done
	Signaled
)

var stateNames = [...]string{"Idle", "Spawning", "Running", "Reaping", "Done", "Signaled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == Done || s == Signaled
}

type LaunchRequest struct {
	// Executable path of the payload. Empty for in-process launches, which
	// use Home instead.
	Path string
	// Args is the full argument vector, Args[0] included.
	Args []string
	// If empty, the current working directory is inherited
	Cwd string
	// If nil, the current environment is inherited
	Env []string
	// Home is the resource root the payload runs against.
	Home string
}

// Result describes how the payload finished. Exactly one of ExitStatus and
// Signo is set.
type Result struct {
	Signo      *int32
	ExitStatus *int32
}

func Exited(code int) *Result {
	c := int32(code)
	return &Result{ExitStatus: &c}
}

func KilledBy(sig syscall.Signal) *Result {
	s := int32(sig)
	return &Result{Signo: &s}
}

// If not nil, the payload was terminated by an unhandled signal.
// The returned value is the number of the signal that terminated it
func (r Result) Signaled() *int32 {
	return r.Signo
}

// If not nil, the payload exited on its own with this status.
func (r Result) Exited() *int32 {
	return r.ExitStatus
}

func (r Result) Success() bool {
	return r.ExitStatus != nil && *r.ExitStatus == 0
}

// State is the terminal state matching the result.
func (r Result) State() State {
	if r.Signo != nil {
		return Signaled
	}
	return Done
}

// String matches what exec.ExitError.Error() prints for the same status.
func (r Result) String() string {
	if r.ExitStatus != nil {
		return fmt.Sprintf("exit status %d", *r.ExitStatus)
	}
	if r.Signo != nil {
		return fmt.Sprintf("signal: %s", syscall.Signal(*r.Signo).String())
	}
	return "unknown"
}
