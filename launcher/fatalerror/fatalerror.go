// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

import (
	"errors"
	"fmt"
)

// This package defines the error types reported when the bootloader fails
// before or while launching the payload.
// Separate package for namespacing

// ErrorType classifies a bootstrap failure
type ErrorType string

const (
	// construction would exceed the maximum path length, or self-location failed
	PathError ErrorType = "Bootstrap.PathError"
	// missing, corrupt or truncated archive, inconsistent table of contents
	ArchiveError ErrorType = "Bootstrap.ArchiveError"
	// disk full, permission denied, I/O failure while materializing entries
	ExtractionError ErrorType = "Bootstrap.ExtractionError"
	// the library search path could not be configured
	EnvironmentError ErrorType = "Bootstrap.EnvironmentError"
	// the payload could not be started
	LaunchError ErrorType = "Bootstrap.LaunchError"

	Unknown ErrorType = "Bootstrap.Unknown"
)

// BootstrapFailureExitCode is the exit status reserved for failures that
// happen before the payload ever ran.
const BootstrapFailureExitCode = 255

var nonFatalErrors = map[ErrorType]struct{}{
	EnvironmentError: {},
}

// IsFatal reports whether errors of this type terminate the bootloader.
func (t ErrorType) IsFatal() bool {
	_, ok := nonFatalErrors[t]
	return !ok
}

// Error attaches an ErrorType to the underlying cause.
type Error struct {
	Type ErrorType
	Err  error
}

// New wraps err with the given type. A nil err yields nil.
func New(t ErrorType, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType carried by err, or Unknown.
func TypeOf(err error) ErrorType {
	var fatal *Error
	if errors.As(err, &fatal) {
		return fatal.Type
	}
	return Unknown
}
