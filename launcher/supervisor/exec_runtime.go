// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"

	"go.amzn.com/bootloader/launcher/pathutil"
)

var ErrNoEntrypoint = errors.New("archive does not name an entrypoint")

// ExecRuntime runs an executable shipped in the resource root. Entrypoint is
// relative to that root.
type ExecRuntime struct {
	Entrypoint string
}

var _ Runtime = ExecRuntime{}

func (r ExecRuntime) Run(ctx context.Context, home string, args []string) (int, error) {
	if r.Entrypoint == "" {
		return 0, ErrNoEntrypoint
	}
	path, err := pathutil.Join(home, r.Entrypoint)
	if err != nil {
		return 0, err
	}

	argv := append([]string{path}, tail(args)...)
	code, err := execEntrypoint(ctx, path, argv)
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", path, err)
	}
	return code, nil
}

func tail(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return args[1:]
}
