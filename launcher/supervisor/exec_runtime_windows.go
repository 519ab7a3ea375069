// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"

	"go.amzn.com/bootloader/launcher/supervisor/model"
)

// execEntrypoint runs the entrypoint as a child; Windows cannot replace the
// process image.
func execEntrypoint(ctx context.Context, path string, argv []string) (int, error) {
	result, err := NewForkExec().Launch(ctx, &model.LaunchRequest{Path: path, Args: argv})
	if err != nil {
		return 0, err
	}
	if code := result.Exited(); code != nil {
		return int(*code), nil
	}
	return 1, nil
}
