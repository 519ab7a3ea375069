// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pathutil

import "golang.org/x/sys/unix"

// MaxPath is the size of the OS path buffer, terminating NUL included.
const MaxPath = unix.PathMax
