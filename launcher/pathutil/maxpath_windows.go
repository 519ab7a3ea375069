// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pathutil

// MaxPath is MAX_PATH, terminating NUL included.
const MaxPath = 260
