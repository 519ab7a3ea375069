// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !windows

package pathutil

// MaxPath matches PATH_MAX on the BSDs and macOS.
const MaxPath = 1024
