// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows && !darwin && !aix

package env

func platformStrategy() Configurator {
	return searchPath{key: "LD_LIBRARY_PATH"}
}
