// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

func platformStrategy() Configurator {
	return searchPath{key: "LIBPATH"}
}
