// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "SFX_TEST_LIBRARY_PATH"

func sep() string {
	return string(os.PathListSeparator)
}

func TestEnvironmentVariableSplitting(t *testing.T) {
	k, v, err := SplitEnvironmentVariable("FOO=BAR")
	assert.NoError(t, err)
	assert.Equal(t, "FOO", k)
	assert.Equal(t, "BAR", v)

	k, v, err = SplitEnvironmentVariable("FOO=BAR=BAZ")
	assert.NoError(t, err)
	assert.Equal(t, "FOO", k)
	assert.Equal(t, "BAR=BAZ", v)

	k, v, err = SplitEnvironmentVariable("FOO=")
	assert.NoError(t, err)
	assert.Equal(t, "FOO", k)
	assert.Equal(t, "", v)

	k, v, err = SplitEnvironmentVariable("FOO")
	assert.Error(t, err)
	assert.Equal(t, "", k)
	assert.Equal(t, "", v)
}

func TestSearchPathWithoutUserValue(t *testing.T) {
	t.Setenv(testKey, "")
	os.Unsetenv(testKey)
	t.Setenv(testKey+origSuffix, "")
	os.Unsetenv(testKey + origSuffix)

	require.NoError(t, searchPath{key: testKey}.Apply("/tmp/_SFXabc"))

	assert.Equal(t, "/tmp/_SFXabc", os.Getenv(testKey))
	_, saved := os.LookupEnv(testKey + origSuffix)
	assert.False(t, saved)
}

func TestSearchPathKeepsUserValue(t *testing.T) {
	t.Setenv(testKey, "/opt/lib")
	t.Setenv(testKey+origSuffix, "")
	os.Unsetenv(testKey + origSuffix)

	require.NoError(t, searchPath{key: testKey}.Apply("/tmp/_SFXabc"))

	assert.Equal(t, "/tmp/_SFXabc"+sep()+"/opt/lib", os.Getenv(testKey))
	assert.Equal(t, "/opt/lib", os.Getenv(testKey+origSuffix))
}

func TestSearchPathDoesNotStackOnRelaunch(t *testing.T) {
	t.Setenv(testKey, "/opt/lib")
	t.Setenv(testKey+origSuffix, "")
	os.Unsetenv(testKey + origSuffix)

	strategy := searchPath{key: testKey}
	require.NoError(t, strategy.Apply("/tmp/_SFXabc"))
	require.NoError(t, strategy.Apply("/tmp/_SFXabc"))

	assert.Equal(t, "/tmp/_SFXabc"+sep()+"/opt/lib", os.Getenv(testKey))
}

func TestNoopLeavesEnvironmentAlone(t *testing.T) {
	t.Setenv(testKey, "/opt/lib")
	require.NoError(t, noop{}.Apply("/tmp/_SFXabc"))
	assert.Equal(t, "/opt/lib", os.Getenv(testKey))
}

func TestNewConfigurator(t *testing.T) {
	assert.NotEmpty(t, NewConfigurator().Name())
}

func TestSecondStageEnv(t *testing.T) {
	environ := []string{"PATH=/usr/bin", WorkDirEnvKey + "=/stale", "HOME=/root", "MALFORMED"}

	res := SecondStageEnv(environ, "/tmp/_SFXabc")

	assert.ElementsMatch(t, []string{
		"PATH=/usr/bin",
		"HOME=/root",
		"MALFORMED",
		WorkDirEnvKey + "=/tmp/_SFXabc",
		ParentPidEnvKey + "=" + strconv.Itoa(os.Getpid()),
	}, res)
	assert.Len(t, environ, 4, "input is not modified")
}

func TestWorkDirFromEnvAndClear(t *testing.T) {
	t.Setenv(WorkDirEnvKey, "/tmp/_SFXabc")
	t.Setenv(ParentPidEnvKey, "42")

	dir, ok := WorkDirFromEnv()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/_SFXabc", dir)

	require.NoError(t, ClearSecondStage())
	_, ok = WorkDirFromEnv()
	assert.False(t, ok)
	_, ok = os.LookupEnv(ParentPidEnvKey)
	assert.False(t, ok)
}

func TestEmptyWorkDirIsIgnored(t *testing.T) {
	t.Setenv(WorkDirEnvKey, "")
	_, ok := WorkDirFromEnv()
	assert.False(t, ok)
}
