/*
 * Copyright 2025 relicdb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" Warning "))
	assert.Equal(t, logrus.ErrorLevel, ParseLogLevel("ERROR"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestEnvDefaultString(t *testing.T) {
	assert.Equal(t, "fallback", EnvDefaultString("RELIC_TEST_UNSET", "fallback"))

	t.Setenv("RELIC_TEST_STR", "set")
	assert.Equal(t, "set", EnvDefaultString("RELIC_TEST_STR", "fallback"))

	t.Setenv("RELIC_TEST_STR", "")
	assert.Equal(t, "fallback", EnvDefaultString("RELIC_TEST_STR", "fallback"))
}

func TestEnvDefaultBool(t *testing.T) {
	assert.True(t, EnvDefaultBool("RELIC_TEST_UNSET", true))
	assert.False(t, EnvDefaultBool("RELIC_TEST_UNSET", false))

	for _, v := range []string{"1", "true", "YES", "on"} {
		t.Setenv("RELIC_TEST_BOOL", v)
		assert.True(t, EnvDefaultBool("RELIC_TEST_BOOL", false), v)
	}
	for _, v := range []string{"0", "false", "No", "off"} {
		t.Setenv("RELIC_TEST_BOOL", v)
		assert.False(t, EnvDefaultBool("RELIC_TEST_BOOL", true), v)
	}

	t.Setenv("RELIC_TEST_BOOL", "maybe")
	assert.True(t, EnvDefaultBool("RELIC_TEST_BOOL", true))
}

func TestNewLoggerHonorsLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	l := NewLogger("UTILS_TEST_DEBUG")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	require.True(t, SetLoggerLevel("UTILS_TEST_DEBUG", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("UTILS_TEST_ABSENT", "error"))
}
