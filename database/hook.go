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

package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"

	"github.com/relicdb/relic/utils"
)

var sqlEchoSilent bool

// EnableSQLEchoSilent mutes the echo hook globally, regardless of the
// controlling environment variable.
func EnableSQLEchoSilent(b bool) {
	sqlEchoSilent = b
}

// QueryHook echoes executed statements with their duration and outcome.
// It stays quiet unless the controlling environment variable is set to a
// truthy value (1, true, yes, on).
type QueryHook struct {
	envName string
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns an echo hook gated by the named environment variable.
func NewQueryHook(envName string) *QueryHook {
	return &QueryHook{envName: envName}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if sqlEchoSilent {
		return
	}
	if !utils.EnvDefaultBool(h.envName, false) {
		return
	}

	dur := time.Since(event.StartTime)
	ts := color.New(color.Faint).Sprint(event.StartTime.Format("15:04:05.000"))
	if event.Err != nil {
		tag := color.New(color.BgRed, color.FgWhite).Sprint(" FAIL ")
		fmt.Fprintf(os.Stderr, "%s %s [%v] %s (%v)\n", ts, tag, dur, event.Query, event.Err)
		return
	}
	tag := color.New(color.BgGreen, color.FgWhite).Sprint(" SQL ")
	fmt.Fprintf(os.Stdout, "%s %s [%v] %s\n", ts, tag, dur, color.CyanString(event.Query))
}
