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

package relic

import (
	"github.com/relicdb/relic/database"
	"github.com/relicdb/relic/query"
)

// Projection marks one column as included or excluded from a read.
type Projection = query.Projection

// Order sorts by one column, ascending unless Desc is set.
type Order = query.Order

// Options carries the per-call knobs of the CRUD operations. The zero
// value means: no pagination, all columns, natural order, tombstones
// concealed, pool execution.
type Options struct {
	// Skip drops that many matching rows before returning results.
	Skip *int
	// Take caps the number of returned rows.
	Take *int
	// Fields selects the returned columns. The id column rides along
	// unless explicitly excluded.
	Fields []Projection
	// Sort orders the result; entries apply in order.
	Sort []Order
	// RevealDeleted disables tombstone concealment for this call.
	RevealDeleted bool
	// Session routes the call through an acquired session and its open
	// transaction. The caller keeps the release obligation.
	Session *database.Session
	// Suppress is a regular expression matched against error text;
	// matching failures still propagate but skip diagnostic reporting.
	Suppress string
}

// Int returns a pointer to n, for filling Skip and Take.
func Int(n int) *int { return &n }

func (o *Options) orDefault() *Options {
	if o == nil {
		return &Options{}
	}
	return o
}

func (o *Options) execOptions() *database.ExecOptions {
	return &database.ExecOptions{Session: o.Session, Suppress: o.Suppress}
}
