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

package query

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun/dialect"
)

// Builder accumulates WHERE fragments and their bound arguments while
// keeping a single running placeholder counter. Every argument must be
// bound through Bind so that placeholder indices and the argument vector
// can never drift apart.
type Builder struct {
	name    dialect.Name
	clauses []string
	args    []any
	n       int
}

// NewBuilder returns a Builder emitting placeholders for the dialect:
// $1, $2, ... for postgres, ? otherwise.
func NewBuilder(name dialect.Name) *Builder {
	return &Builder{name: name}
}

// Dialect returns the dialect the builder emits placeholders for.
func (b *Builder) Dialect() dialect.Name { return b.name }

// Bind appends v to the argument vector and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	b.n++
	if b.name == dialect.PG {
		return fmt.Sprintf("$%d", b.n)
	}
	return "?"
}

// BindAll binds every value and returns the placeholders joined by ", ",
// ready for an IN list or a VALUES row.
func (b *Builder) BindAll(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = b.Bind(v)
	}
	return strings.Join(parts, ", ")
}

// Clause records a completed WHERE fragment.
func (b *Builder) Clause(c string) {
	b.clauses = append(b.clauses, c)
}

// Clausef records a formatted WHERE fragment.
func (b *Builder) Clausef(format string, a ...any) {
	b.Clause(fmt.Sprintf(format, a...))
}

// Clauses returns the recorded fragments in order.
func (b *Builder) Clauses() []string { return b.clauses }

// Where joins the fragments with AND. Empty when nothing was recorded.
func (b *Builder) Where() string {
	return strings.Join(b.clauses, " AND ")
}

// Args returns the bound argument vector in placeholder order.
func (b *Builder) Args() []any {
	if b.args == nil {
		return []any{}
	}
	return b.args
}
