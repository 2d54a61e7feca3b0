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

	"github.com/relicdb/relic/criteria"
)

// Mode switches a SELECT between row retrieval and aggregate counting.
type Mode int

const (
	// ModeDefault retrieves rows.
	ModeDefault Mode = iota
	// ModeCount emits a single COUNT(*) column and ignores projection,
	// ordering, and pagination.
	ModeCount
)

// CountColumn is the alias of the aggregate emitted in ModeCount.
const CountColumn = "count"

// Projection marks one column as included or excluded from a SELECT.
type Projection struct {
	Column  string
	Include bool
}

// Order sorts by one column, ascending unless Desc is set.
type Order struct {
	Column string
	Desc   bool
}

// Options carries the per-statement knobs the assembler understands.
// It is built once at the public entry point and never mutated below it.
type Options struct {
	Skip    *int
	Take    *int
	Fields  []Projection
	Sort    []Order
	Conceal bool
	Mode    Mode
}

// Assign sets one column during INSERT or UPDATE.
type Assign struct {
	Column string
	Value  any
}

// Assembler builds parameterized statements for one table and owns the
// soft-delete concealment merge. Field and table identifiers are trusted;
// all values travel as bound parameters.
type Assembler struct {
	Dialect       dialect.Name
	Schema        string
	Table         string
	IDField       string
	StatusField   string
	DeletedStatus any
}

// Target returns the quoted, schema-qualified table reference.
func (a *Assembler) Target() string {
	if a.Schema == "" || a.Dialect == dialect.SQLite {
		return a.QuoteIdent(a.Table)
	}
	return a.QuoteIdent(a.Schema) + "." + a.QuoteIdent(a.Table)
}

// QuoteIdent quotes a trusted identifier for the dialect.
func (a *Assembler) QuoteIdent(ident string) string {
	if a.Dialect == dialect.MySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

// Conceal merges the tombstone filter into the caller's criteria and
// returns a copy; the input is never mutated. Three cases:
// an existing scalar status constraint becomes "status != deleted AND
// status = X", an absent constraint gains "status != deleted", and nil
// criteria become a filter holding only the injected constraint.
func (a *Assembler) Conceal(c *criteria.Criteria) *criteria.Criteria {
	merged := c.Clone()
	t, ok := merged.Get(a.StatusField)
	if !ok {
		return merged.Where(a.StatusField, criteria.Ne(a.DeletedStatus))
	}
	if sc, isScalar := t.(criteria.Scalar); isScalar {
		// Keep the caller's equality but still exclude tombstones, even
		// when the requested value is the tombstone value itself.
		merged.Replace(a.StatusField, criteria.Ne(a.DeletedStatus).Eq(sc.Value))
		return merged
	}
	// Already an operator set or membership test; trust it as-is.
	return merged
}

// Select assembles a SELECT (or COUNT) statement. Concealment, when
// enabled in opts, is merged before compilation.
func (a *Assembler) Select(c *criteria.Criteria, opts Options) (string, []any, error) {
	if opts.Conceal {
		c = a.Conceal(c)
	}
	b := NewBuilder(a.Dialect)
	if err := Compile(c, b, Equal); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if opts.Mode == ModeCount {
		sb.WriteString("COUNT(*) AS " + CountColumn)
	} else {
		sb.WriteString(a.columns(opts.Fields))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(a.Target())
	if w := b.Where(); w != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(w)
	}
	if opts.Mode == ModeCount {
		return sb.String(), b.Args(), nil
	}
	if ob := orderBy(opts.Sort); ob != "" {
		sb.WriteString(ob)
	}
	a.paginate(&sb, b, opts)
	return sb.String(), b.Args(), nil
}

// Update assembles an UPDATE statement; SET arguments are bound before
// WHERE arguments so the placeholder counter stays monotonic.
func (a *Assembler) Update(assigns []Assign, c *criteria.Criteria, opts Options) (string, []any, error) {
	if len(assigns) == 0 {
		return "", nil, fmt.Errorf("query: update without assignments")
	}
	if opts.Conceal {
		c = a.Conceal(c)
	}
	b := NewBuilder(a.Dialect)

	sets := make([]string, len(assigns))
	for i, as := range assigns {
		sets[i] = fmt.Sprintf("%s = %s", as.Column, b.Bind(as.Value))
	}
	if err := Compile(c, b, Equal); err != nil {
		return "", nil, err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s", a.Target(), strings.Join(sets, ", "))
	if w := b.Where(); w != "" {
		stmt += " WHERE " + w
	}
	return stmt, b.Args(), nil
}

// Delete assembles a hard DELETE statement.
func (a *Assembler) Delete(c *criteria.Criteria, opts Options) (string, []any, error) {
	if opts.Conceal {
		c = a.Conceal(c)
	}
	b := NewBuilder(a.Dialect)
	if err := Compile(c, b, Equal); err != nil {
		return "", nil, err
	}
	stmt := "DELETE FROM " + a.Target()
	if w := b.Where(); w != "" {
		stmt += " WHERE " + w
	}
	return stmt, b.Args(), nil
}

// Insert assembles an INSERT over the given column assignments.
func (a *Assembler) Insert(assigns []Assign) (string, []any, error) {
	if len(assigns) == 0 {
		return "", nil, fmt.Errorf("query: insert without columns")
	}
	b := NewBuilder(a.Dialect)
	cols := make([]string, len(assigns))
	vals := make([]any, len(assigns))
	for i, as := range assigns {
		cols[i] = as.Column
		vals[i] = as.Value
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		a.Target(), strings.Join(cols, ", "), b.BindAll(vals))
	return stmt, b.Args(), nil
}

// columns renders the projection. The id column rides along unless the
// caller explicitly excluded it. With no inclusions left, fall back to *.
func (a *Assembler) columns(fields []Projection) string {
	if len(fields) == 0 {
		return "*"
	}
	var cols []string
	idSeen := false
	for _, f := range fields {
		if f.Column == a.IDField {
			idSeen = true
		}
		if f.Include {
			cols = append(cols, f.Column)
		}
	}
	if !idSeen {
		cols = append([]string{a.IDField}, cols...)
	}
	if len(cols) == 0 {
		return "*"
	}
	return strings.Join(cols, ", ")
}

func orderBy(sort []Order) string {
	if len(sort) == 0 {
		return ""
	}
	parts := make([]string, len(sort))
	for i, o := range sort {
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		parts[i] = o.Column + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// paginate appends LIMIT/OFFSET with trailing bound parameters. Skip and
// take are independent; an offset without a limit needs a dialect-shaped
// unbounded LIMIT everywhere except postgres.
func (a *Assembler) paginate(sb *strings.Builder, b *Builder, opts Options) {
	switch {
	case opts.Take != nil && opts.Skip != nil:
		fmt.Fprintf(sb, " LIMIT %s OFFSET %s", b.Bind(*opts.Take), b.Bind(*opts.Skip))
	case opts.Take != nil:
		fmt.Fprintf(sb, " LIMIT %s", b.Bind(*opts.Take))
	case opts.Skip != nil:
		switch a.Dialect {
		case dialect.PG:
			fmt.Fprintf(sb, " OFFSET %s", b.Bind(*opts.Skip))
		case dialect.MySQL:
			fmt.Fprintf(sb, " LIMIT 18446744073709551615 OFFSET %s", b.Bind(*opts.Skip))
		default:
			fmt.Fprintf(sb, " LIMIT -1 OFFSET %s", b.Bind(*opts.Skip))
		}
	}
}
