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

// Package criteria models declarative row filters: an ordered set of
// field constraints where each constraint is a plain value, a membership
// list, or a set of comparison operators. Field names are trusted column
// identifiers; values are always compiled into bound parameters.
package criteria

// Term is a single constraint attached to a field. Exactly three kinds
// exist: Scalar, Sequence, and OpSet.
type Term interface {
	term()
}

// Scalar constrains a field to equal (or differ from, under negative
// polarity) a single value. Timestamps and binary blobs are scalars.
type Scalar struct {
	Value any
}

// Sequence constrains a field to a membership test over the listed
// values (IN, or NOT IN under negative polarity).
type Sequence struct {
	Values []any
}

func (Scalar) term()   {}
func (Sequence) term() {}
func (*OpSet) term()   {}

// Field pairs a column name with its constraint.
type Field struct {
	Name string
	Term Term
}

// Criteria is an ordered list of field constraints combined with AND.
// The zero value is an empty filter that matches every row.
type Criteria struct {
	fields []Field
}

// New returns an empty Criteria.
func New() *Criteria {
	return &Criteria{}
}

// Where appends a constraint for the named field. Constraining the same
// field twice keeps both entries; they combine conjunctively.
func (c *Criteria) Where(name string, t Term) *Criteria {
	c.fields = append(c.fields, Field{Name: name, Term: t})
	return c
}

// Eq constrains the field to equal v.
func (c *Criteria) Eq(name string, v any) *Criteria {
	return c.Where(name, Scalar{Value: v})
}

// In constrains the field to membership in vs.
func (c *Criteria) In(name string, vs ...any) *Criteria {
	return c.Where(name, Sequence{Values: vs})
}

// Fields returns the constraints in insertion order. The returned slice
// is the backing store and must not be mutated by callers.
func (c *Criteria) Fields() []Field {
	if c == nil {
		return nil
	}
	return c.fields
}

// Len reports the number of field constraints.
func (c *Criteria) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Get returns the first constraint recorded for the named field.
func (c *Criteria) Get(name string) (Term, bool) {
	if c == nil {
		return nil, false
	}
	for _, f := range c.fields {
		if f.Name == name {
			return f.Term, true
		}
	}
	return nil, false
}

// Replace swaps the first constraint recorded for the named field and
// reports whether a constraint was found.
func (c *Criteria) Replace(name string, t Term) bool {
	for i, f := range c.fields {
		if f.Name == name {
			c.fields[i].Term = t
			return true
		}
	}
	return false
}

// Clone returns a copy whose field list is independent of the receiver.
// Terms are shared; they are read-only during compilation.
func (c *Criteria) Clone() *Criteria {
	if c == nil {
		return New()
	}
	dup := &Criteria{fields: make([]Field, len(c.fields))}
	copy(dup.fields, c.fields)
	return dup
}
