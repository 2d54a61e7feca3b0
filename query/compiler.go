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

	"github.com/relicdb/relic/criteria"
)

// Polarity selects the sign of the clause family a term compiles into.
type Polarity int

const (
	// Equal compiles scalars to = and sequences to IN.
	Equal Polarity = iota
	// NotEqual compiles scalars to != and sequences to NOT IN.
	NotEqual
)

func (p Polarity) flip() Polarity {
	if p == Equal {
		return NotEqual
	}
	return Equal
}

// ErrEmptyOpSet rejects an operator set that carries no operators. The
// alternative, matching every row for that field, silently widens result
// sets and is never what the caller meant.
var ErrEmptyOpSet = fmt.Errorf("query: operator set carries no operators")

// ErrEmptySequence rejects a membership test over zero values, which has
// no portable SQL form.
var ErrEmptySequence = fmt.Errorf("query: membership test over empty sequence")

// Compile walks the criteria in field order and appends one clause per
// constraint to the builder, binding every value positionally.
func Compile(c *criteria.Criteria, b *Builder, p Polarity) error {
	for _, f := range c.Fields() {
		if err := compileTerm(f.Name, f.Term, b, p); err != nil {
			return err
		}
	}
	return nil
}

func compileTerm(field string, t criteria.Term, b *Builder, p Polarity) error {
	switch v := t.(type) {
	case criteria.Scalar:
		op := "="
		if p == NotEqual {
			op = "!="
		}
		b.Clausef("%s %s %s", field, op, b.Bind(v.Value))
		return nil
	case criteria.Sequence:
		if len(v.Values) == 0 {
			return fmt.Errorf("%w: field %q", ErrEmptySequence, field)
		}
		kw := "IN"
		if p == NotEqual {
			kw = "NOT IN"
		}
		b.Clausef("%s %s (%s)", field, kw, b.BindAll(v.Values))
		return nil
	case *criteria.OpSet:
		return compileOps(field, v, b, p)
	default:
		return fmt.Errorf("query: field %q carries unsupported term %T", field, t)
	}
}

func compileOps(field string, s *criteria.OpSet, b *Builder, p Polarity) error {
	ops := s.Ops()
	if len(ops) == 0 {
		return fmt.Errorf("%w: field %q", ErrEmptyOpSet, field)
	}
	for _, op := range ops {
		switch op.Kind {
		case criteria.OpEqual:
			if err := compileTerm(field, op.Term, b, p); err != nil {
				return err
			}
		case criteria.OpNotEqual:
			// Re-enter with flipped polarity so a scalar becomes != and
			// a sequence becomes NOT IN.
			if err := compileTerm(field, op.Term, b, p.flip()); err != nil {
				return err
			}
		case criteria.OpGreaterThan, criteria.OpGreaterOrEqual, criteria.OpLessThan, criteria.OpLessOrEqual:
			sc, ok := op.Term.(criteria.Scalar)
			if !ok {
				return fmt.Errorf("query: field %q: %s requires a scalar", field, op.Kind)
			}
			b.Clausef("%s %s %s", field, rangeOp(op.Kind), b.Bind(sc.Value))
		case criteria.OpEqualFold, criteria.OpNotEqualFold:
			sc, ok := op.Term.(criteria.Scalar)
			if !ok {
				return fmt.Errorf("query: field %q: %s requires a scalar", field, op.Kind)
			}
			cmp := "="
			if op.Kind == criteria.OpNotEqualFold {
				cmp = "!="
			}
			b.Clausef("LOWER(%s) %s LOWER(%s)", field, cmp, b.Bind(sc.Value))
		default:
			return fmt.Errorf("query: field %q carries unknown operator %d", field, op.Kind)
		}
	}
	return nil
}

func rangeOp(k criteria.OpKind) string {
	switch k {
	case criteria.OpGreaterThan:
		return ">"
	case criteria.OpGreaterOrEqual:
		return ">="
	case criteria.OpLessThan:
		return "<"
	default:
		return "<="
	}
}
