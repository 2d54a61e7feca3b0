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

package criteria

// OpKind identifies a comparison operator inside an OpSet.
type OpKind int

const (
	// OpEqual asserts its term under positive polarity: = for a scalar,
	// IN for a sequence. Useful for pairing an equality with other
	// operators on the same field.
	OpEqual OpKind = iota
	// OpNotEqual negates its term: != for a scalar, NOT IN for a sequence.
	OpNotEqual
	// OpGreaterThan compiles to field > value.
	OpGreaterThan
	// OpGreaterOrEqual compiles to field >= value.
	OpGreaterOrEqual
	// OpLessThan compiles to field < value.
	OpLessThan
	// OpLessOrEqual compiles to field <= value.
	OpLessOrEqual
	// OpEqualFold compares case-insensitively, lowering both sides.
	OpEqualFold
	// OpNotEqualFold is the negated case-insensitive comparison.
	OpNotEqualFold
)

func (k OpKind) String() string {
	switch k {
	case OpEqual:
		return "Equal"
	case OpNotEqual:
		return "NotEqual"
	case OpGreaterThan:
		return "GreaterThan"
	case OpGreaterOrEqual:
		return "GreaterOrEqual"
	case OpLessThan:
		return "LessThan"
	case OpLessOrEqual:
		return "LessOrEqual"
	case OpEqualFold:
		return "EqualFold"
	case OpNotEqualFold:
		return "NotEqualFold"
	default:
		return "unknown"
	}
}

// Op is one operator applied to a field. Term is a Scalar for every
// kind except OpNotEqual, which also accepts a Sequence.
type Op struct {
	Kind OpKind
	Term Term
}

// OpSet is an ordered set of operators on one field, combined with AND.
// An OpSet with no operators is invalid and rejected at compile time.
type OpSet struct {
	ops []Op
}

// Ops returns the operators in insertion order.
func (s *OpSet) Ops() []Op {
	if s == nil {
		return nil
	}
	return s.ops
}

func (s *OpSet) add(k OpKind, t Term) *OpSet {
	s.ops = append(s.ops, Op{Kind: k, Term: t})
	return s
}

// Eq adds an equality constraint against a single value.
func (s *OpSet) Eq(v any) *OpSet { return s.add(OpEqual, Scalar{Value: v}) }

// Ne adds a not-equal constraint against a single value.
func (s *OpSet) Ne(v any) *OpSet { return s.add(OpNotEqual, Scalar{Value: v}) }

// NotIn adds a negative membership constraint.
func (s *OpSet) NotIn(vs ...any) *OpSet { return s.add(OpNotEqual, Sequence{Values: vs}) }

// Gt adds a greater-than constraint.
func (s *OpSet) Gt(v any) *OpSet { return s.add(OpGreaterThan, Scalar{Value: v}) }

// Gte adds a greater-or-equal constraint.
func (s *OpSet) Gte(v any) *OpSet { return s.add(OpGreaterOrEqual, Scalar{Value: v}) }

// Lt adds a less-than constraint.
func (s *OpSet) Lt(v any) *OpSet { return s.add(OpLessThan, Scalar{Value: v}) }

// Lte adds a less-or-equal constraint.
func (s *OpSet) Lte(v any) *OpSet { return s.add(OpLessOrEqual, Scalar{Value: v}) }

// EqFold adds a case-insensitive equality constraint.
func (s *OpSet) EqFold(v any) *OpSet { return s.add(OpEqualFold, Scalar{Value: v}) }

// NeFold adds a case-insensitive inequality constraint.
func (s *OpSet) NeFold(v any) *OpSet { return s.add(OpNotEqualFold, Scalar{Value: v}) }

// Package-level constructors for the common single-operator case.

// Ne starts an OpSet with a not-equal constraint.
func Ne(v any) *OpSet { return new(OpSet).Ne(v) }

// NotIn starts an OpSet with a negative membership constraint.
func NotIn(vs ...any) *OpSet { return new(OpSet).NotIn(vs...) }

// Gt starts an OpSet with a greater-than constraint.
func Gt(v any) *OpSet { return new(OpSet).Gt(v) }

// Gte starts an OpSet with a greater-or-equal constraint.
func Gte(v any) *OpSet { return new(OpSet).Gte(v) }

// Lt starts an OpSet with a less-than constraint.
func Lt(v any) *OpSet { return new(OpSet).Lt(v) }

// Lte starts an OpSet with a less-or-equal constraint.
func Lte(v any) *OpSet { return new(OpSet).Lte(v) }

// EqFold starts an OpSet with a case-insensitive equality constraint.
func EqFold(v any) *OpSet { return new(OpSet).EqFold(v) }

// NeFold starts an OpSet with a case-insensitive inequality constraint.
func NeFold(v any) *OpSet { return new(OpSet).NeFold(v) }
