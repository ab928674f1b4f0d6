//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package types defines the runtime value model and the request/response
// types used by the policy engine.
//
// # Value Model
//
// [Value] is a closed tagged union over the variants the condition language
// can produce: [Boolean], [Long], [String], [Set], [Record], [EntityUID],
// and the extension values [Decimal] and [IPAddr]. Operators in the
// evaluator dispatch on these runtime variants; there is no implicit
// coercion between them.
//
// # Requests and Responses
//
// A [Request] names the principal, action, and resource of one access
// attempt plus a free-form context [Record]. A [Response] carries the
// binary [Decision] along with [Diagnostics] identifying the policies that
// produced the decision and the policies whose conditions raised runtime
// errors.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Value is the interface implemented by every runtime value variant.
//
// Equality is structural. Sets compare as mathematical sets: order and
// duplicates are ignored.
type Value interface {
	// TypeName returns the variant name used in diagnostics, such as
	// "long" or "entity".
	TypeName() string
	// Equal reports whether the receiver and other are the same variant
	// with equal contents.
	Equal(other Value) bool
	// String renders the value in the policy language's literal syntax.
	String() string
}

// Boolean is a true/false value.
type Boolean bool

// Predefined boolean values.
const (
	True  Boolean = true
	False Boolean = false
)

// TypeName implements [Value].
func (b Boolean) TypeName() string { return "bool" }

// Equal implements [Value].
func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// MarshalJSON renders the boolean as a JSON bool.
func (b Boolean) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

// Long is a 64-bit signed integer. Arithmetic on Longs is overflow-checked
// by the evaluator; overflow is a runtime evaluation error, not wraparound.
type Long int64

// TypeName implements [Value].
func (l Long) TypeName() string { return "long" }

// Equal implements [Value].
func (l Long) Equal(other Value) bool {
	o, ok := other.(Long)
	return ok && l == o
}

func (l Long) String() string { return fmt.Sprintf("%d", int64(l)) }

// MarshalJSON renders the long as a JSON number.
func (l Long) MarshalJSON() ([]byte, error) { return json.Marshal(int64(l)) }

// String is a UTF-8 string value.
type String string

// TypeName implements [Value].
func (s String) TypeName() string { return "string" }

// Equal implements [Value].
func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s == o
}

func (s String) String() string { return fmt.Sprintf("%q", string(s)) }

// MarshalJSON renders the string as a JSON string.
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// Set is an unordered collection of values.
//
// The backing slice preserves construction order for deterministic
// rendering, but equality and the contains operators treat the collection
// as a mathematical set.
type Set []Value

// TypeName implements [Value].
func (s Set) TypeName() string { return "set" }

// Contains reports whether v is an element of the set.
func (s Set) Contains(v Value) bool {
	for _, e := range s {
		if e.Equal(v) {
			return true
		}
	}
	return false
}

// Equal implements [Value]. Two sets are equal iff each is a subset of the
// other, regardless of order or duplication.
func (s Set) Equal(other Value) bool {
	o, ok := other.(Set)
	if !ok {
		return false
	}
	return containsAll(o, s) && containsAll(s, o)
}

func containsAll(haystack Set, needles Set) bool {
	for _, n := range needles {
		if !haystack.Contains(n) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON renders the set as a JSON array.
func (s Set) MarshalJSON() ([]byte, error) { return json.Marshal([]Value(s)) }

// Record is a mapping from attribute names to values.
type Record map[string]Value

// TypeName implements [Value].
func (r Record) TypeName() string { return "record" }

// Get returns the named attribute and whether it is present.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r[name]
	return v, ok
}

// Equal implements [Value].
func (r Record) Equal(other Value) bool {
	o, ok := other.(Record)
	if !ok || len(r) != len(o) {
		return false
	}
	for k, v := range r {
		ov, present := o[k]
		if !present || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %s", k, r[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON renders the record as a JSON object.
func (r Record) MarshalJSON() ([]byte, error) { return json.Marshal(map[string]Value(r)) }
