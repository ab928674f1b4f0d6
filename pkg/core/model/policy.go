//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package model defines the runtime representation of policies.
//
// This package contains the types the authorizer evaluates: policies with
// their effect, structural scope, and condition expressions, collected
// into duplicate-checked policy sets. Text front ends (see the parser
// package) produce these types; once constructed they are immutable for
// the lifetime of all authorization calls that use them.
package model

import (
	"github.com/cedrus-authz/cedrus/pkg/core/ast"
)

// Effect is the outcome a satisfied policy contributes.
type Effect int

// Policy effects.
const (
	// Permit grants access when the policy is satisfied and no forbid is.
	Permit Effect = iota
	// Forbid denies access when the policy is satisfied, overriding any
	// number of satisfied permits.
	Forbid
)

// String returns "permit" or "forbid".
func (e Effect) String() string {
	if e == Forbid {
		return "forbid"
	}
	return "permit"
}

// ConditionKind distinguishes when clauses from unless clauses.
type ConditionKind int

// Condition kinds.
const (
	// When requires the body to evaluate to true.
	When ConditionKind = iota
	// Unless requires the body to evaluate to false.
	Unless
)

// Condition is one when/unless clause of a policy. A policy's clauses are
// combined conjunctively in document order.
type Condition struct {
	Kind ConditionKind
	Body ast.Node
}

// Position locates a construct in its source document.
type Position struct {
	Line   int
	Column int
}

// Policy is one permit or forbid rule.
//
// The scope clauses restrict which principal/action/resource triples the
// policy can apply to; all three must match before any condition is
// evaluated, so a condition can never raise an error for a scope-mismatched
// request. Annotations are informational only and play no part in
// evaluation.
type Policy struct {
	ID          string
	Effect      Effect
	Principal   ScopeClause
	Action      ScopeClause
	Resource    ScopeClause
	Conditions  []Condition
	Annotations map[string]string
	Position    Position
}
