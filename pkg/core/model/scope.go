//
//  Copyright © the Cedrus authors. All rights reserved.
//

package model

import (
	"fmt"
	"strings"

	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

// ScopeClause is the structural constraint a policy places on one request
// slot. The set of implementations is closed: [ScopeAny], [ScopeEq],
// [ScopeIn], [ScopeInSet], [ScopeIs], and [ScopeIsIn].
type ScopeClause interface {
	isScope()
	fmt.Stringer
}

// ScopeAny matches every uid.
type ScopeAny struct{}

func (ScopeAny) isScope()       {}
func (ScopeAny) String() string { return "" }

// ScopeEq matches exactly one uid, structurally.
type ScopeEq struct {
	Entity types.EntityUID
}

func (ScopeEq) isScope()         {}
func (s ScopeEq) String() string { return fmt.Sprintf(" == %s", s.Entity) }

// ScopeIn matches any uid for which Entity is a (reflexive) ancestor.
type ScopeIn struct {
	Entity types.EntityUID
}

func (ScopeIn) isScope()         {}
func (s ScopeIn) String() string { return fmt.Sprintf(" in %s", s.Entity) }

// ScopeInSet matches any uid for which at least one listed entity is a
// (reflexive) ancestor. Produced by action clauses of the form
// `action in [A, B]`.
type ScopeInSet struct {
	Entities []types.EntityUID
}

func (ScopeInSet) isScope() {}
func (s ScopeInSet) String() string {
	parts := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		parts[i] = e.String()
	}
	return fmt.Sprintf(" in [%s]", strings.Join(parts, ", "))
}

// ScopeIs matches any uid with the declared entity type.
type ScopeIs struct {
	EntityType string
}

func (ScopeIs) isScope()         {}
func (s ScopeIs) String() string { return fmt.Sprintf(" is %s", s.EntityType) }

// ScopeIsIn is the conjunction of a type test and a hierarchy test.
type ScopeIsIn struct {
	EntityType string
	Entity     types.EntityUID
}

func (ScopeIsIn) isScope() {}
func (s ScopeIsIn) String() string {
	return fmt.Sprintf(" is %s in %s", s.EntityType, s.Entity)
}
