//
//  Copyright © the Cedrus authors. All rights reserved.
//

package core

import (
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

// scopeMatches reports whether one request slot satisfies one scope clause.
// Scope matching is purely structural: it consults uids and the entity
// hierarchy, never attributes, and can never raise an evaluation error.
func scopeMatches(clause model.ScopeClause, uid types.EntityUID, store *entities.Store) bool {
	switch c := clause.(type) {
	case model.ScopeAny:
		return true
	case model.ScopeEq:
		return uid == c.Entity
	case model.ScopeIn:
		return store.IsAncestor(uid, c.Entity)
	case model.ScopeInSet:
		for _, e := range c.Entities {
			if store.IsAncestor(uid, e) {
				return true
			}
		}
		return false
	case model.ScopeIs:
		return uid.Type == c.EntityType
	case model.ScopeIsIn:
		return uid.Type == c.EntityType && store.IsAncestor(uid, c.Entity)
	default:
		// unreachable: the clause set is closed
		return false
	}
}

// policyApplies reports whether all three scope clauses of a policy match
// the request. Conditions are evaluated only for applicable policies, so a
// condition can never raise an error for a scope-mismatched request.
func policyApplies(p *model.Policy, req types.Request, store *entities.Store) bool {
	return scopeMatches(p.Principal, req.Principal, store) &&
		scopeMatches(p.Action, req.Action, store) &&
		scopeMatches(p.Resource, req.Resource, store)
}
