//
//  Copyright © the Cedrus authors. All rights reserved.
//

package model

import (
	"github.com/pkg/errors"
)

// PolicySet is an ordered, immutable collection of policies with unique
// ids.
//
// Order is preserved only for deterministic rendering and diagnostics; the
// authorization outcome is independent of policy order by construction of
// the combination algorithm.
type PolicySet struct {
	policies []*Policy
	byID     map[string]*Policy
}

// NewPolicySet builds a PolicySet. A duplicate policy id is a
// construction-time error; nothing is partially constructed on failure.
func NewPolicySet(policies []*Policy) (*PolicySet, error) {
	byID := make(map[string]*Policy, len(policies))
	for _, p := range policies {
		if p.ID == "" {
			return nil, errors.New("policy with empty id")
		}
		if _, dup := byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate policy id %q", p.ID)
		}
		byID[p.ID] = p
	}

	return &PolicySet{
		policies: append([]*Policy(nil), policies...),
		byID:     byID,
	}, nil
}

// EmptyPolicySet returns a set with no policies. Authorizing against it
// yields the default deny.
func EmptyPolicySet() *PolicySet {
	ps, _ := NewPolicySet(nil)
	return ps
}

// Policies returns the policies in document order. Callers must not modify
// the returned slice.
func (ps *PolicySet) Policies() []*Policy { return ps.policies }

// Get returns the policy with the given id, if present.
func (ps *PolicySet) Get(id string) (*Policy, bool) {
	p, ok := ps.byID[id]
	return p, ok
}

// Len returns the number of policies in the set.
func (ps *PolicySet) Len() int { return len(ps.policies) }
