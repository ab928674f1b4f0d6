//
//  Copyright © the Cedrus authors. All rights reserved.
//

package core

import (
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopeStore(t *testing.T) *entities.Store {
	t.Helper()
	store, err := entities.NewStore([]entities.Entity{
		{
			UID:     types.NewEntityUID("User", "alice"),
			Parents: []types.EntityUID{types.NewEntityUID("Group", "admins")},
		},
		{
			UID:     types.NewEntityUID("Group", "admins"),
			Parents: []types.EntityUID{types.NewEntityUID("Group", "everyone")},
		},
	})
	require.NoError(t, err)
	return store
}

func TestScopeMatches(t *testing.T) {
	store := scopeStore(t)
	alice := types.NewEntityUID("User", "alice")
	bob := types.NewEntityUID("User", "bob")
	admins := types.NewEntityUID("Group", "admins")
	everyone := types.NewEntityUID("Group", "everyone")

	tests := []struct {
		name   string
		clause model.ScopeClause
		uid    types.EntityUID
		want   bool
	}{
		{"any", model.ScopeAny{}, alice, true},
		{"eq match", model.ScopeEq{Entity: alice}, alice, true},
		{"eq mismatch", model.ScopeEq{Entity: alice}, bob, false},
		{"in direct", model.ScopeIn{Entity: admins}, alice, true},
		{"in transitive", model.ScopeIn{Entity: everyone}, alice, true},
		{"in reflexive", model.ScopeIn{Entity: alice}, alice, true},
		{"in mismatch", model.ScopeIn{Entity: admins}, bob, false},
		{"in-set hit", model.ScopeInSet{Entities: []types.EntityUID{bob, admins}}, alice, true},
		{"in-set miss", model.ScopeInSet{Entities: []types.EntityUID{bob}}, alice, false},
		{"in-set empty", model.ScopeInSet{Entities: nil}, alice, false},
		{"is match", model.ScopeIs{EntityType: "User"}, alice, true},
		{"is mismatch", model.ScopeIs{EntityType: "Group"}, alice, false},
		{"is-in match", model.ScopeIsIn{EntityType: "User", Entity: admins}, alice, true},
		{"is-in type mismatch", model.ScopeIsIn{EntityType: "Group", Entity: admins}, alice, false},
		{"is-in hierarchy mismatch", model.ScopeIsIn{EntityType: "User", Entity: admins}, bob, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scopeMatches(tc.clause, tc.uid, store))
		})
	}
}

func TestPolicyApplies(t *testing.T) {
	store := scopeStore(t)
	alice := types.NewEntityUID("User", "alice")
	view := types.NewEntityUID("Action", "view")
	photo := types.NewEntityUID("Photo", "p")

	p := &model.Policy{
		ID:        "p0",
		Principal: model.ScopeEq{Entity: alice},
		Action:    model.ScopeAny{},
		Resource:  model.ScopeIs{EntityType: "Photo"},
	}

	req := types.Request{Principal: alice, Action: view, Resource: photo}
	assert.True(t, policyApplies(p, req, store))

	req.Resource = types.NewEntityUID("Album", "a")
	assert.False(t, policyApplies(p, req, store))

	req.Resource = photo
	req.Principal = types.NewEntityUID("User", "bob")
	assert.False(t, policyApplies(p, req, store))
}
