//
//  Copyright © the Cedrus authors. All rights reserved.
//

package entities_test

import (
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/common"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uid(typ, id string) types.EntityUID { return types.NewEntityUID(typ, id) }

func buildStore(t *testing.T, list []entities.Entity) *entities.Store {
	t.Helper()
	s, err := entities.NewStore(list)
	require.NoError(t, err)
	return s
}

func TestNewStoreRejectsDuplicates(t *testing.T) {
	_, err := entities.NewStore([]entities.Entity{
		{UID: uid("User", "alice")},
		{UID: uid("User", "alice")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate entity uid User::"alice"`)
}

func TestAncestryReflexive(t *testing.T) {
	s := buildStore(t, nil)

	// holds even for uids absent from the store
	assert.True(t, s.IsAncestor(uid("User", "ghost"), uid("User", "ghost")))
}

func TestAncestryTransitive(t *testing.T) {
	s := buildStore(t, []entities.Entity{
		{UID: uid("User", "a"), Parents: []types.EntityUID{uid("Group", "b")}},
		{UID: uid("Group", "b"), Parents: []types.EntityUID{uid("Group", "c")}},
		{UID: uid("Group", "c")},
	})

	assert.True(t, s.IsAncestor(uid("User", "a"), uid("Group", "b")))
	assert.True(t, s.IsAncestor(uid("User", "a"), uid("Group", "c")))
	assert.False(t, s.IsAncestor(uid("Group", "c"), uid("User", "a")))
}

func TestAncestryAbsentParent(t *testing.T) {
	// parent references need not resolve; they are still ancestors but
	// contribute no further edges
	s := buildStore(t, []entities.Entity{
		{UID: uid("User", "a"), Parents: []types.EntityUID{uid("Group", "missing")}},
	})

	assert.True(t, s.IsAncestor(uid("User", "a"), uid("Group", "missing")))
}

func TestAncestryCycleTerminates(t *testing.T) {
	s := buildStore(t, []entities.Entity{
		{UID: uid("G", "1"), Parents: []types.EntityUID{uid("G", "2")}},
		{UID: uid("G", "2"), Parents: []types.EntityUID{uid("G", "3")}},
		{UID: uid("G", "3"), Parents: []types.EntityUID{uid("G", "1")}},
	})

	assert.True(t, s.IsAncestor(uid("G", "1"), uid("G", "3")))
	assert.True(t, s.IsAncestor(uid("G", "3"), uid("G", "2")))
	assert.Len(t, s.Ancestors(uid("G", "1")), 3)
}

func TestAttributeLookupErrorKinds(t *testing.T) {
	s := buildStore(t, []entities.Entity{
		{UID: uid("User", "alice"), Attributes: types.Record{"age": types.Long(30)}},
	})

	v, evalErr := s.Attribute(uid("User", "alice"), "age")
	require.Nil(t, evalErr)
	assert.True(t, v.Equal(types.Long(30)))

	_, evalErr = s.Attribute(uid("User", "alice"), "height")
	require.NotNil(t, evalErr)
	assert.Equal(t, common.AttributeNotFound, evalErr.Kind)

	_, evalErr = s.Attribute(uid("User", "bob"), "age")
	require.NotNil(t, evalErr)
	assert.Equal(t, common.EntityNotFound, evalErr.Kind)

	assert.True(t, s.HasAttribute(uid("User", "alice"), "age"))
	assert.False(t, s.HasAttribute(uid("User", "alice"), "height"))
	assert.False(t, s.HasAttribute(uid("User", "bob"), "age"))
}

func TestFromJSON(t *testing.T) {
	data := []byte(`[
		{"uid": {"type": "User", "id": "alice"},
		 "attrs": {
			"age": 30,
			"admin": false,
			"team": "core",
			"manager": {"__entity": {"type": "User", "id": "bob"}},
			"addr": {"__extn": {"fn": "ip", "arg": "10.0.0.1"}},
			"rate": {"__extn": {"fn": "decimal", "arg": "0.25"}},
			"tags": ["a", "b"],
			"meta": {"nested": 1}
		 },
		 "parents": [{"type": "Group", "id": "staff"}]},
		{"uid": {"type": "Group", "id": "staff"}}
	]`)

	store, err := entities.StoreFromJSON(data)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	alice, ok := store.Get(uid("User", "alice"))
	require.True(t, ok)
	assert.True(t, alice.Attributes["age"].Equal(types.Long(30)))
	assert.True(t, alice.Attributes["admin"].Equal(types.False))
	assert.True(t, alice.Attributes["team"].Equal(types.String("core")))
	assert.True(t, alice.Attributes["manager"].Equal(uid("User", "bob")))
	assert.True(t, alice.Attributes["tags"].Equal(types.Set{types.String("a"), types.String("b")}))
	assert.True(t, alice.Attributes["meta"].Equal(types.Record{"nested": types.Long(1)}))

	ip, _ := types.ParseIPAddr("10.0.0.1")
	assert.True(t, alice.Attributes["addr"].Equal(ip))

	d, _ := types.ParseDecimal("0.25")
	assert.True(t, alice.Attributes["rate"].Equal(d))

	assert.True(t, store.IsAncestor(uid("User", "alice"), uid("Group", "staff")))
}

func TestFromJSONErrors(t *testing.T) {
	var badInputs = []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing uid", `[{"attrs": {}}]`},
		{"fractional number", `[{"uid": {"type": "U", "id": "x"}, "attrs": {"n": 1.5}}]`},
		{"null attribute", `[{"uid": {"type": "U", "id": "x"}, "attrs": {"n": null}}]`},
		{"bad extension fn", `[{"uid": {"type": "U", "id": "x"}, "attrs": {"n": {"__extn": {"fn": "nope", "arg": ""}}}}]`},
		{"bad ip arg", `[{"uid": {"type": "U", "id": "x"}, "attrs": {"n": {"__extn": {"fn": "ip", "arg": "zzz"}}}}]`},
	}

	for _, tt := range badInputs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entities.StoreFromJSON([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestRecordFromDecoded(t *testing.T) {
	rec, err := entities.RecordFromDecoded(map[string]interface{}{
		"risky": true,
		"count": float64(3),
		"who":   map[string]interface{}{"__entity": map[string]interface{}{"type": "User", "id": "a"}},
	})
	require.NoError(t, err)
	assert.True(t, rec["risky"].Equal(types.True))
	assert.True(t, rec["count"].Equal(types.Long(3)))
	assert.True(t, rec["who"].Equal(uid("User", "a")))

	_, err = entities.RecordFromDecoded(map[string]interface{}{"bad": 1.25})
	assert.Error(t, err)
}
