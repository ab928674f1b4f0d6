//
//  Copyright © the Cedrus authors. All rights reserved.
//

package bundle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/bundle"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photosBundle = `
apiVersion: cedrus.io/v1alpha1
kind: PolicyBundle
metadata:
  name: photos
  description: photo sharing policies
spec:
  policies: |
    @id("viewers-can-view")
    permit(principal in Group::"viewers", action == Action::"view", resource);
  entities:
    - uid: {type: User, id: alice}
      attrs:
        age: 30
        home: {__extn: {fn: ip, arg: "10.0.0.1"}}
        manager: {__entity: {type: User, id: bob}}
      parents:
        - {type: Group, id: viewers}
    - uid: {type: Group, id: viewers}
`

func TestParseBundle(t *testing.T) {
	b, err := bundle.Parse([]byte(photosBundle))
	require.NoError(t, err)

	assert.Equal(t, "photos", b.Metadata.Name)
	assert.Equal(t, 1, b.Policies.Len())
	_, ok := b.Policies.Get("viewers-can-view")
	assert.True(t, ok)

	require.Len(t, b.Entities, 2)
	alice := b.Entities[0]
	assert.Equal(t, types.NewEntityUID("User", "alice"), alice.UID)
	assert.True(t, types.Long(30).Equal(alice.Attributes["age"]))
	assert.True(t, types.NewEntityUID("User", "bob").Equal(alice.Attributes["manager"]))
	assert.Equal(t, "ipaddr", alice.Attributes["home"].TypeName())
	assert.Equal(t, []types.EntityUID{types.NewEntityUID("Group", "viewers")}, alice.Parents)
}

func TestParseBundleErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong kind", "apiVersion: cedrus.io/v1alpha1\nkind: Deployment\n"},
		{"unsupported version", "apiVersion: cedrus.io/v9\nkind: PolicyBundle\n"},
		{"missing name", "apiVersion: cedrus.io/v1alpha1\nkind: PolicyBundle\nmetadata: {}\n"},
		{"bad policy text", "apiVersion: cedrus.io/v1alpha1\nkind: PolicyBundle\nmetadata: {name: x}\nspec:\n  policies: \"permit(;\"\n"},
		{"entity without uid", "apiVersion: cedrus.io/v1alpha1\nkind: PolicyBundle\nmetadata: {name: x}\nspec:\n  entities:\n    - attrs: {a: 1}\n"},
		{"not yaml", "{{{"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bundle.Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func writeBundle(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRegistryMerge(t *testing.T) {
	dir := t.TempDir()
	first := writeBundle(t, dir, "photos.yaml", photosBundle)
	second := writeBundle(t, dir, "admin.yaml", `
apiVersion: cedrus.io/v1alpha1
kind: PolicyBundle
metadata:
  name: admin
spec:
  policies: |
    @id("admins-do-anything")
    permit(principal in Group::"admins", action, resource);
  entities:
    - uid: {type: Group, id: admins}
`)

	r, err := bundle.NewRegistry([]string{first, second})
	require.NoError(t, err)
	assert.Len(t, r.Bundles(), 2)

	_, ok := r.Get("photos")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	ps, err := r.PolicySet()
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())

	store, err := r.Store()
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestRegistryCollisions(t *testing.T) {
	dir := t.TempDir()
	first := writeBundle(t, dir, "a.yaml", photosBundle)

	// duplicate bundle name
	dupName := writeBundle(t, dir, "b.yaml", `
apiVersion: cedrus.io/v1alpha1
kind: PolicyBundle
metadata: {name: photos}
`)
	_, err := bundle.NewRegistry([]string{first, dupName})
	assert.ErrorContains(t, err, "duplicate bundle name")

	// duplicate policy id across bundles
	dupPolicy := writeBundle(t, dir, "c.yaml", `
apiVersion: cedrus.io/v1alpha1
kind: PolicyBundle
metadata: {name: other}
spec:
  policies: |
    @id("viewers-can-view")
    permit(principal, action, resource);
`)
	r, err := bundle.NewRegistry([]string{first, dupPolicy})
	require.NoError(t, err)
	_, err = r.PolicySet()
	assert.ErrorContains(t, err, "viewers-can-view")

	// duplicate entity across bundles
	dupEntity := writeBundle(t, dir, "d.yaml", `
apiVersion: cedrus.io/v1alpha1
kind: PolicyBundle
metadata: {name: dupes}
spec:
  entities:
    - uid: {type: Group, id: viewers}
`)
	r, err = bundle.NewRegistry([]string{first, dupEntity})
	require.NoError(t, err)
	_, err = r.Store()
	assert.ErrorContains(t, err, `Group::"viewers"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := bundle.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
