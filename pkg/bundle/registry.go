//
//  Copyright © the Cedrus authors. All rights reserved.
//

package bundle

import (
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/pkg/errors"
)

// Registry holds a collection of loaded bundles and merges them into the
// snapshots the authorizer consumes.
//
// Policy ids and entity uids must be unique across all bundles in a
// registry; a collision is a load-time error naming both bundles.
type Registry struct {
	bundles []*PolicyBundle
	byName  map[string]*PolicyBundle
}

// NewRegistry loads bundles from the specified file paths, in order.
func NewRegistry(paths []string) (*Registry, error) {
	r := &Registry{byName: make(map[string]*PolicyBundle)}

	for _, path := range paths {
		b, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := r.add(b); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) add(b *PolicyBundle) error {
	if _, dup := r.byName[b.Metadata.Name]; dup {
		return errors.Errorf("duplicate bundle name %q", b.Metadata.Name)
	}

	r.bundles = append(r.bundles, b)
	r.byName[b.Metadata.Name] = b
	return nil
}

// Bundles returns the loaded bundles in load order.
func (r *Registry) Bundles() []*PolicyBundle { return r.bundles }

// Get returns the bundle with the given name, if present.
func (r *Registry) Get(name string) (*PolicyBundle, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// PolicySet merges the policies of every bundle into one set. A policy id
// occurring in two bundles is an error.
func (r *Registry) PolicySet() (*model.PolicySet, error) {
	owner := make(map[string]string)
	var merged []*model.Policy

	for _, b := range r.bundles {
		for _, p := range b.Policies.Policies() {
			if prev, dup := owner[p.ID]; dup {
				return nil, errors.Errorf("policy id %q defined in bundles %q and %q", p.ID, prev, b.Metadata.Name)
			}
			owner[p.ID] = b.Metadata.Name
			merged = append(merged, p)
		}
	}

	return model.NewPolicySet(merged)
}

// Store merges the entities of every bundle into one snapshot. An entity
// uid occurring in two bundles is an error.
func (r *Registry) Store() (*entities.Store, error) {
	owner := make(map[string]string)
	var merged []entities.Entity

	for _, b := range r.bundles {
		for _, e := range b.Entities {
			key := e.UID.String()
			if prev, dup := owner[key]; dup {
				return nil, errors.Errorf("entity %s defined in bundles %q and %q", key, prev, b.Metadata.Name)
			}
			owner[key] = b.Metadata.Name
			merged = append(merged, e)
		}
	}

	return entities.NewStore(merged)
}
