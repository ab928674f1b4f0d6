//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package entities provides the immutable entity snapshot consulted during
// policy evaluation.
//
// A [Store] maps entity uids to their attributes and parent sets, and
// answers transitive-ancestor queries over the parent relation. Stores are
// built once from external data and never mutated; "updates" are the
// replacement of the whole snapshot. A single Store is therefore safe to
// share across any number of concurrent authorization calls.
package entities

import (
	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/common"
	"github.com/cedrus-authz/cedrus/pkg/core/types"

	"sync"

	"github.com/pkg/errors"
)

var logger = logging.GetLogger("entities")

// Entity is one stored entity: its uid, its attributes, and the uids of its
// parents in the hierarchy.
//
// Parent references need not resolve to entities present in the store;
// ancestry is evaluated structurally. The parent relation is treated as a
// graph that may contain cycles in malformed data: traversal carries a
// visited set, so a cycle cannot cause non-termination.
type Entity struct {
	UID        types.EntityUID
	Attributes types.Record
	Parents    []types.EntityUID
}

// Store is an immutable snapshot of entities.
type Store struct {
	entities map[types.EntityUID]Entity

	// closure memoizes reflexive-transitive ancestor sets per uid. The
	// store never mutates, so cached sets stay valid and may be shared
	// across concurrent calls.
	closure sync.Map // types.EntityUID -> map[types.EntityUID]struct{}
}

// NewStore builds a Store from a collection of entities.
//
// Construction fails on a duplicate uid. The input slice is not retained.
func NewStore(list []Entity) (*Store, error) {
	m := make(map[types.EntityUID]Entity, len(list))
	for _, e := range list {
		if _, dup := m[e.UID]; dup {
			return nil, errors.Errorf("duplicate entity uid %s", e.UID)
		}
		m[e.UID] = e
	}

	logger.Debugf("built entity store with %d entities", len(m))

	return &Store{entities: m}, nil
}

// Get returns the entity with the given uid, if present.
func (s *Store) Get(uid types.EntityUID) (Entity, bool) {
	e, ok := s.entities[uid]
	return e, ok
}

// Len returns the number of entities in the snapshot.
func (s *Store) Len() int { return len(s.entities) }

// UIDs returns the uids of all stored entities in unspecified order.
func (s *Store) UIDs() []types.EntityUID {
	uids := make([]types.EntityUID, 0, len(s.entities))
	for uid := range s.entities {
		uids = append(uids, uid)
	}
	return uids
}

// Ancestors returns the reflexive-transitive ancestor set of uid: every
// entity reachable by following parent edges zero or more times. The uid
// itself is always a member.
//
// The result is memoized and must not be modified by callers.
func (s *Store) Ancestors(uid types.EntityUID) map[types.EntityUID]struct{} {
	if cached, ok := s.closure.Load(uid); ok {
		return cached.(map[types.EntityUID]struct{})
	}

	// BFS with a visited set; cycles in the parent data are traversed at
	// most once per node.
	visited := map[types.EntityUID]struct{}{uid: {}}
	queue := []types.EntityUID{uid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		e, ok := s.entities[cur]
		if !ok {
			// absent entities are legal ancestors; they contribute no
			// further edges
			continue
		}
		for _, p := range e.Parents {
			if _, seen := visited[p]; !seen {
				visited[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}

	actual, _ := s.closure.LoadOrStore(uid, visited)
	return actual.(map[types.EntityUID]struct{})
}

// IsAncestor reports whether candidate is reachable from uid by following
// parent edges zero or more times. The relation is reflexive:
// IsAncestor(x, x) is always true.
func (s *Store) IsAncestor(uid, candidate types.EntityUID) bool {
	if uid == candidate {
		return true
	}
	_, ok := s.Ancestors(uid)[candidate]
	return ok
}

// Attribute returns the named attribute of the entity with the given uid.
//
// An absent entity yields an EntityNotFound error; a present entity without
// the attribute yields AttributeNotFound. Callers must not conflate the two.
func (s *Store) Attribute(uid types.EntityUID, name string) (types.Value, *common.EvalError) {
	e, ok := s.entities[uid]
	if !ok {
		return nil, common.NewEvalError(common.EntityNotFound, "entity %s not found", uid)
	}
	v, ok := e.Attributes.Get(name)
	if !ok {
		return nil, common.NewEvalError(common.AttributeNotFound, "entity %s has no attribute %q", uid, name)
	}
	return v, nil
}

// HasAttribute reports whether the entity exists and carries the named
// attribute.
func (s *Store) HasAttribute(uid types.EntityUID, name string) bool {
	e, ok := s.entities[uid]
	if !ok {
		return false
	}
	_, ok = e.Attributes.Get(name)
	return ok
}
