//
//  Copyright © the Cedrus authors. All rights reserved.
//

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityUID uniquely identifies an entity by type name and identifier.
//
// Equality is structural. A total ordering over uids ([EntityUID.Compare])
// keeps iteration and diagnostics deterministic.
type EntityUID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewEntityUID creates an EntityUID from a type name and identifier.
func NewEntityUID(typ, id string) EntityUID {
	return EntityUID{Type: typ, ID: id}
}

// TypeName implements [Value].
func (u EntityUID) TypeName() string { return "entity" }

// Equal implements [Value].
func (u EntityUID) Equal(other Value) bool {
	o, ok := other.(EntityUID)
	return ok && u == o
}

// IsZero reports whether the uid has neither type nor id. Zero uids are
// rejected at the request boundary before evaluation begins.
func (u EntityUID) IsZero() bool {
	return u.Type == "" && u.ID == ""
}

// Compare returns a negative number, zero, or a positive number when u
// sorts before, equal to, or after other. The ordering is by type name,
// then identifier.
func (u EntityUID) Compare(other EntityUID) int {
	if c := strings.Compare(u.Type, other.Type); c != 0 {
		return c
	}
	return strings.Compare(u.ID, other.ID)
}

// String renders the uid in the policy language syntax, e.g. User::"alice".
func (u EntityUID) String() string {
	return fmt.Sprintf("%s::%q", u.Type, u.ID)
}

// MarshalJSON renders the uid in the entity-reference escape form used by
// the entity and context JSON formats.
func (u EntityUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"__entity": map[string]string{"type": u.Type, "id": u.ID},
	})
}
