//
//  Copyright © the Cedrus authors. All rights reserved.
//

package entities

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/pkg/errors"
)

// The wire format for entities is a JSON array of records:
//
//	[{"uid": {"type": "User", "id": "alice"},
//	  "attrs": {"age": 30, "manager": {"__entity": {"type": "User", "id": "bob"}}},
//	  "parents": [{"type": "Group", "id": "staff"}]}]
//
// Attribute values use the escape forms {"__entity": {...}} for entity
// references and {"__extn": {"fn": ..., "arg": ...}} for extension values.

type uidJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type entityJSON struct {
	UID     uidJSON                    `json:"uid"`
	Attrs   map[string]json.RawMessage `json:"attrs"`
	Parents []uidJSON                  `json:"parents"`
}

type extnJSON struct {
	Fn  string `json:"fn"`
	Arg string `json:"arg"`
}

// FromJSON parses a JSON entity collection into a slice of entities.
func FromJSON(data []byte) ([]Entity, error) {
	var raw []entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing entities")
	}

	list := make([]Entity, 0, len(raw))
	for _, r := range raw {
		if r.UID.Type == "" && r.UID.ID == "" {
			return nil, errors.New("entity record is missing a uid")
		}

		attrs := make(types.Record, len(r.Attrs))
		for name, rawVal := range r.Attrs {
			v, err := ValueFromJSON(rawVal)
			if err != nil {
				return nil, errors.Wrapf(err, "entity %s::%q attribute %q", r.UID.Type, r.UID.ID, name)
			}
			attrs[name] = v
		}

		parents := make([]types.EntityUID, len(r.Parents))
		for i, p := range r.Parents {
			parents[i] = types.NewEntityUID(p.Type, p.ID)
		}

		list = append(list, Entity{
			UID:        types.NewEntityUID(r.UID.Type, r.UID.ID),
			Attributes: attrs,
			Parents:    parents,
		})
	}

	return list, nil
}

// StoreFromJSON parses a JSON entity collection and builds a Store from it.
func StoreFromJSON(data []byte) (*Store, error) {
	list, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	return NewStore(list)
}

// ValueFromJSON converts one JSON-encoded value into a runtime value,
// honoring the __entity and __extn escape forms.
func ValueFromJSON(data []byte) (types.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return valueFromDecoded(v)
}

// RecordFromDecoded converts an already-decoded JSON object (as produced by
// encoding/json into map[string]interface{}) into a Record. Used by the
// request boundary to build context records.
func RecordFromDecoded(m map[string]interface{}) (types.Record, error) {
	rec := make(types.Record, len(m))
	for k, v := range m {
		val, err := valueFromDecoded(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", k)
		}
		rec[k] = val
	}
	return rec, nil
}

func valueFromDecoded(v interface{}) (types.Value, error) {
	switch x := v.(type) {
	case bool:
		return types.Boolean(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("number %s is not a 64-bit integer", x)
		}
		return types.Long(n), nil
	case float64:
		// values decoded without UseNumber arrive as float64
		n := int64(x)
		if float64(n) != x {
			return nil, fmt.Errorf("number %v is not a 64-bit integer", x)
		}
		return types.Long(n), nil
	case int:
		// yaml decoders produce native ints
		return types.Long(x), nil
	case int64:
		return types.Long(x), nil
	case string:
		return types.String(x), nil
	case []interface{}:
		set := make(types.Set, len(x))
		for i, e := range x {
			val, err := valueFromDecoded(e)
			if err != nil {
				return nil, err
			}
			set[i] = val
		}
		return set, nil
	case map[string]interface{}:
		if len(x) == 1 {
			if ref, ok := x["__entity"]; ok {
				return entityFromDecoded(ref)
			}
			if ext, ok := x["__extn"]; ok {
				return extensionFromDecoded(ext)
			}
		}
		rec := make(types.Record, len(x))
		for k, e := range x {
			val, err := valueFromDecoded(e)
			if err != nil {
				return nil, err
			}
			rec[k] = val
		}
		return rec, nil
	case nil:
		return nil, fmt.Errorf("null is not a legal value")
	default:
		return nil, fmt.Errorf("unsupported value %v", v)
	}
}

func entityFromDecoded(v interface{}) (types.Value, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("__entity must be an object")
	}
	typ, _ := m["type"].(string)
	id, _ := m["id"].(string)
	if typ == "" {
		return nil, fmt.Errorf("__entity is missing a type")
	}
	return types.NewEntityUID(typ, id), nil
}

func extensionFromDecoded(v interface{}) (types.Value, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("__extn must be an object")
	}
	fn, _ := m["fn"].(string)
	arg, _ := m["arg"].(string)

	switch fn {
	case "ip":
		return types.ParseIPAddr(arg)
	case "decimal":
		return types.ParseDecimal(arg)
	default:
		return nil, fmt.Errorf("unknown extension function %q", fn)
	}
}
