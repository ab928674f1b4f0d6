//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package bundle loads policy bundles from YAML files.
//
// A policy bundle packages a set of policies in source form together with
// the entities they reference, under a versioned document header:
//
//	apiVersion: cedrus.io/v1alpha1
//	kind: PolicyBundle
//	metadata:
//	  name: photos
//	spec:
//	  policies: |
//	    permit(principal in Group::"viewers", action == Action::"view", resource);
//	  entities:
//	    - uid: {type: User, id: alice}
//	      attrs: {age: 30}
//	      parents:
//	        - {type: Group, id: viewers}
//
// Use [Load] or [Parse] for a single bundle and [NewRegistry] to merge
// several bundles into one policy set and entity snapshot.
package bundle

import (
	"fmt"
	"os"

	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/parser"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var logger = logging.GetLogger("bundle")

// Kind is the document kind every bundle must declare.
const Kind = "PolicyBundle"

// APIVersionV1Alpha1 is the current bundle schema version.
const APIVersionV1Alpha1 = "cedrus.io/v1alpha1"

// Preamble represents the header information of a bundle document.
type Preamble struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
}

// Metadata identifies a bundle.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type uidYAML struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

type entityYAML struct {
	UID     uidYAML                `yaml:"uid"`
	Attrs   map[string]interface{} `yaml:"attrs"`
	Parents []uidYAML              `yaml:"parents"`
}

type specYAML struct {
	Policies string       `yaml:"policies"`
	Entities []entityYAML `yaml:"entities"`
}

type bundleYAML struct {
	Preamble `yaml:",inline"`
	Metadata Metadata `yaml:"metadata"`
	Spec     specYAML `yaml:"spec"`
}

// PolicyBundle is one parsed bundle: its identifying metadata, its policies
// already parsed into a policy set, and its entity list.
type PolicyBundle struct {
	Metadata Metadata
	Policies *model.PolicySet
	Entities []entities.Entity
}

// Parse parses one bundle document.
func Parse(data []byte) (*PolicyBundle, error) {
	var preamble Preamble
	if err := yaml.Unmarshal(data, &preamble); err != nil {
		return nil, errors.Wrap(err, "parsing bundle header")
	}

	if preamble.Kind != Kind {
		return nil, fmt.Errorf("expected %s got %q", Kind, preamble.Kind)
	}

	switch preamble.APIVersion {
	case APIVersionV1Alpha1:
		return parseV1Alpha1(data)
	}

	return nil, fmt.Errorf("unsupported %s API Version %q", Kind, preamble.APIVersion)
}

// Load parses a bundle from a file path.
func Load(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI tool intentionally reads user-provided paths
	if err != nil {
		return nil, err
	}

	b, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}
	return b, nil
}

func parseV1Alpha1(data []byte) (*PolicyBundle, error) {
	var doc bundleYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing bundle")
	}

	if doc.Metadata.Name == "" {
		return nil, errors.New("bundle is missing metadata.name")
	}

	ps, err := parser.Parse(doc.Spec.Policies)
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %q policies", doc.Metadata.Name)
	}

	list := make([]entities.Entity, 0, len(doc.Spec.Entities))
	for _, e := range doc.Spec.Entities {
		if e.UID.Type == "" && e.UID.ID == "" {
			return nil, errors.Errorf("bundle %q: entity record is missing a uid", doc.Metadata.Name)
		}

		attrs, err := entities.RecordFromDecoded(e.Attrs)
		if err != nil {
			return nil, errors.Wrapf(err, "bundle %q entity %s::%q", doc.Metadata.Name, e.UID.Type, e.UID.ID)
		}

		parents := make([]types.EntityUID, len(e.Parents))
		for i, p := range e.Parents {
			parents[i] = types.NewEntityUID(p.Type, p.ID)
		}

		list = append(list, entities.Entity{
			UID:        types.NewEntityUID(e.UID.Type, e.UID.ID),
			Attributes: attrs,
			Parents:    parents,
		})
	}

	logger.Debugf("parsed bundle %q: %d policies, %d entities", doc.Metadata.Name, ps.Len(), len(list))

	return &PolicyBundle{
		Metadata: doc.Metadata,
		Policies: ps,
		Entities: list,
	}, nil
}
