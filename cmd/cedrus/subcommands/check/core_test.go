//
//  Copyright © the Cedrus authors. All rights reserved.
//

package check

import (
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterTests(t *testing.T) {
	tests := []TestCase{
		{Name: "admin-can-read"},
		{Name: "admin-can-write"},
		{Name: "user-denied"},
	}

	assert.Len(t, filterTests(tests, nil), 3)
	assert.Len(t, filterTests(tests, []string{"admin-*"}), 2)
	assert.Len(t, filterTests(tests, []string{"user-denied"}), 1)
	assert.Empty(t, filterTests(tests, []string{"nothing-*"}))
	// invalid glob falls back to literal matching
	assert.Len(t, filterTests(tests, []string{"user-denied", "["}), 1)
}

func TestBuildRequestMergesDefaults(t *testing.T) {
	defaults := Defaults{Context: map[string]any{"mfa": true, "port": 80}}
	r := Request{
		Principal: UID{Type: "User", ID: "alice"},
		Action:    UID{Type: "Action", ID: "view"},
		Resource:  UID{Type: "Photo", ID: "p"},
		Context:   map[string]any{"port": 443},
	}

	req, err := buildRequest(defaults, r)
	require.NoError(t, err)

	assert.Equal(t, types.NewEntityUID("User", "alice"), req.Principal)
	assert.True(t, types.True.Equal(req.Context["mfa"]))
	assert.True(t, types.Long(443).Equal(req.Context["port"]))

	// the defaults map itself must be untouched
	assert.Equal(t, 80, defaults.Context["port"])
}

func TestBuildRequestBadContext(t *testing.T) {
	_, err := buildRequest(Defaults{}, Request{
		Principal: UID{Type: "User", ID: "a"},
		Action:    UID{Type: "Action", ID: "b"},
		Resource:  UID{Type: "Photo", ID: "c"},
		Context:   map[string]any{"score": 1.5},
	})
	assert.Error(t, err)
}

func TestLoadSuite(t *testing.T) {
	_, err := loadSuite("no-such-file.yaml")
	assert.Error(t, err)
}
