//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package check runs decision test suites against policy bundles.
//
// A suite is a YAML file of authorization requests with expected
// decisions:
//
//	defaults:
//	  context:
//	    mfa: true
//	tests:
//	  - name: alice-can-view
//	    request:
//	      principal: {type: User, id: alice}
//	      action: {type: Action, id: view}
//	      resource: {type: Photo, id: vacation.jpg}
//	      context: {port: 443}
//	    result:
//	      allow: true
//
// Per-test context entries are merged over the suite defaults.
package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cedrus-authz/cedrus/cmd/cedrus/common"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/mohae/deepcopy"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// UID names one entity in a test request.
type UID struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

// Request is the request under test.
type Request struct {
	Principal UID            `yaml:"principal"`
	Action    UID            `yaml:"action"`
	Resource  UID            `yaml:"resource"`
	Context   map[string]any `yaml:"context"`
}

// TestCase represents a single decision test case
type TestCase struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Request     Request `yaml:"request"`
	Result      Result  `yaml:"result"`
}

// Result represents the expected result of a test
type Result struct {
	Allow bool `yaml:"allow"`
}

// Defaults apply to every test case unless overridden.
type Defaults struct {
	Context map[string]any `yaml:"context"`
}

// Suite represents a collection of test cases
type Suite struct {
	Defaults Defaults   `yaml:"defaults"`
	Tests    []TestCase `yaml:"tests"`
}

// Execute runs a suite of policy decision tests from a YAML file
func Execute(ctx context.Context, cmd *cli.Command) error {
	suite, err := loadSuite(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to load test suite: %w", err)
	}

	if len(suite.Tests) == 0 {
		return fmt.Errorf("no tests found in test suite")
	}

	testsToRun := filterTests(suite.Tests, cmd.StringSlice("test"))
	if len(testsToRun) == 0 {
		return fmt.Errorf("no tests match the specified patterns")
	}

	// With --trace, decision records go to stderr for debugging; otherwise
	// access logging is suppressed for cleaner output.
	accessLogWriter := io.Discard
	if cmd.Root().Bool("trace") {
		accessLogWriter = os.Stderr
	}
	authz, err := common.NewCliAuthorizer(cmd, accessLogWriter)
	if err != nil {
		return err
	}
	defer authz.Close()

	passed := 0
	failed := 0

	for _, tc := range testsToRun {
		req, err := buildRequest(suite.Defaults, tc.Request)
		if err != nil {
			fmt.Printf("%s: ERROR (%v)\n", tc.Name, err)
			failed++
			continue
		}

		res, err := authz.Authorize(ctx, req)
		if err != nil {
			fmt.Printf("%s: ERROR (%v)\n", tc.Name, err)
			failed++
			continue
		}

		allowed := res.Decision == types.Allow
		if allowed == tc.Result.Allow {
			fmt.Printf("%s: PASS\n", tc.Name)
			passed++
		} else {
			fmt.Printf("%s: FAIL (expected allow=%t, got allow=%t)\n", tc.Name, tc.Result.Allow, allowed)
			for _, e := range res.Diagnostics.Errors {
				fmt.Printf("  policy %s: %s\n", e.PolicyID, e.Message)
			}
			failed++
		}
	}

	total := passed + failed
	fmt.Printf("\n%d/%d tests passed\n", passed, total)

	if failed > 0 {
		return cli.Exit("", 1)
	}

	return nil
}

// buildRequest converts one YAML test request into a typed request,
// merging the per-test context over the suite defaults.
func buildRequest(defaults Defaults, r Request) (types.Request, error) {
	merged := map[string]any{}
	if defaults.Context != nil {
		// copy so one test's overrides never leak into the next
		merged = deepcopy.Copy(defaults.Context).(map[string]any)
	}
	for k, v := range r.Context {
		merged[k] = v
	}

	ctxRecord, err := entities.RecordFromDecoded(merged)
	if err != nil {
		return types.Request{}, fmt.Errorf("context: %w", err)
	}

	return types.Request{
		Principal: types.NewEntityUID(r.Principal.Type, r.Principal.ID),
		Action:    types.NewEntityUID(r.Action.Type, r.Action.ID),
		Resource:  types.NewEntityUID(r.Resource.Type, r.Resource.ID),
		Context:   ctxRecord,
	}, nil
}

// loadSuite reads and parses a test suite from a YAML file
func loadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI tool intentionally reads user-provided paths
	if err != nil {
		return nil, fmt.Errorf("failed to read test file: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse test file: %w", err)
	}

	return &suite, nil
}

// filterTests returns tests that match the specified patterns.
// If no patterns are specified, all tests are returned.
// Patterns support glob matching (e.g., "admin-*" matches "admin-can-read").
func filterTests(tests []TestCase, patterns []string) []TestCase {
	if len(patterns) == 0 {
		return tests
	}

	var filtered []TestCase
	for _, tc := range tests {
		for _, pattern := range patterns {
			matched, err := filepath.Match(pattern, tc.Name)
			if err != nil {
				// Invalid pattern - treat as literal match
				if pattern == tc.Name {
					filtered = append(filtered, tc)
					break
				}
			} else if matched {
				filtered = append(filtered, tc)
				break
			}
		}
	}

	return filtered
}
