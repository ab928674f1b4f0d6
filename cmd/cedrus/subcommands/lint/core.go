//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package lint validates policy bundle YAML files: document structure,
// policy syntax, and entity well-formedness.
package lint

import (
	"context"
	"fmt"

	"github.com/cedrus-authz/cedrus/pkg/bundle"
	"github.com/urfave/cli/v3"
)

// Execute validates each bundle named by --file, then cross-checks the
// collection for bundle name, policy id, and entity uid collisions.
func Execute(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.StringSlice("file")

	failed := 0
	var loaded []string
	for _, path := range paths {
		b, err := bundle.Load(path)
		if err != nil {
			fmt.Printf("%s: FAIL\n  %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: OK (bundle %q, %d policies, %d entities)\n",
			path, b.Metadata.Name, b.Policies.Len(), len(b.Entities))
		loaded = append(loaded, path)
	}

	if failed == 0 && len(loaded) > 1 {
		if err := crossCheck(loaded); err != nil {
			fmt.Printf("cross-bundle validation: FAIL\n  %v\n", err)
			failed++
		} else {
			fmt.Println("cross-bundle validation: OK")
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d file(s) failed validation", failed, len(paths)), 1)
	}

	return nil
}

// crossCheck verifies that the bundles can be merged: duplicate bundle
// names, policy ids, or entity uids across files are reported here rather
// than at serve time.
func crossCheck(paths []string) error {
	r, err := bundle.NewRegistry(paths)
	if err != nil {
		return err
	}
	if _, err := r.PolicySet(); err != nil {
		return err
	}
	if _, err := r.Store(); err != nil {
		return err
	}
	return nil
}
