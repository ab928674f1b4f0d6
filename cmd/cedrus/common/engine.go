package common

import (
	"fmt"
	"io"

	"github.com/cedrus-authz/cedrus/pkg/bundle"
	"github.com/cedrus-authz/cedrus/pkg/core"
	"github.com/cedrus-authz/cedrus/pkg/core/accesslog"
	"github.com/cedrus-authz/cedrus/pkg/core/options"
	"github.com/urfave/cli/v3"
)

// NewCliAuthorizer creates an Authorizer configured from CLI command flags.
// It loads the bundles named by --bundle, merges them into one policy set
// and entity snapshot, and directs the access log to the given writer.
func NewCliAuthorizer(cmd *cli.Command, accessLog io.Writer) (core.Authorizer, error) {
	bundles := cmd.StringSlice("bundle")
	if len(bundles) == 0 {
		return nil, fmt.Errorf("at least one bundle must be specified")
	}

	r, err := bundle.NewRegistry(bundles)
	if err != nil {
		return nil, err
	}

	ps, err := r.PolicySet()
	if err != nil {
		return nil, err
	}

	store, err := r.Store()
	if err != nil {
		return nil, err
	}

	return core.NewAuthorizer(ps, store,
		options.WithAccessLog(accesslog.NewIoWriterFactory(accessLog)))
}
