//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package core provides the primary interface for Cedrus, a policy-based
// authorization engine.
//
// An [Authorizer] is bound at construction to an immutable policy set and
// entity snapshot, and answers authorization requests by evaluating every
// policy against the request: any satisfied forbid denies, otherwise any
// satisfied permit allows, otherwise the request is denied by default.
// Each decision can optionally be logged to an access log for audit trail
// purposes.
//
// # Quick Start
//
// Parse policies, build an entity snapshot, and create an authorizer:
//
//	ps, err := parser.Parse(`permit(principal == User::"alice", action, resource);`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := entities.NewStore(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	authz, err := core.NewAuthorizer(ps, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Make an authorization decision:
//
//	res, err := authz.Authorize(ctx, types.Request{
//	    Principal: types.NewEntityUID("User", "alice"),
//	    Action:    types.NewEntityUID("Action", "view"),
//	    Resource:  types.NewEntityUID("Photo", "vacation.jpg"),
//	    Context:   types.Record{},
//	})
//
// # Configuration
//
// The authorizer supports configuration via functional options:
//
//	authz, err := core.NewAuthorizer(ps, store,
//	    options.WithAccessLog(accesslog.NewNullFactory()),
//	)
//
// # Probe Mode
//
// For UI capabilities discovery without impacting audit logs, use probe mode:
//
//	res, err := authz.Authorize(ctx, req, options.SetProbeMode(true))
//
// See the [options] package for all available configuration options.
package core

import (
	"context"
	"os"

	"github.com/cedrus-authz/cedrus/internal/core"
	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/core/accesslog"
	"github.com/cedrus-authz/cedrus/pkg/core/config"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/options"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/pkg/errors"
)

var logger = logging.GetLogger("cedrus")

// Authorizer is the primary interface for making authorization decisions.
//
// An Authorizer is immutable once created: it holds one policy set and one
// entity snapshot for its lifetime, so updating either means building a new
// Authorizer. Implementations are safe for concurrent use by multiple
// goroutines.
type Authorizer interface {
	// Authorize evaluates one request and returns the decision with
	// diagnostics.
	//
	// Authorize returns an error only for caller misuse (a malformed
	// request); policy evaluation errors never surface here, they are
	// reported in the response diagnostics with the affected policy
	// failing closed.
	Authorize(ctx context.Context, req types.Request, authzOptions ...options.AuthzOptionsFunc) (types.Response, error)

	// PolicySet returns the bound policy set.
	PolicySet() *model.PolicySet

	// Store returns the bound entity snapshot.
	Store() *entities.Store

	// Close releases the audit stream.
	Close()
}

// AuthorizerImpl is the default implementation of the [Authorizer]
// interface. Use [NewAuthorizer] to create a properly initialized instance.
type AuthorizerImpl struct {
	instance *core.PolicyEngine
	policies *model.PolicySet
	store    *entities.Store
}

// NewAuthorizer creates an [Authorizer] bound to the given policy set and
// entity snapshot.
//
// By default, decisions are logged as JSON to stdout. Use functional
// options to configure a different access log:
//
//	authz, err := core.NewAuthorizer(ps, store,
//	    options.WithAccessLog(accesslog.NewNullFactory()),
//	)
//
// NewAuthorizer loads configuration from environment variables and config
// files before initializing the engine. See the [config] package for
// details.
func NewAuthorizer(ps *model.PolicySet, store *entities.Store, engineOptions ...options.EngineOptionsFunc) (Authorizer, error) {
	if ps == nil {
		return nil, errors.New("policy set must not be nil")
	}
	if store == nil {
		return nil, errors.New("entity store must not be nil")
	}

	err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "error loading config")
	}

	opts := &options.EngineOptions{
		AccessLogFactory: accesslog.NewIoWriterFactoryWithOptions(os.Stdout, accesslog.Options{
			PrettyPrint: config.VConfig.GetBool(config.AccessLogPretty),
		}),
	}
	for _, o := range engineOptions {
		o(opts)
	}

	instance, err := core.NewPolicyEngine(opts)
	if err != nil {
		return nil, err
	}

	logger.Debugf("authorizer created with %d policies and %d entities", ps.Len(), store.Len())

	return &AuthorizerImpl{
		instance: instance,
		policies: ps,
		store:    store,
	}, nil
}

// Authorize evaluates one request against the bound policy set and entity
// snapshot.
//
// Authorization options can modify the evaluation behavior:
//
//	// Enable probe mode to skip access logging
//	res, err := authz.Authorize(ctx, req, options.SetProbeMode(true))
//
// The decision and any evaluation errors are logged to the configured
// access log (unless probe mode is enabled).
func (a *AuthorizerImpl) Authorize(ctx context.Context, req types.Request, authzOptions ...options.AuthzOptionsFunc) (types.Response, error) {
	opts := &options.AuthzOptions{Probe: false}
	for _, o := range authzOptions {
		o(opts)
	}

	if err := req.Validate(); err != nil {
		return types.Response{}, err
	}

	return a.instance.Authorize(ctx, a.policies, a.store, req, opts), nil
}

// PolicySet returns the policy set this authorizer was built with.
func (a *AuthorizerImpl) PolicySet() *model.PolicySet {
	return a.policies
}

// Store returns the entity snapshot this authorizer was built with.
func (a *AuthorizerImpl) Store() *entities.Store {
	return a.store
}

// Close releases the audit stream. The authorizer must not be used after
// Close.
func (a *AuthorizerImpl) Close() {
	a.instance.Close()
}
