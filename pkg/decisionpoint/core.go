//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package decisionpoint provides interfaces and implementations for
// Policy Decision Point (PDP) servers.
//
// A PDP server exposes an authorizer as a network service that Policy
// Enforcement Points (PEPs) can call to make authorization decisions.
//
// # Usage
//
// Create and start a decision point server:
//
//	authz, _ := core.NewAuthorizer(ps, store)
//	server, _ := generic.CreateServer(authz, 8080)
//	defer server.Stop(ctx)
package decisionpoint

import "context"

// Server is the interface for PDP servers that can be gracefully stopped.
//
// Implementations must ensure that [Stop] completes any in-flight requests
// before returning.
type Server interface {
	// Stop gracefully shuts down the server, waiting for active requests
	// to complete or until the context is cancelled.
	Stop(context.Context) error
}
