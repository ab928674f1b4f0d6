//
//  Copyright © the Cedrus authors. All rights reserved.
//

package core

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/core/accesslog"
	"github.com/cedrus-authz/cedrus/pkg/core/config"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/options"
	"github.com/cedrus-authz/cedrus/pkg/core/parser"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, factory accesslog.Factory) *PolicyEngine {
	t.Helper()
	config.ResetConfig()
	if factory == nil {
		factory = accesslog.NewNullFactory()
	}
	pe, err := NewPolicyEngine(&options.EngineOptions{AccessLogFactory: factory})
	require.NoError(t, err)
	t.Cleanup(pe.Close)
	return pe
}

func mustParse(t *testing.T, src string) *model.PolicySet {
	t.Helper()
	ps, err := parser.Parse(src)
	require.NoError(t, err)
	return ps
}

func emptyStore(t *testing.T) *entities.Store {
	t.Helper()
	store, err := entities.NewStore(nil)
	require.NoError(t, err)
	return store
}

func aliceUpdatesPhoto() types.Request {
	return types.Request{
		Principal: types.NewEntityUID("User", "alice"),
		Action:    types.NewEntityUID("Action", "update"),
		Resource:  types.NewEntityUID("Photo", "VacationPhoto94.jpg"),
		Context:   types.Record{},
	}
}

func TestAuthorizeSinglePermit(t *testing.T) {
	pe := newTestEngine(t, nil)
	ps := mustParse(t, `permit(principal == User::"alice", action == Action::"update", resource == Photo::"VacationPhoto94.jpg");`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Allow, res.Decision)
	assert.Equal(t, []string{"policy0"}, res.Diagnostics.Reasons)
	assert.Empty(t, res.Diagnostics.Errors)
}

func TestAuthorizeDefaultDeny(t *testing.T) {
	pe := newTestEngine(t, nil)
	ps := mustParse(t, `permit(principal == User::"alice", action == Action::"update", resource == Photo::"VacationPhoto94.jpg");`)

	req := aliceUpdatesPhoto()
	req.Principal = types.NewEntityUID("User", "bob")

	res := pe.Authorize(context.Background(), ps, emptyStore(t), req, nil)
	assert.Equal(t, types.Deny, res.Decision)
	assert.Empty(t, res.Diagnostics.Reasons)
	assert.Empty(t, res.Diagnostics.Errors)
}

func TestAuthorizeEmptyPolicySet(t *testing.T) {
	pe := newTestEngine(t, nil)

	res := pe.Authorize(context.Background(), model.EmptyPolicySet(), emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Deny, res.Decision)
	assert.Empty(t, res.Diagnostics.Reasons)
}

func TestAuthorizeForbidOverridesPermit(t *testing.T) {
	pe := newTestEngine(t, nil)
	ps := mustParse(t, `
		@id("block-risky")
		forbid(principal, action, resource) when { context.risky == true };
		@id("allow-all")
		permit(principal, action, resource);
	`)

	req := aliceUpdatesPhoto()
	req.Context = types.Record{"risky": types.True}

	res := pe.Authorize(context.Background(), ps, emptyStore(t), req, nil)
	assert.Equal(t, types.Deny, res.Decision)
	assert.Equal(t, []string{"block-risky"}, res.Diagnostics.Reasons)

	req.Context = types.Record{"risky": types.False}
	res = pe.Authorize(context.Background(), ps, emptyStore(t), req, nil)
	assert.Equal(t, types.Allow, res.Decision)
	assert.Equal(t, []string{"allow-all"}, res.Diagnostics.Reasons)
}

func TestAuthorizeOrderIndependence(t *testing.T) {
	pe := newTestEngine(t, nil)

	forward := mustParse(t, `
		forbid(principal, action, resource);
		permit(principal, action, resource);
	`)
	reversed := mustParse(t, `
		permit(principal, action, resource);
		forbid(principal, action, resource);
	`)

	req := aliceUpdatesPhoto()
	a := pe.Authorize(context.Background(), forward, emptyStore(t), req, nil)
	b := pe.Authorize(context.Background(), reversed, emptyStore(t), req, nil)

	assert.Equal(t, types.Deny, a.Decision)
	assert.Equal(t, a.Decision, b.Decision)
}

func TestAuthorizeMultipleReasonsSorted(t *testing.T) {
	pe := newTestEngine(t, nil)
	ps := mustParse(t, `
		@id("zeta")
		permit(principal, action, resource);
		@id("alpha")
		permit(principal, action, resource);
	`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Allow, res.Decision)
	assert.Equal(t, []string{"alpha", "zeta"}, res.Diagnostics.Reasons)
}

func TestAuthorizeErrorIsolation(t *testing.T) {
	pe := newTestEngine(t, nil)

	// the erroring permit fails closed without disturbing the healthy one
	ps := mustParse(t, `
		@id("broken")
		permit(principal, action, resource) when { context.missing > 1 };
		@id("healthy")
		permit(principal, action, resource);
	`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Allow, res.Decision)
	assert.Equal(t, []string{"healthy"}, res.Diagnostics.Reasons)
	require.Len(t, res.Diagnostics.Errors, 1)
	assert.Equal(t, "broken", res.Diagnostics.Errors[0].PolicyID)
	assert.Contains(t, res.Diagnostics.Errors[0].Message, "AttributeNotFound")
}

func TestAuthorizeErroringForbidFailsClosed(t *testing.T) {
	pe := newTestEngine(t, nil)

	// an erroring forbid is not satisfied, so the permit still allows
	ps := mustParse(t, `
		@id("broken-forbid")
		forbid(principal, action, resource) when { context.missing == true };
		@id("allow")
		permit(principal, action, resource);
	`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Allow, res.Decision)
	assert.Equal(t, []string{"allow"}, res.Diagnostics.Reasons)
	assert.Equal(t, []string{"broken-forbid"}, res.ErroringPolicies())
}

func TestAuthorizeAllErrorsDeny(t *testing.T) {
	pe := newTestEngine(t, nil)
	ps := mustParse(t, `permit(principal, action, resource) when { context.missing == true };`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Deny, res.Decision)
	assert.Empty(t, res.Diagnostics.Reasons)
	assert.Len(t, res.Diagnostics.Errors, 1)
}

func TestAuthorizeScopeMismatchSkipsConditions(t *testing.T) {
	pe := newTestEngine(t, nil)

	// the condition would error, but the scope never matches so it is
	// never evaluated
	ps := mustParse(t, `permit(principal == User::"bob", action, resource) when { context.missing > 1 };`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Deny, res.Decision)
	assert.Empty(t, res.Diagnostics.Errors)
}

func TestAuthorizeHierarchy(t *testing.T) {
	pe := newTestEngine(t, nil)

	store, err := entities.NewStore([]entities.Entity{
		{
			UID:     types.NewEntityUID("User", "alice"),
			Parents: []types.EntityUID{types.NewEntityUID("Group", "admins")},
		},
		{UID: types.NewEntityUID("Group", "admins")},
	})
	require.NoError(t, err)

	ps := mustParse(t, `permit(principal in Group::"admins", action, resource);`)

	res := pe.Authorize(context.Background(), ps, store, aliceUpdatesPhoto(), nil)
	assert.Equal(t, types.Allow, res.Decision)

	req := aliceUpdatesPhoto()
	req.Principal = types.NewEntityUID("User", "mallory")
	res = pe.Authorize(context.Background(), ps, store, req, nil)
	assert.Equal(t, types.Deny, res.Decision)
}

func TestAuthorizeSequentialMatchesParallel(t *testing.T) {
	ps := mustParse(t, `
		forbid(principal, action, resource) when { context.risky == true };
		permit(principal, action, resource);
	`)
	req := aliceUpdatesPhoto()
	req.Context = types.Record{"risky": types.True}

	parallel := newTestEngine(t, nil)
	parallelRes := parallel.Authorize(context.Background(), ps, emptyStore(t), req, nil)

	sequential := newTestEngine(t, nil)
	sequential.parallel = false
	sequentialRes := sequential.Authorize(context.Background(), ps, emptyStore(t), req, nil)

	assert.Equal(t, parallelRes, sequentialRes)
}

func TestAuthorizeAuditRecord(t *testing.T) {
	var buf bytes.Buffer
	pe := newTestEngine(t, accesslog.NewIoWriterFactory(&buf))
	ps := mustParse(t, `permit(principal == User::"alice", action == Action::"update", resource == Photo::"VacationPhoto94.jpg");`)

	req := aliceUpdatesPhoto()
	req.Context = types.Record{"mfa": types.True}
	pe.Authorize(context.Background(), ps, emptyStore(t), req, nil)

	var record accesslog.DecisionRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, `User::"alice"`, record.Principal)
	assert.Equal(t, `Action::"update"`, record.Action)
	assert.Equal(t, `Photo::"VacationPhoto94.jpg"`, record.Resource)
	assert.Equal(t, "allow", record.Decision)
	assert.Equal(t, []string{"policy0"}, record.Reasons)
	assert.Equal(t, true, record.Context["mfa"])
}

func TestAuthorizeProbeSkipsAudit(t *testing.T) {
	var buf bytes.Buffer
	pe := newTestEngine(t, accesslog.NewIoWriterFactory(&buf))
	ps := mustParse(t, `permit(principal, action, resource);`)

	res := pe.Authorize(context.Background(), ps, emptyStore(t), aliceUpdatesPhoto(), &options.AuthzOptions{Probe: true})
	assert.Equal(t, types.Allow, res.Decision)
	assert.Zero(t, buf.Len())
}
