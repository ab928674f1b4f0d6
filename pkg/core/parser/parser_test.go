//
//  Copyright © the Cedrus authors. All rights reserved.
//

package parser_test

import (
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/core/ast"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/parser"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *model.PolicySet {
	t.Helper()
	ps, err := parser.Parse(src)
	require.NoError(t, err)
	return ps
}

func TestParseScopedPermit(t *testing.T) {
	ps := mustParse(t, `
		permit(
			principal == User::"alice",
			action == Action::"update",
			resource == Photo::"VacationPhoto94.jpg"
		);`)

	require.Equal(t, 1, ps.Len())
	p := ps.Policies()[0]
	assert.Equal(t, "policy0", p.ID)
	assert.Equal(t, model.Permit, p.Effect)
	assert.Equal(t, model.ScopeEq{Entity: types.NewEntityUID("User", "alice")}, p.Principal)
	assert.Equal(t, model.ScopeEq{Entity: types.NewEntityUID("Action", "update")}, p.Action)
	assert.Equal(t, model.ScopeEq{Entity: types.NewEntityUID("Photo", "VacationPhoto94.jpg")}, p.Resource)
	assert.Empty(t, p.Conditions)
}

func TestParseScopeVariants(t *testing.T) {
	ps := mustParse(t, `
		forbid(
			principal is User in Group::"blocked",
			action in [Action::"view", Action::"edit"],
			resource in Album::"vacation"
		);
		permit(principal is Service, action, resource);`)

	require.Equal(t, 2, ps.Len())

	forbid := ps.Policies()[0]
	assert.Equal(t, model.Forbid, forbid.Effect)
	assert.Equal(t, model.ScopeIsIn{EntityType: "User", Entity: types.NewEntityUID("Group", "blocked")}, forbid.Principal)
	assert.Equal(t, model.ScopeInSet{Entities: []types.EntityUID{
		types.NewEntityUID("Action", "view"),
		types.NewEntityUID("Action", "edit"),
	}}, forbid.Action)
	assert.Equal(t, model.ScopeIn{Entity: types.NewEntityUID("Album", "vacation")}, forbid.Resource)

	permit := ps.Policies()[1]
	assert.Equal(t, "policy1", permit.ID)
	assert.Equal(t, model.ScopeIs{EntityType: "Service"}, permit.Principal)
	assert.Equal(t, model.ScopeAny{}, permit.Action)
	assert.Equal(t, model.ScopeAny{}, permit.Resource)
}

func TestParseAnnotations(t *testing.T) {
	ps := mustParse(t, `
		@id("block-risky")
		@advice("deny risky contexts")
		forbid(principal, action, resource) when { context.risky == true };`)

	p := ps.Policies()[0]
	assert.Equal(t, "block-risky", p.ID)
	assert.Equal(t, "deny risky contexts", p.Annotations["advice"])
	require.Len(t, p.Conditions, 1)
	assert.Equal(t, model.When, p.Conditions[0].Kind)
}

func TestParseConditions(t *testing.T) {
	ps := mustParse(t, `
		permit(principal, action, resource)
		when { principal.age >= 18 && context.mfa }
		unless { resource.restricted };`)

	p := ps.Policies()[0]
	require.Len(t, p.Conditions, 2)
	assert.Equal(t, model.When, p.Conditions[0].Kind)
	assert.Equal(t, model.Unless, p.Conditions[1].Kind)

	and, ok := p.Conditions[0].Body.(ast.And)
	require.True(t, ok)
	cmp, ok := and.Left.(ast.Comparison)
	require.True(t, ok)
	assert.Equal(t, ast.Ge, cmp.Op)
	assert.Equal(t, ast.GetAttribute{Arg: ast.Variable{Name: "principal"}, Attribute: "age"}, cmp.Left)
}

func TestParseExpressionForms(t *testing.T) {
	// each condition exercises a construct; parse errors fail the test
	ps := mustParse(t, `
		permit(principal, action, resource) when {
			if context.n + 2 * 3 - -4 > 10 then true else false
		};
		permit(principal, action, resource) when {
			principal in Group::"admins" || [1, 2].contains(context.n)
		};
		permit(principal, action, resource) when {
			{score: 3, "full name": "x"}["full name"] like "x*" &&
			context has device && !context.device.blocked
		};
		permit(principal, action, resource) when {
			principal is User in Group::"staff" &&
			context.addr.isInRange(ip("10.0.0.0/8")) &&
			decimal("0.5").lessThan(decimal("1.0")) &&
			context.tags.containsAll(["a"]) && context.tags.containsAny(["b"])
		};`)
	assert.Equal(t, 4, ps.Len())

	// spot-check the extension constructor shape
	cond := ps.Policies()[3].Conditions[0].Body
	assert.NotNil(t, cond)
}

func TestParseNamespacedEntityTypes(t *testing.T) {
	ps := mustParse(t, `permit(principal == MyApp::User::"alice", action, resource);`)
	assert.Equal(t,
		model.ScopeEq{Entity: types.NewEntityUID("MyApp::User", "alice")},
		ps.Policies()[0].Principal)
}

func TestParseStringEscapes(t *testing.T) {
	ps := mustParse(t, `permit(principal == User::"a\"b\\c", action, resource) when {
		context.s == "line1\nline2" && context.p like "file-\*-*"
	};`)
	assert.Equal(t, `a"b\c`, ps.Policies()[0].Principal.(model.ScopeEq).Entity.ID)
}

func TestParseComments(t *testing.T) {
	ps := mustParse(t, `
		// grant everything to admins
		permit(principal in Group::"admins", action, resource); // trailing`)
	assert.Equal(t, 1, ps.Len())
}

func TestParseErrorsCarryLocation(t *testing.T) {
	var errorTests = []struct {
		name string
		src  string
	}{
		{"missing semicolon", `permit(principal, action, resource)`},
		{"bad effect", `allow(principal, action, resource);`},
		{"unterminated string", `permit(principal == User::"alice, action, resource);`},
		{"is on action", `permit(principal, action is Action, resource);`},
		{"list on principal", `permit(principal in [User::"a"], action, resource);`},
		{"bad escape", `permit(principal, action, resource) when { context.x == "a\q" };`},
		{"dangling expression", `permit(principal, action, resource) when { context.x == };`},
		{"duplicate annotation", `@id("a") @id("b") permit(principal, action, resource);`},
		{"huge int", `permit(principal, action, resource) when { context.n == 99999999999999999999 };`},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.src)
			require.Error(t, err)
			perr, ok := err.(*parser.ParseError)
			require.True(t, ok, "expected *ParseError, got %T", err)
			assert.Positive(t, perr.Line)
			assert.Positive(t, perr.Col)
			assert.Regexp(t, `^\d+:\d+: `, perr.Error())
		})
	}
}

func TestParseDuplicateIDsRejected(t *testing.T) {
	_, err := parser.Parse(`
		@id("p") permit(principal, action, resource);
		@id("p") forbid(principal, action, resource);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate policy id "p"`)
}

func TestParseEmptyDocument(t *testing.T) {
	ps := mustParse(t, "  // nothing here\n")
	assert.Zero(t, ps.Len())
}

func TestParseNegativeLiteralBoundary(t *testing.T) {
	ps := mustParse(t, `permit(principal, action, resource) when {
		context.n == -9223372036854775808
	};`)
	cmp := ps.Policies()[0].Conditions[0].Body.(ast.Comparison)
	assert.Equal(t, ast.Literal{Value: types.Long(-9223372036854775808)}, cmp.Right)
}
