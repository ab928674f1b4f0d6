//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package parser implements the text front end for the policy language.
//
// [Parse] turns a policy document into a [model.PolicySet]. Any syntax or
// construction error aborts the whole document — a policy set is never
// partially constructed — and is reported as a [ParseError] carrying the
// line and column of the offending construct.
//
// Policies are named policy0, policy1, ... in document order unless an
// @id("...") annotation overrides the name.
package parser

import (
	"fmt"
	"strconv"

	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/core/ast"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

var logger = logging.GetLogger("parser")

// ParseError is a location-addressable syntax or construction error.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// Parse parses a policy document into a PolicySet.
func Parse(src string) (*model.PolicySet, error) {
	policies, err := ParsePolicies(src)
	if err != nil {
		return nil, err
	}
	ps, err := model.NewPolicySet(policies)
	if err != nil {
		// duplicate @id annotations; report with the document position
		return nil, &ParseError{Line: 1, Col: 1, Message: err.Error()}
	}

	logger.Debugf("parsed %d policies", ps.Len())
	return ps, nil
}

// ParsePolicies parses a policy document into its individual policies
// without constructing a set. Used by bundle loaders that merge documents
// before duplicate checking.
func ParsePolicies(src string) ([]*model.Policy, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.bump(); err != nil {
		return nil, err
	}

	var policies []*model.Policy
	for !p.at(tokenEOF) {
		pol, err := p.policy(len(policies))
		if err != nil {
			return nil, err
		}
		policies = append(policies, pol)
	}
	return policies, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) bump() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) at(kind tokenKind) bool { return p.tok.kind == kind }

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.tok.line, Col: p.tok.col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectPunct(s string) error {
	if !p.tok.isPunct(s) {
		return p.errorf("expected %q, found %s", s, p.tok.describe())
	}
	return p.bump()
}

func (p *parser) expectIdent(s string) error {
	if !p.tok.isIdent(s) {
		return p.errorf("expected %q, found %s", s, p.tok.describe())
	}
	return p.bump()
}

// stringLit consumes a string token and resolves its escapes.
func (p *parser) stringLit() (string, error) {
	if !p.at(tokenString) {
		return "", p.errorf("expected a string literal, found %s", p.tok.describe())
	}
	t := p.tok
	if err := p.bump(); err != nil {
		return "", err
	}
	return unescapeString(t.text, t.line, t.col)
}

func (p *parser) ident() (string, error) {
	if !p.at(tokenIdent) {
		return "", p.errorf("expected an identifier, found %s", p.tok.describe())
	}
	name := p.tok.text
	return name, p.bump()
}

// path parses Ident ("::" Ident)*, the namespace-qualified entity type
// form. The final component may be followed by ::"id" handled by callers.
func (p *parser) path() (string, error) {
	name, err := p.ident()
	if err != nil {
		return "", err
	}
	for p.tok.isPunct("::") {
		// lookahead: a string after :: terminates the path (entity id)
		save := *p.lex
		savedTok := p.tok
		if err := p.bump(); err != nil {
			return "", err
		}
		if p.at(tokenString) {
			*p.lex = save
			p.tok = savedTok
			return name, nil
		}
		part, err := p.ident()
		if err != nil {
			return "", err
		}
		name += "::" + part
	}
	return name, nil
}

// entityUID parses Path::"id".
func (p *parser) entityUID() (types.EntityUID, error) {
	typ, err := p.path()
	if err != nil {
		return types.EntityUID{}, err
	}
	if err := p.expectPunct("::"); err != nil {
		return types.EntityUID{}, err
	}
	id, err := p.stringLit()
	if err != nil {
		return types.EntityUID{}, err
	}
	return types.NewEntityUID(typ, id), nil
}

func (p *parser) policy(index int) (*model.Policy, error) {
	pos := model.Position{Line: p.tok.line, Column: p.tok.col}

	annotations, err := p.annotations()
	if err != nil {
		return nil, err
	}

	var effect model.Effect
	switch {
	case p.tok.isIdent("permit"):
		effect = model.Permit
	case p.tok.isIdent("forbid"):
		effect = model.Forbid
	default:
		return nil, p.errorf("expected \"permit\" or \"forbid\", found %s", p.tok.describe())
	}
	if err := p.bump(); err != nil {
		return nil, err
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	principal, err := p.scope("principal", false)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, err
	}
	action, err := p.scope("action", true)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, err
	}
	resource, err := p.scope("resource", false)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	conditions, err := p.conditions()
	if err != nil {
		return nil, err
	}

	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("policy%d", index)
	if custom, ok := annotations["id"]; ok {
		id = custom
	}

	return &model.Policy{
		ID:          id,
		Effect:      effect,
		Principal:   principal,
		Action:      action,
		Resource:    resource,
		Conditions:  conditions,
		Annotations: annotations,
		Position:    pos,
	}, nil
}

func (p *parser) annotations() (map[string]string, error) {
	annotations := map[string]string{}
	for p.tok.isPunct("@") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		key, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, dup := annotations[key]; dup {
			return nil, p.errorf("duplicate annotation @%s", key)
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		value, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		annotations[key] = value
	}
	return annotations, nil
}

// scope parses one scope clause. The action slot additionally accepts the
// `in [E, ...]` list form and rejects `is`.
func (p *parser) scope(slot string, isAction bool) (model.ScopeClause, error) {
	if err := p.expectIdent(slot); err != nil {
		return nil, err
	}

	switch {
	case p.tok.isPunct("=="):
		if err := p.bump(); err != nil {
			return nil, err
		}
		uid, err := p.entityUID()
		if err != nil {
			return nil, err
		}
		return model.ScopeEq{Entity: uid}, nil

	case p.tok.isIdent("in"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		if p.tok.isPunct("[") {
			if !isAction {
				return nil, p.errorf("an entity list is only legal in the action scope")
			}
			if err := p.bump(); err != nil {
				return nil, err
			}
			var uids []types.EntityUID
			for !p.tok.isPunct("]") {
				if len(uids) > 0 {
					if err := p.expectPunct(","); err != nil {
						return nil, err
					}
				}
				uid, err := p.entityUID()
				if err != nil {
					return nil, err
				}
				uids = append(uids, uid)
			}
			if err := p.bump(); err != nil {
				return nil, err
			}
			return model.ScopeInSet{Entities: uids}, nil
		}
		uid, err := p.entityUID()
		if err != nil {
			return nil, err
		}
		return model.ScopeIn{Entity: uid}, nil

	case p.tok.isIdent("is"):
		if isAction {
			return nil, p.errorf("\"is\" is not legal in the action scope")
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		typ, err := p.path()
		if err != nil {
			return nil, err
		}
		if p.tok.isIdent("in") {
			if err := p.bump(); err != nil {
				return nil, err
			}
			uid, err := p.entityUID()
			if err != nil {
				return nil, err
			}
			return model.ScopeIsIn{EntityType: typ, Entity: uid}, nil
		}
		return model.ScopeIs{EntityType: typ}, nil

	default:
		return model.ScopeAny{}, nil
	}
}

func (p *parser) conditions() ([]model.Condition, error) {
	var conditions []model.Condition
	for {
		var kind model.ConditionKind
		switch {
		case p.tok.isIdent("when"):
			kind = model.When
		case p.tok.isIdent("unless"):
			kind = model.Unless
		default:
			return conditions, nil
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		body, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		conditions = append(conditions, model.Condition{Kind: kind, Body: body})
	}
}

// ----- expression grammar -----

func (p *parser) expr() (ast.Node, error) {
	if p.tok.isIdent("if") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectIdent("then"); err != nil {
			return nil, err
		}
		then, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectIdent("else"); err != nil {
			return nil, err
		}
		els, err := p.expr()
		if err != nil {
			return nil, err
		}
		return ast.IfThenElse{If: cond, Then: then, Else: els}, nil
	}
	return p.or()
}

func (p *parser) or() (ast.Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.tok.isPunct("||") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = ast.Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) and() (ast.Node, error) {
	left, err := p.relation()
	if err != nil {
		return nil, err
	}
	for p.tok.isPunct("&&") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.relation()
		if err != nil {
			return nil, err
		}
		left = ast.And{Left: left, Right: right}
	}
	return left, nil
}

var relops = map[string]ast.ComparisonOp{
	"==": ast.Eq, "!=": ast.NotEq,
	"<": ast.Lt, "<=": ast.Le, ">": ast.Gt, ">=": ast.Ge,
}

func (p *parser) relation() (ast.Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}

	if p.tok.kind == tokenPunct {
		if op, ok := relops[p.tok.text]; ok {
			if err := p.bump(); err != nil {
				return nil, err
			}
			right, err := p.additive()
			if err != nil {
				return nil, err
			}
			return ast.Comparison{Op: op, Left: left, Right: right}, nil
		}
	}

	switch {
	case p.tok.isIdent("in"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		return ast.In{Left: left, Right: right}, nil

	case p.tok.isIdent("has"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		attr, err := p.attributeName()
		if err != nil {
			return nil, err
		}
		return ast.Has{Arg: left, Attribute: attr}, nil

	case p.tok.isIdent("like"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		if !p.at(tokenString) {
			return nil, p.errorf("expected a pattern string, found %s", p.tok.describe())
		}
		t := p.tok
		if err := p.bump(); err != nil {
			return nil, err
		}
		pattern, err := parsePattern(t.text, t.line, t.col)
		if err != nil {
			return nil, err
		}
		return ast.Like{Arg: left, Pattern: pattern}, nil

	case p.tok.isIdent("is"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		typ, err := p.path()
		if err != nil {
			return nil, err
		}
		node := ast.Is{Arg: left, EntityType: typ}
		if p.tok.isIdent("in") {
			if err := p.bump(); err != nil {
				return nil, err
			}
			in, err := p.additive()
			if err != nil {
				return nil, err
			}
			node.In = in
		}
		return node, nil
	}

	return left, nil
}

func (p *parser) attributeName() (string, error) {
	if p.at(tokenString) {
		return p.stringLit()
	}
	return p.ident()
}

func (p *parser) additive() (ast.Node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.isPunct("+") || p.tok.isPunct("-") {
		op := ast.Add
		if p.tok.isPunct("-") {
			op = ast.Sub
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.Arithmetic{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) multiplicative() (ast.Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok.isPunct("*") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = ast.Arithmetic{Op: ast.Mul, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) unary() (ast.Node, error) {
	switch {
	case p.tok.isPunct("!"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Not{Arg: arg}, nil
	case p.tok.isPunct("-"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		// fold negative integer literals so MinInt64 is representable
		if p.at(tokenInt) {
			t := p.tok
			if err := p.bump(); err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt("-"+t.text, 10, 64)
			if err != nil {
				return nil, &ParseError{Line: t.line, Col: t.col,
					Message: fmt.Sprintf("integer literal -%s out of range", t.text)}
			}
			return p.access(ast.Literal{Value: types.Long(n)})
		}
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Negate{Arg: arg}, nil
	}
	return p.member()
}

func (p *parser) member() (ast.Node, error) {
	prim, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.access(prim)
}

// access parses the member-access suffixes: .attr, .method(args), ["attr"].
func (p *parser) access(node ast.Node) (ast.Node, error) {
	for {
		switch {
		case p.tok.isPunct("."):
			if err := p.bump(); err != nil {
				return nil, err
			}
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			if p.tok.isPunct("(") {
				args, err := p.callArgs()
				if err != nil {
					return nil, err
				}
				method, err := methodNode(name, node, args, p.tok.line, p.tok.col)
				if err != nil {
					return nil, err
				}
				node = method
			} else {
				node = ast.GetAttribute{Arg: node, Attribute: name}
			}

		case p.tok.isPunct("["):
			if err := p.bump(); err != nil {
				return nil, err
			}
			attr, err := p.stringLit()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			node = ast.GetAttribute{Arg: node, Attribute: attr}

		default:
			return node, nil
		}
	}
}

func methodNode(name string, receiver ast.Node, args []ast.Node, line, col int) (ast.Node, error) {
	setOps := map[string]ast.SetOp{
		"contains":    ast.Contains,
		"containsAll": ast.ContainsAll,
		"containsAny": ast.ContainsAny,
	}
	if op, ok := setOps[name]; ok {
		if len(args) != 1 {
			return nil, &ParseError{Line: line, Col: col,
				Message: fmt.Sprintf("%s expects exactly one argument", name)}
		}
		return ast.SetOperation{Op: op, Left: receiver, Right: args[0]}, nil
	}

	// extension methods take the receiver as the first argument; unknown
	// names surface as evaluation errors, matching constructor calls
	return ast.ExtensionCall{Name: name, Args: append([]ast.Node{receiver}, args...)}, nil
}

func (p *parser) callArgs() ([]ast.Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.tok.isPunct(")") {
		if len(args) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, p.bump()
}

func (p *parser) primary() (ast.Node, error) {
	switch {
	case p.at(tokenInt):
		t := p.tok
		if err := p.bump(); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, &ParseError{Line: t.line, Col: t.col,
				Message: fmt.Sprintf("integer literal %s out of range", t.text)}
		}
		return ast.Literal{Value: types.Long(n)}, nil

	case p.at(tokenString):
		s, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return ast.Literal{Value: types.String(s)}, nil

	case p.tok.isIdent("true"):
		return ast.Literal{Value: types.True}, p.bump()

	case p.tok.isIdent("false"):
		return ast.Literal{Value: types.False}, p.bump()

	case p.tok.isIdent("principal") || p.tok.isIdent("action") ||
		p.tok.isIdent("resource") || p.tok.isIdent("context"):
		name := p.tok.text
		return ast.Variable{Name: name}, p.bump()

	case p.tok.isPunct("("):
		if err := p.bump(); err != nil {
			return nil, err
		}
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		return inner, p.expectPunct(")")

	case p.tok.isPunct("["):
		if err := p.bump(); err != nil {
			return nil, err
		}
		var elements []ast.Node
		for !p.tok.isPunct("]") {
			if len(elements) > 0 {
				if err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			elements = append(elements, e)
		}
		return ast.SetLiteral{Elements: elements}, p.bump()

	case p.tok.isPunct("{"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		var fields []ast.RecordField
		for !p.tok.isPunct("}") {
			if len(fields) > 0 {
				if err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			key, err := p.attributeName()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.RecordField{Key: key, Value: value})
		}
		return ast.RecordLiteral{Fields: fields}, p.bump()

	case p.at(tokenIdent):
		return p.entityOrCall()
	}

	return nil, p.errorf("expected an expression, found %s", p.tok.describe())
}

// entityOrCall parses either an entity literal Type::"id" or an extension
// constructor call such as ip("10.0.0.1").
func (p *parser) entityOrCall() (ast.Node, error) {
	name, err := p.path()
	if err != nil {
		return nil, err
	}

	if p.tok.isPunct("::") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		id, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return ast.Literal{Value: types.NewEntityUID(name, id)}, nil
	}

	if p.tok.isPunct("(") {
		args, err := p.callArgs()
		if err != nil {
			return nil, err
		}
		return ast.ExtensionCall{Name: name, Args: args}, nil
	}

	return nil, p.errorf("unexpected identifier %q", name)
}

// parsePattern resolves a raw like-pattern string into components. Inside
// patterns, `*` is the wildcard and `\*` a literal star; all other string
// escapes apply as usual.
func parsePattern(raw string, line, col int) (ast.Pattern, error) {
	var components []ast.PatternComponent
	cur := ast.PatternComponent{}
	flush := func() {
		components = append(components, cur)
		cur = ast.PatternComponent{}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '*':
			if cur.Wildcard || cur.Literal != "" {
				flush()
			}
			cur.Wildcard = true
		case '\\':
			i++
			if i >= len(raw) {
				return ast.Pattern{}, &ParseError{Line: line, Col: col, Message: "dangling escape in pattern"}
			}
			if raw[i] == '*' {
				cur.Literal += "*"
				continue
			}
			resolved, err := unescapeString(raw[i-1:i+1], line, col)
			if err != nil {
				return ast.Pattern{}, err
			}
			cur.Literal += resolved
		default:
			cur.Literal += string(c)
		}
	}
	flush()

	return ast.NewPattern(components), nil
}
