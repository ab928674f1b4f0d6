//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package eval implements the policy condition evaluator.
//
// The evaluator walks an ast.Node tree against one request and one entity
// snapshot, producing a runtime value or a kinded evaluation error. It is
// late-bound typed: operators check the runtime variants of their operands
// at each step and raise TypeMismatch rather than coercing.
//
// Errors are values here, not Go panics: every operator returns
// (types.Value, *common.EvalError) and the caller decides policy-level
// consequences. The authorizer treats any error as "policy not satisfied"
// and records it in the decision diagnostics.
package eval

import (
	"math"

	"github.com/cedrus-authz/cedrus/pkg/common"
	"github.com/cedrus-authz/cedrus/pkg/core/ast"
	"github.com/cedrus-authz/cedrus/pkg/core/entities"
	"github.com/cedrus-authz/cedrus/pkg/core/model"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

// Evaluator evaluates condition expressions for a single request against a
// single entity snapshot. It holds no mutable state; one Evaluator may be
// used for any number of expressions from the same request.
type Evaluator struct {
	store *entities.Store
	req   types.Request
}

// New creates an Evaluator bound to the given snapshot and request.
func New(store *entities.Store, req types.Request) *Evaluator {
	return &Evaluator{store: store, req: req}
}

// Condition evaluates one when/unless clause to its boolean outcome. An
// unless clause is satisfied when its body is false.
func (ev *Evaluator) Condition(c model.Condition) (bool, *common.EvalError) {
	v, err := ev.evalBool(c.Body)
	if err != nil {
		return false, err
	}
	if c.Kind == model.Unless {
		return !bool(v), nil
	}
	return bool(v), nil
}

// Eval evaluates a node to a runtime value.
func (ev *Evaluator) Eval(n ast.Node) (types.Value, *common.EvalError) {
	switch node := n.(type) {
	case ast.Literal:
		return node.Value.(types.Value), nil

	case ast.Variable:
		return ev.variable(node.Name)

	case ast.And:
		left, err := ev.evalBool(node.Left)
		if err != nil {
			return nil, err
		}
		if !left {
			// short-circuit: the right operand is not evaluated and cannot error
			return types.False, nil
		}
		right, err := ev.evalBool(node.Right)
		if err != nil {
			return nil, err
		}
		return right, nil

	case ast.Or:
		left, err := ev.evalBool(node.Left)
		if err != nil {
			return nil, err
		}
		if left {
			return types.True, nil
		}
		right, err := ev.evalBool(node.Right)
		if err != nil {
			return nil, err
		}
		return right, nil

	case ast.Not:
		arg, err := ev.evalBool(node.Arg)
		if err != nil {
			return nil, err
		}
		return !arg, nil

	case ast.Negate:
		arg, err := ev.evalLong(node.Arg)
		if err != nil {
			return nil, err
		}
		if arg == math.MinInt64 {
			return nil, common.NewEvalError(common.ArithmeticOverflow, "negation of %d overflows", int64(arg))
		}
		return -arg, nil

	case ast.Arithmetic:
		return ev.arithmetic(node)

	case ast.Comparison:
		return ev.comparison(node)

	case ast.In:
		return ev.entityIn(node)

	case ast.Has:
		return ev.has(node)

	case ast.GetAttribute:
		return ev.getAttribute(node)

	case ast.Like:
		arg, err := ev.evalString(node.Arg)
		if err != nil {
			return nil, err
		}
		return types.Boolean(node.Pattern.Match(string(arg))), nil

	case ast.Is:
		return ev.entityIs(node)

	case ast.IfThenElse:
		cond, err := ev.evalBool(node.If)
		if err != nil {
			return nil, err
		}
		// only the selected branch is evaluated
		if cond {
			return ev.Eval(node.Then)
		}
		return ev.Eval(node.Else)

	case ast.SetLiteral:
		set := make(types.Set, 0, len(node.Elements))
		for _, el := range node.Elements {
			v, err := ev.Eval(el)
			if err != nil {
				return nil, err
			}
			set = append(set, v)
		}
		return set, nil

	case ast.RecordLiteral:
		record := make(types.Record, len(node.Fields))
		for _, f := range node.Fields {
			v, err := ev.Eval(f.Value)
			if err != nil {
				return nil, err
			}
			record[f.Key] = v
		}
		return record, nil

	case ast.SetOperation:
		return ev.setOperation(node)

	case ast.ExtensionCall:
		return ev.extensionCall(node)

	default:
		// unreachable: the node set is closed
		return nil, common.NewEvalError(common.TypeMismatch, "unsupported expression node %T", n)
	}
}

func (ev *Evaluator) variable(name string) (types.Value, *common.EvalError) {
	switch name {
	case "principal":
		return ev.req.Principal, nil
	case "action":
		return ev.req.Action, nil
	case "resource":
		return ev.req.Resource, nil
	case "context":
		return ev.req.Context, nil
	default:
		// unreachable: the parser only emits the four request variables
		return nil, common.NewEvalError(common.TypeMismatch, "unknown variable %q", name)
	}
}

func (ev *Evaluator) evalBool(n ast.Node) (types.Boolean, *common.EvalError) {
	v, err := ev.Eval(n)
	if err != nil {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, common.NewEvalError(common.TypeMismatch, "expected bool, got %s", v.TypeName())
	}
	return b, nil
}

func (ev *Evaluator) evalLong(n ast.Node) (types.Long, *common.EvalError) {
	v, err := ev.Eval(n)
	if err != nil {
		return 0, err
	}
	l, ok := v.(types.Long)
	if !ok {
		return 0, common.NewEvalError(common.TypeMismatch, "expected long, got %s", v.TypeName())
	}
	return l, nil
}

func (ev *Evaluator) evalString(n ast.Node) (types.String, *common.EvalError) {
	v, err := ev.Eval(n)
	if err != nil {
		return "", err
	}
	s, ok := v.(types.String)
	if !ok {
		return "", common.NewEvalError(common.TypeMismatch, "expected string, got %s", v.TypeName())
	}
	return s, nil
}

func (ev *Evaluator) evalEntity(n ast.Node) (types.EntityUID, *common.EvalError) {
	v, err := ev.Eval(n)
	if err != nil {
		return types.EntityUID{}, err
	}
	uid, ok := v.(types.EntityUID)
	if !ok {
		return types.EntityUID{}, common.NewEvalError(common.TypeMismatch, "expected entity, got %s", v.TypeName())
	}
	return uid, nil
}

func (ev *Evaluator) evalSet(n ast.Node) (types.Set, *common.EvalError) {
	v, err := ev.Eval(n)
	if err != nil {
		return nil, err
	}
	s, ok := v.(types.Set)
	if !ok {
		return nil, common.NewEvalError(common.TypeMismatch, "expected set, got %s", v.TypeName())
	}
	return s, nil
}

func (ev *Evaluator) arithmetic(node ast.Arithmetic) (types.Value, *common.EvalError) {
	left, err := ev.evalLong(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalLong(node.Right)
	if err != nil {
		return nil, err
	}

	a, b := int64(left), int64(right)
	switch node.Op {
	case ast.Add:
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return nil, common.NewEvalError(common.ArithmeticOverflow, "%d + %d overflows", a, b)
		}
		return types.Long(sum), nil
	case ast.Sub:
		diff := a - b
		if (b < 0 && diff < a) || (b > 0 && diff > a) {
			return nil, common.NewEvalError(common.ArithmeticOverflow, "%d - %d overflows", a, b)
		}
		return types.Long(diff), nil
	case ast.Mul:
		if a == 0 || b == 0 {
			return types.Long(0), nil
		}
		prod := a * b
		if prod/b != a || (a == math.MinInt64 && b == -1) {
			return nil, common.NewEvalError(common.ArithmeticOverflow, "%d * %d overflows", a, b)
		}
		return types.Long(prod), nil
	default:
		return nil, common.NewEvalError(common.TypeMismatch, "unknown arithmetic operator %d", node.Op)
	}
}

func (ev *Evaluator) comparison(node ast.Comparison) (types.Value, *common.EvalError) {
	// equality applies to any pair of values; a type mismatch is inequality,
	// not an error
	if node.Op == ast.Eq || node.Op == ast.NotEq {
		left, err := ev.Eval(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.Eval(node.Right)
		if err != nil {
			return nil, err
		}
		eq := left.Equal(right)
		if node.Op == ast.NotEq {
			eq = !eq
		}
		return types.Boolean(eq), nil
	}

	left, err := ev.evalLong(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalLong(node.Right)
	if err != nil {
		return nil, err
	}

	var result bool
	switch node.Op {
	case ast.Lt:
		result = left < right
	case ast.Le:
		result = left <= right
	case ast.Gt:
		result = left > right
	case ast.Ge:
		result = left >= right
	}
	return types.Boolean(result), nil
}

// entityIn implements the hierarchy membership operator. The right-hand
// side may be a single entity or a set of entities; the test is true when
// any of them is a (reflexive) ancestor of the left-hand entity.
func (ev *Evaluator) entityIn(node ast.In) (types.Value, *common.EvalError) {
	uid, err := ev.evalEntity(node.Left)
	if err != nil {
		return nil, err
	}

	right, err := ev.Eval(node.Right)
	if err != nil {
		return nil, err
	}

	switch target := right.(type) {
	case types.EntityUID:
		return types.Boolean(ev.store.IsAncestor(uid, target)), nil
	case types.Set:
		for _, el := range target {
			candidate, ok := el.(types.EntityUID)
			if !ok {
				return nil, common.NewEvalError(common.TypeMismatch, "in: set element is %s, expected entity", el.TypeName())
			}
			if ev.store.IsAncestor(uid, candidate) {
				return types.True, nil
			}
		}
		return types.False, nil
	default:
		return nil, common.NewEvalError(common.TypeMismatch, "in: expected entity or set of entities, got %s", right.TypeName())
	}
}

// has never raises AttributeNotFound: an absent attribute, like an absent
// entity, simply answers false.
func (ev *Evaluator) has(node ast.Has) (types.Value, *common.EvalError) {
	v, err := ev.Eval(node.Arg)
	if err != nil {
		return nil, err
	}

	switch arg := v.(type) {
	case types.Record:
		_, ok := arg.Get(node.Attribute)
		return types.Boolean(ok), nil
	case types.EntityUID:
		return types.Boolean(ev.store.HasAttribute(arg, node.Attribute)), nil
	default:
		return nil, common.NewEvalError(common.TypeMismatch, "has: expected entity or record, got %s", v.TypeName())
	}
}

func (ev *Evaluator) getAttribute(node ast.GetAttribute) (types.Value, *common.EvalError) {
	v, err := ev.Eval(node.Arg)
	if err != nil {
		return nil, err
	}

	switch arg := v.(type) {
	case types.Record:
		value, ok := arg.Get(node.Attribute)
		if !ok {
			return nil, common.NewEvalError(common.AttributeNotFound, "record has no attribute %q", node.Attribute)
		}
		return value, nil
	case types.EntityUID:
		return ev.store.Attribute(arg, node.Attribute)
	default:
		return nil, common.NewEvalError(common.TypeMismatch, "attribute access on %s, expected entity or record", v.TypeName())
	}
}

func (ev *Evaluator) entityIs(node ast.Is) (types.Value, *common.EvalError) {
	uid, err := ev.evalEntity(node.Arg)
	if err != nil {
		return nil, err
	}

	if uid.Type != node.EntityType {
		return types.False, nil
	}
	if node.In == nil {
		return types.True, nil
	}
	return ev.entityIn(ast.In{Left: node.Arg, Right: node.In})
}

func (ev *Evaluator) setOperation(node ast.SetOperation) (types.Value, *common.EvalError) {
	receiver, err := ev.evalSet(node.Left)
	if err != nil {
		return nil, err
	}

	if node.Op == ast.Contains {
		v, err := ev.Eval(node.Right)
		if err != nil {
			return nil, err
		}
		return types.Boolean(receiver.Contains(v)), nil
	}

	arg, err := ev.evalSet(node.Right)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case ast.ContainsAll:
		for _, el := range arg {
			if !receiver.Contains(el) {
				return types.False, nil
			}
		}
		return types.True, nil
	case ast.ContainsAny:
		for _, el := range arg {
			if receiver.Contains(el) {
				return types.True, nil
			}
		}
		return types.False, nil
	default:
		return nil, common.NewEvalError(common.TypeMismatch, "unknown set operator %d", node.Op)
	}
}
