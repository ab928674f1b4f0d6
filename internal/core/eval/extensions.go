//
//  Copyright © the Cedrus authors. All rights reserved.
//

package eval

import (
	"github.com/cedrus-authz/cedrus/pkg/common"
	"github.com/cedrus-authz/cedrus/pkg/core/ast"
	"github.com/cedrus-authz/cedrus/pkg/core/types"
)

// extensionFn is one entry in the extension registry. Arity is checked
// before the function is invoked; for methods the receiver counts as the
// first argument.
type extensionFn struct {
	arity int
	fn    func(args []types.Value) (types.Value, *common.EvalError)
}

// extensions is the closed registry of extension functions. Unknown names
// and wrong arities surface as UnknownExtensionFunction; everything here is
// resolved at evaluation time, there is no user-registered extension point.
var extensions = map[string]extensionFn{
	"ip":      {1, extIP},
	"decimal": {1, extDecimal},

	"lessThan":           {2, decimalCompare(func(a, b types.Decimal) bool { return a < b })},
	"lessThanOrEqual":    {2, decimalCompare(func(a, b types.Decimal) bool { return a <= b })},
	"greaterThan":        {2, decimalCompare(func(a, b types.Decimal) bool { return a > b })},
	"greaterThanOrEqual": {2, decimalCompare(func(a, b types.Decimal) bool { return a >= b })},

	"isIpv4":      {1, ipPredicate(types.IPAddr.IsIPv4)},
	"isIpv6":      {1, ipPredicate(types.IPAddr.IsIPv6)},
	"isLoopback":  {1, ipPredicate(types.IPAddr.IsLoopback)},
	"isMulticast": {1, ipPredicate(types.IPAddr.IsMulticast)},
	"isInRange":   {2, extIsInRange},
}

func (ev *Evaluator) extensionCall(node ast.ExtensionCall) (types.Value, *common.EvalError) {
	ext, ok := extensions[node.Name]
	if !ok {
		return nil, common.NewEvalError(common.UnknownExtensionFunction, "unknown extension function %q", node.Name)
	}
	if len(node.Args) != ext.arity {
		return nil, common.NewEvalError(common.UnknownExtensionFunction, "%s expects %d argument(s), got %d", node.Name, ext.arity, len(node.Args))
	}

	args := make([]types.Value, len(node.Args))
	for i, a := range node.Args {
		v, err := ev.Eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ext.fn(args)
}

func extIP(args []types.Value) (types.Value, *common.EvalError) {
	s, ok := args[0].(types.String)
	if !ok {
		return nil, common.NewEvalError(common.TypeMismatch, "ip: expected string, got %s", args[0].TypeName())
	}
	addr, err := types.ParseIPAddr(string(s))
	if err != nil {
		return nil, common.NewEvalError(common.ExtensionError, "%v", err)
	}
	return addr, nil
}

func extDecimal(args []types.Value) (types.Value, *common.EvalError) {
	s, ok := args[0].(types.String)
	if !ok {
		return nil, common.NewEvalError(common.TypeMismatch, "decimal: expected string, got %s", args[0].TypeName())
	}
	d, err := types.ParseDecimal(string(s))
	if err != nil {
		return nil, common.NewEvalError(common.ExtensionError, "%v", err)
	}
	return d, nil
}

func decimalCompare(cmp func(a, b types.Decimal) bool) func(args []types.Value) (types.Value, *common.EvalError) {
	return func(args []types.Value) (types.Value, *common.EvalError) {
		a, ok := args[0].(types.Decimal)
		if !ok {
			return nil, common.NewEvalError(common.TypeMismatch, "expected decimal, got %s", args[0].TypeName())
		}
		b, ok := args[1].(types.Decimal)
		if !ok {
			return nil, common.NewEvalError(common.TypeMismatch, "expected decimal, got %s", args[1].TypeName())
		}
		return types.Boolean(cmp(a, b)), nil
	}
}

func ipPredicate(pred func(ip types.IPAddr) bool) func(args []types.Value) (types.Value, *common.EvalError) {
	return func(args []types.Value) (types.Value, *common.EvalError) {
		ip, ok := args[0].(types.IPAddr)
		if !ok {
			return nil, common.NewEvalError(common.TypeMismatch, "expected ipaddr, got %s", args[0].TypeName())
		}
		return types.Boolean(pred(ip)), nil
	}
}

func extIsInRange(args []types.Value) (types.Value, *common.EvalError) {
	ip, ok := args[0].(types.IPAddr)
	if !ok {
		return nil, common.NewEvalError(common.TypeMismatch, "isInRange: expected ipaddr, got %s", args[0].TypeName())
	}
	rng, ok := args[1].(types.IPAddr)
	if !ok {
		return nil, common.NewEvalError(common.TypeMismatch, "isInRange: expected ipaddr range, got %s", args[1].TypeName())
	}
	return types.Boolean(ip.InRange(rng)), nil
}
