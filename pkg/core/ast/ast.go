//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package ast defines the expression tree evaluated by policy conditions.
//
// The tree is the contract between the text front end and the evaluator:
// parsers produce it, the evaluator walks it. The node set is fixed and
// mirrors the condition language: literals, the four request variables,
// boolean connectives with short-circuit semantics, checked arithmetic,
// comparisons, hierarchy membership, attribute access and presence tests,
// glob-style string matching, type tests, conditionals, set and record
// construction, set membership operators, and extension function calls.
package ast

// Node is one expression tree node. The set of implementations is closed;
// the evaluator dispatches over it exhaustively.
type Node interface {
	isNode()
}

// Literal is a constant value in the tree. Value is a runtime value from
// the types package (stored as interface{} here to keep the node set free
// of evaluation concerns; it is always a types.Value).
type Literal struct {
	Value interface{}
}

// Variable references one of the four request slots: "principal",
// "action", "resource", or "context".
type Variable struct {
	Name string
}

// And is boolean conjunction. The right operand is not evaluated when the
// left is false.
type And struct {
	Left, Right Node
}

// Or is boolean disjunction. The right operand is not evaluated when the
// left is true.
type Or struct {
	Left, Right Node
}

// Not is boolean negation.
type Not struct {
	Arg Node
}

// Negate is arithmetic negation, overflow-checked.
type Negate struct {
	Arg Node
}

// ArithmeticOp selects the operator of an [Arithmetic] node.
type ArithmeticOp int

// Arithmetic operators.
const (
	Add ArithmeticOp = iota
	Sub
	Mul
)

// Arithmetic is overflow-checked integer arithmetic over Longs.
type Arithmetic struct {
	Op          ArithmeticOp
	Left, Right Node
}

// ComparisonOp selects the operator of a [Comparison] node.
type ComparisonOp int

// Comparison operators. Eq and NotEq apply to any pair of values;
// the ordering operators apply to Longs only.
const (
	Eq ComparisonOp = iota
	NotEq
	Lt
	Le
	Gt
	Ge
)

// Comparison compares two values.
type Comparison struct {
	Op          ComparisonOp
	Left, Right Node
}

// In is the hierarchy membership test: left is an entity, right is an
// entity or a set of entities; the test is true when any right-hand entity
// is an ancestor of left (reflexively).
type In struct {
	Left, Right Node
}

// Has tests whether an entity or record carries an attribute. Unlike
// attribute access, Has never raises AttributeNotFound.
type Has struct {
	Arg       Node
	Attribute string
}

// GetAttribute accesses an attribute of an entity or a field of a record.
type GetAttribute struct {
	Arg       Node
	Attribute string
}

// Like matches a string against a glob-style pattern.
type Like struct {
	Arg     Node
	Pattern Pattern
}

// Is tests the declared type of an entity. When In is non-nil the node is
// the combined "is T in E" form: the type test and the hierarchy test must
// both hold.
type Is struct {
	Arg        Node
	EntityType string
	In         Node
}

// IfThenElse is the conditional expression. Only the selected branch is
// evaluated.
type IfThenElse struct {
	If, Then, Else Node
}

// SetLiteral constructs a set from element expressions.
type SetLiteral struct {
	Elements []Node
}

// RecordField is one key/value pair of a [RecordLiteral].
type RecordField struct {
	Key   string
	Value Node
}

// RecordLiteral constructs a record from field expressions.
type RecordLiteral struct {
	Fields []RecordField
}

// SetOp selects the operator of a [SetOperation] node.
type SetOp int

// Set membership operators.
const (
	// Contains tests element membership: receiver.contains(v).
	Contains SetOp = iota
	// ContainsAll tests subset: receiver.containsAll(set).
	ContainsAll
	// ContainsAny tests intersection: receiver.containsAny(set).
	ContainsAny
)

// SetOperation applies a set membership operator. Left is the receiver.
type SetOperation struct {
	Op          SetOp
	Left, Right Node
}

// ExtensionCall applies a registered extension function, either a
// constructor such as ip("10.0.0.1") or a method such as
// context.addr.isInRange(ip("10.0.0.0/8")) with the receiver as the first
// argument.
type ExtensionCall struct {
	Name string
	Args []Node
}

func (Literal) isNode()       {}
func (Variable) isNode()      {}
func (And) isNode()           {}
func (Or) isNode()            {}
func (Not) isNode()           {}
func (Negate) isNode()        {}
func (Arithmetic) isNode()    {}
func (Comparison) isNode()    {}
func (In) isNode()            {}
func (Has) isNode()           {}
func (GetAttribute) isNode()  {}
func (Like) isNode()          {}
func (Is) isNode()            {}
func (IfThenElse) isNode()    {}
func (SetLiteral) isNode()    {}
func (RecordLiteral) isNode() {}
func (SetOperation) isNode()  {}
func (ExtensionCall) isNode() {}
