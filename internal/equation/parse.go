package equation

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/vk/modelsolver/internal/solveerr"
)

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// comparison and boolean operators are rejected as syntax errors, everything
// else outside the arithmetic set is an unsupported operation.
var logicalOperators = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"and": true, "or": true, "&&": true, "||": true, "not": true, "!": true,
}

// Parse converts an equation of the form `name = expression` into its
// computational form. It never evaluates anything.
func Parse(src string) (*Equation, error) {
	lhs, rhs, err := splitAssignment(src)
	if err != nil {
		return nil, err
	}
	if !identRegex.MatchString(lhs) {
		return nil, solveerr.Syntax(src, "left-hand side %q is not a variable name", lhs)
	}
	if rhs == "" {
		return nil, solveerr.Syntax(src, "empty right-hand side")
	}

	tree, perr := parser.Parse(rhs)
	if perr != nil {
		return nil, solveerr.Syntax(src, "%s", firstLine(perr.Error()))
	}

	l := lowerer{src: src}
	body, err := l.lower(tree.Node)
	if err != nil {
		return nil, err
	}

	eq := &Equation{
		Source: src,
		LHS:    lhs,
		Text:   rhs,
		RHS:    body,
	}
	seen := make(map[Ref]bool)
	body.visitRefs(func(r Ref) {
		if !seen[r] {
			seen[r] = true
			eq.Refs = append(eq.Refs, r)
		}
	})
	return eq, nil
}

// splitAssignment locates the single assignment operator.
func splitAssignment(src string) (string, string, error) {
	pos := -1
	for i := 0; i < len(src); i++ {
		if src[i] != '=' {
			continue
		}
		if i+1 < len(src) && src[i+1] == '=' {
			return "", "", solveerr.Syntax(src, "comparison operator \"==\" used instead of assignment")
		}
		if i > 0 && strings.IndexByte("!<>", src[i-1]) >= 0 {
			return "", "", solveerr.Syntax(src, "comparison operator %q is not allowed", src[i-1:i+1])
		}
		if pos >= 0 {
			return "", "", solveerr.Syntax(src, "more than one assignment")
		}
		pos = i
	}
	if pos < 0 {
		return "", "", solveerr.Syntax(src, "missing assignment")
	}
	return strings.TrimSpace(src[:pos]), strings.TrimSpace(src[pos+1:]), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// lowerer translates the expr-lang syntax tree into Expr nodes, rejecting
// everything outside the arithmetic subset.
type lowerer struct {
	src string
}

func (l lowerer) lower(n ast.Node) (Expr, error) {
	switch node := n.(type) {
	case *ast.IntegerNode:
		return &Literal{Value: float64(node.Value)}, nil
	case *ast.FloatNode:
		return &Literal{Value: node.Value}, nil
	case *ast.IdentifierNode:
		if !identRegex.MatchString(node.Value) {
			return nil, solveerr.Syntax(l.src, "%q is not a variable name", node.Value)
		}
		return &VarRef{Ref: Ref{Name: node.Value}}, nil
	case *ast.MemberNode:
		return l.lowerMember(node)
	case *ast.UnaryNode:
		return l.lowerUnary(node)
	case *ast.BinaryNode:
		return l.lowerBinary(node)
	case *ast.CallNode:
		ident, ok := node.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, solveerr.Unsupported(l.src, "call of a computed function")
		}
		return l.lowerCall(ident.Value, node.Arguments)
	case *ast.BuiltinNode:
		return l.lowerCall(node.Name, node.Arguments)
	case *ast.BoolNode, *ast.StringNode, *ast.NilNode:
		return nil, solveerr.Syntax(l.src, "non-numeric literal %s", node.String())
	default:
		return nil, solveerr.Unsupported(l.src, "expression %q", n.String())
	}
}

func (l lowerer) lowerUnary(node *ast.UnaryNode) (Expr, error) {
	switch node.Operator {
	case "-", "+":
		x, err := l.lower(node.Node)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: node.Operator[0], X: x}, nil
	}
	if logicalOperators[node.Operator] {
		return nil, solveerr.Syntax(l.src, "boolean operator %q", node.Operator)
	}
	return nil, solveerr.Unsupported(l.src, "operator %q", node.Operator)
}

func (l lowerer) lowerBinary(node *ast.BinaryNode) (Expr, error) {
	var op byte
	switch node.Operator {
	case "+", "-", "*", "/":
		op = node.Operator[0]
	case "^", "**":
		op = '^'
	default:
		if logicalOperators[node.Operator] {
			return nil, solveerr.Syntax(l.src, "comparison or boolean operator %q", node.Operator)
		}
		return nil, solveerr.Unsupported(l.src, "operator %q", node.Operator)
	}
	left, err := l.lower(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.lower(node.Right)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, L: left, R: right}, nil
}

func (l lowerer) lowerCall(name string, argNodes []ast.Node) (Expr, error) {
	fn, ok := functions[name]
	if !ok {
		return nil, solveerr.Unsupported(l.src, "function %q is not supported (supported: %s)", name, strings.Join(Functions(), ", "))
	}
	if len(argNodes) < fn.minArgs || (fn.maxArgs >= 0 && len(argNodes) > fn.maxArgs) {
		return nil, solveerr.Syntax(l.src, "function %q called with %d arguments", name, len(argNodes))
	}
	args := make([]Expr, len(argNodes))
	for i, a := range argNodes {
		arg, err := l.lower(a)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return &Call{Fn: name, Args: args}, nil
}

// lowerMember handles the lag/lead notation name[offset].
func (l lowerer) lowerMember(node *ast.MemberNode) (Expr, error) {
	ident, ok := node.Node.(*ast.IdentifierNode)
	if !ok {
		return nil, solveerr.Syntax(l.src, "period offset must follow a variable name")
	}
	if !identRegex.MatchString(ident.Value) {
		return nil, solveerr.Syntax(l.src, "%q is not a variable name", ident.Value)
	}
	if _, isName := node.Property.(*ast.StringNode); isName {
		return nil, solveerr.Unsupported(l.src, "member access %q", node.String())
	}
	offset, ok := intLiteral(node.Property)
	if !ok {
		return nil, solveerr.Syntax(l.src, "period offset of %q must be an integer literal", ident.Value)
	}
	return &VarRef{Ref: Ref{Name: ident.Value, Offset: offset}}, nil
}

func intLiteral(n ast.Node) (int, bool) {
	switch node := n.(type) {
	case *ast.IntegerNode:
		return node.Value, true
	case *ast.UnaryNode:
		v, ok := intLiteral(node.Node)
		if !ok {
			return 0, false
		}
		switch node.Operator {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	}
	return 0, false
}
