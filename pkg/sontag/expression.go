package sontag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// EvalContext carries everything expression evaluation needs: the active
// scope chain and the unresolved-identifier policy.
type EvalContext struct {
	Scope *Scope
	// Strict makes resolution of an unbound identifier an error. When
	// false, unbound identifiers evaluate to nil, which formats as "".
	Strict bool
}

// ExpressionNode represents a node in an expression AST.
type ExpressionNode interface {
	String() string
	Evaluate(ec *EvalContext) (interface{}, error)
}

// LiteralNode represents a literal value (string, number, boolean, null).
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	if str, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", str)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *LiteralNode) Evaluate(ec *EvalContext) (interface{}, error) {
	return n.Value, nil
}

// VariableNode represents a free identifier resolved through the scope chain.
type VariableNode struct {
	Name string
}

func (n *VariableNode) String() string {
	return fmt.Sprintf("Variable(%s)", n.Name)
}

func (n *VariableNode) Evaluate(ec *EvalContext) (interface{}, error) {
	value, ok := ec.Scope.Lookup(n.Name)
	if !ok {
		if ec.Strict {
			return nil, NewEvaluationError(n.Name, fmt.Errorf("undefined variable"))
		}
		return nil, nil
	}
	return value, nil
}

// BinaryOpNode represents a binary operation.
type BinaryOpNode struct {
	Left     ExpressionNode
	Operator string
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

func (n *BinaryOpNode) Evaluate(ec *EvalContext) (interface{}, error) {
	leftVal, err := n.Left.Evaluate(ec)
	if err != nil {
		return nil, err
	}

	// and/or short-circuit on the left value.
	switch n.Operator {
	case "and":
		if !isTruthy(leftVal) {
			return leftVal, nil
		}
		return n.Right.Evaluate(ec)
	case "or":
		if isTruthy(leftVal) {
			return leftVal, nil
		}
		return n.Right.Evaluate(ec)
	}

	rightVal, err := n.Right.Evaluate(ec)
	if err != nil {
		return nil, err
	}

	result, err := evaluateBinaryOperation(leftVal, n.Operator, rightVal)
	if err != nil {
		return nil, NewEvaluationError(n.String(), err)
	}
	return result, nil
}

// UnaryOpNode represents a unary operation.
type UnaryOpNode struct {
	Operator string
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

func (n *UnaryOpNode) Evaluate(ec *EvalContext) (interface{}, error) {
	operandVal, err := n.Operand.Evaluate(ec)
	if err != nil {
		return nil, err
	}

	var result interface{}
	switch n.Operator {
	case "!", "not":
		return !isTruthy(operandVal), nil
	case "-":
		result, err = evaluateUnaryMinus(operandVal)
	case "+":
		result, err = evaluateUnaryPlus(operandVal)
	default:
		err = fmt.Errorf("unknown unary operator: %s", n.Operator)
	}
	if err != nil {
		return nil, NewEvaluationError(n.String(), err)
	}
	return result, nil
}

// FunctionCallNode represents a call of a function bound in scope.
type FunctionCallNode struct {
	Name string
	Args []ExpressionNode
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *FunctionCallNode) Evaluate(ec *EvalContext) (interface{}, error) {
	value, ok := ec.Scope.Lookup(n.Name)
	if !ok {
		return nil, NewEvaluationError(n.Name, fmt.Errorf("unknown function"))
	}
	fn, ok := value.(Function)
	if !ok {
		return nil, NewEvaluationError(n.Name, fmt.Errorf("%T is not callable", value))
	}

	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(ec)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d for function %s: %w", i, n.Name, err)
		}
		args[i] = val
	}

	result, err := fn(args...)
	if err != nil {
		return nil, NewEvaluationError(n.Name, err)
	}
	return result, nil
}

// FieldAccessNode represents member access (obj.field).
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object.String(), n.Field)
}

func (n *FieldAccessNode) Evaluate(ec *EvalContext) (interface{}, error) {
	obj, err := n.Object.Evaluate(ec)
	if err != nil {
		return nil, err
	}
	return accessMapField(obj, n.Field), nil
}

// IndexAccessNode represents index access (obj[index]).
type IndexAccessNode struct {
	Object ExpressionNode
	Index  ExpressionNode
}

func (n *IndexAccessNode) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object.String(), n.Index.String())
}

func (n *IndexAccessNode) Evaluate(ec *EvalContext) (interface{}, error) {
	obj, err := n.Object.Evaluate(ec)
	if err != nil {
		return nil, err
	}
	indexVal, err := n.Index.Evaluate(ec)
	if err != nil {
		return nil, err
	}

	switch idx := indexVal.(type) {
	case string:
		return accessMapField(obj, idx), nil
	default:
		if i, ok := toInt(indexVal); ok {
			return accessArrayIndex(obj, i), nil
		}
		return nil, NewEvaluationError(n.String(), fmt.Errorf("invalid index type: %T", idx))
	}
}

// FilterNode represents one pipe stage: input | name: arg, arg. The filter
// is resolved through the scope's reserved filters mapping and invoked with
// the input value followed by the listed arguments.
type FilterNode struct {
	Input ExpressionNode
	Name  string
	Args  []ExpressionNode
}

func (n *FilterNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("Filter(%s | %s: [%s])", n.Input.String(), n.Name, strings.Join(args, ", "))
}

func (n *FilterNode) Evaluate(ec *EvalContext) (interface{}, error) {
	input, err := n.Input.Evaluate(ec)
	if err != nil {
		return nil, err
	}

	filters := ec.Scope.filters()
	fn, ok := filters[n.Name]
	if !ok {
		return nil, NewEvaluationError(n.Name, fmt.Errorf("unknown filter"))
	}

	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(ec)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d for filter %s: %w", i, n.Name, err)
		}
		args[i] = val
	}

	result, err := fn(input, args...)
	if err != nil {
		return nil, NewEvaluationError(n.Name, err)
	}
	return result, nil
}

// exprToken represents a token in an expression.
type exprToken struct {
	Type  exprTokenType
	Value string
	Pos   int
}

type exprTokenType int

const (
	exprTokenIdentifier exprTokenType = iota
	exprTokenNumber
	exprTokenString
	exprTokenOperator
	exprTokenLeftParen
	exprTokenRightParen
	exprTokenComma
	exprTokenColon
	exprTokenPipe
	exprTokenEOF
)

var (
	identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)
	numberRegex     = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
	dqStringRegex   = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	sqStringRegex   = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	operatorRegex   = regexp.MustCompile(`^(==|!=|<=|>=|\+|\-|\*|\/|\%|\!|<|>|\.|\[|\])`)
)

// tokenizeExpression tokenizes an expression string.
func tokenizeExpression(expr string) ([]exprToken, error) {
	var tokens []exprToken
	pos := 0

	for pos < len(expr) {
		c := expr[pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			pos++
			continue
		}

		remaining := expr[pos:]

		if match := identifierRegex.FindString(remaining); match != "" {
			tokens = append(tokens, exprToken{Type: exprTokenIdentifier, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := numberRegex.FindString(remaining); match != "" {
			tokens = append(tokens, exprToken{Type: exprTokenNumber, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := dqStringRegex.FindString(remaining); match != "" {
			tokens = append(tokens, exprToken{Type: exprTokenString, Value: unescapeString(match[1 : len(match)-1]), Pos: pos})
			pos += len(match)
			continue
		}

		if match := sqStringRegex.FindString(remaining); match != "" {
			tokens = append(tokens, exprToken{Type: exprTokenString, Value: unescapeString(match[1 : len(match)-1]), Pos: pos})
			pos += len(match)
			continue
		}

		if match := operatorRegex.FindString(remaining); match != "" {
			tokens = append(tokens, exprToken{Type: exprTokenOperator, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		switch c {
		case '(':
			tokens = append(tokens, exprToken{Type: exprTokenLeftParen, Value: "(", Pos: pos})
		case ')':
			tokens = append(tokens, exprToken{Type: exprTokenRightParen, Value: ")", Pos: pos})
		case ',':
			tokens = append(tokens, exprToken{Type: exprTokenComma, Value: ",", Pos: pos})
		case ':':
			tokens = append(tokens, exprToken{Type: exprTokenColon, Value: ":", Pos: pos})
		case '|':
			tokens = append(tokens, exprToken{Type: exprTokenPipe, Value: "|", Pos: pos})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, pos)
		}
		pos++
	}

	tokens = append(tokens, exprToken{Type: exprTokenEOF, Pos: pos})
	return tokens, nil
}

func unescapeString(value string) string {
	value = strings.ReplaceAll(value, `\"`, `"`)
	value = strings.ReplaceAll(value, `\'`, `'`)
	value = strings.ReplaceAll(value, `\n`, "\n")
	value = strings.ReplaceAll(value, `\t`, "\t")
	value = strings.ReplaceAll(value, `\\`, `\`)
	return value
}

// ParseExpression parses an expression string, including pipe stages, into
// an AST. The whole input must be consumed.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := tokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &expressionParser{tokens: tokens}
	node, err := parser.parsePipeline()
	if err != nil {
		return nil, err
	}

	if tok := parser.current(); tok.Type != exprTokenEOF {
		return nil, fmt.Errorf("unexpected trailing token %q at position %d", tok.Value, tok.Pos)
	}
	return node, nil
}

// expressionParser is a recursive-descent parser over expression tokens.
type expressionParser struct {
	tokens []exprToken
	pos    int
}

func (p *expressionParser) current() exprToken {
	if p.pos >= len(p.tokens) {
		return exprToken{Type: exprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *expressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *expressionParser) atKeyword(word string) bool {
	tok := p.current()
	return tok.Type == exprTokenIdentifier && tok.Value == word
}

// parsePipeline parses pipe stages, the lowest precedence level:
// expr | name[: arg, arg]. Stages associate left to right.
func (p *expressionParser) parsePipeline() (ExpressionNode, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	for p.current().Type == exprTokenPipe {
		p.advance()
		if p.current().Type != exprTokenIdentifier {
			return nil, fmt.Errorf("expected filter name after '|'")
		}
		name := p.current().Value
		p.advance()

		var args []ExpressionNode
		if p.current().Type == exprTokenColon {
			p.advance()
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.current().Type != exprTokenComma {
					break
				}
				p.advance()
			}
		}
		left = &FilterNode{Input: left, Name: name, Args: args}
	}

	return left, nil
}

func (p *expressionParser) parseOr() (ExpressionNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.atKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: "or", Right: right}
	}
	return left, nil
}

func (p *expressionParser) parseAnd() (ExpressionNode, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.atKeyword("and") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: "and", Right: right}
	}
	return left, nil
}

func (p *expressionParser) parseEquality() (ExpressionNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current().Type == exprTokenOperator && (p.current().Value == "==" || p.current().Value == "!=") {
		op := p.current().Value
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *expressionParser) parseComparison() (ExpressionNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		isCmp := tok.Type == exprTokenOperator &&
			(tok.Value == "<" || tok.Value == ">" || tok.Value == "<=" || tok.Value == ">=")
		if !isCmp && !p.atKeyword("in") {
			return left, nil
		}
		op := tok.Value
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
}

func (p *expressionParser) parseTerm() (ExpressionNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.current().Type == exprTokenOperator && (p.current().Value == "+" || p.current().Value == "-") {
		op := p.current().Value
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *expressionParser) parseFactor() (ExpressionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == exprTokenOperator &&
		(p.current().Value == "*" || p.current().Value == "/" || p.current().Value == "%") {
		op := p.current().Value
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *expressionParser) parseUnary() (ExpressionNode, error) {
	if p.current().Type == exprTokenOperator &&
		(p.current().Value == "!" || p.current().Value == "-" || p.current().Value == "+") {
		op := p.current().Value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}
	if p.atKeyword("not") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: "not", Operand: operand}, nil
	}

	return p.parseFieldAccess()
}

// parseFieldAccess parses postfix member and index access (obj.field, obj[key]).
func (p *expressionParser) parseFieldAccess() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if p.current().Type == exprTokenOperator && p.current().Value == "." {
			p.advance()
			if p.current().Type != exprTokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			field := p.current().Value
			p.advance()
			left = &FieldAccessNode{Object: left, Field: field}
		} else if p.current().Type == exprTokenOperator && p.current().Value == "[" {
			p.advance()
			index, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			if p.current().Type != exprTokenOperator || p.current().Value != "]" {
				return nil, fmt.Errorf("expected ']' after index")
			}
			p.advance()
			left = &IndexAccessNode{Object: left, Index: index}
		} else {
			return left, nil
		}
	}
}

// parsePrimary parses literals, variables, calls, and parenthesized expressions.
func (p *expressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case exprTokenNumber:
		p.advance()
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		if floatVal, err := strconv.ParseFloat(token.Value, 64); err == nil {
			return &LiteralNode{Value: floatVal}, nil
		}
		return nil, fmt.Errorf("invalid number: %s", token.Value)

	case exprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case exprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true":
			return &LiteralNode{Value: true}, nil
		case "false":
			return &LiteralNode{Value: false}, nil
		case "null", "nil", "none":
			return &LiteralNode{Value: nil}, nil
		}

		if p.current().Type == exprTokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}
		return &VariableNode{Name: token.Value}, nil

	case exprTokenLeftParen:
		p.advance()
		expr, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		if p.current().Type != exprTokenRightParen {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		p.advance()
		return expr, nil

	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", token.Value, token.Pos)
	}
}

func (p *expressionParser) parseFunctionCall(name string) (ExpressionNode, error) {
	p.advance() // consume '('

	var args []ExpressionNode
	if p.current().Type == exprTokenRightParen {
		p.advance()
		return &FunctionCallNode{Name: name, Args: args}, nil
	}

	for {
		arg, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Type == exprTokenComma {
			p.advance()
			continue
		}
		if p.current().Type == exprTokenRightParen {
			p.advance()
			return &FunctionCallNode{Name: name, Args: args}, nil
		}
		return nil, fmt.Errorf("expected ',' or ')' in function arguments")
	}
}

// evaluateBinaryOperation evaluates a binary operation between two values.
func evaluateBinaryOperation(left interface{}, operator string, right interface{}) (interface{}, error) {
	switch operator {
	case "+":
		return evaluateAddition(left, right)
	case "-":
		return evaluateArithmetic(left, "subtract", right, func(a, b float64) float64 { return a - b })
	case "*":
		return evaluateArithmetic(left, "multiply", right, func(a, b float64) float64 { return a * b })
	case "/":
		return evaluateDivision(left, right)
	case "%":
		return evaluateModulo(left, right)
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "<", ">", "<=", ">=":
		return evaluateComparison(left, operator, right)
	case "in":
		return containsValue(left, right)
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", operator)
	}
}

func evaluateAddition(left, right interface{}) (interface{}, error) {
	// String concatenation when either side is a string.
	if leftStr, ok := left.(string); ok {
		return leftStr + FormatValue(right), nil
	}
	if rightStr, ok := right.(string); ok {
		return FormatValue(left) + rightStr, nil
	}
	return evaluateArithmetic(left, "add", right, func(a, b float64) float64 { return a + b })
}

func evaluateArithmetic(left interface{}, verb string, right interface{}, op func(a, b float64) float64) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot %s %T and %T", verb, left, right)
	}

	result := op(leftNum, rightNum)
	if isInteger(left) && isInteger(right) {
		return int(result), nil
	}
	return result, nil
}

func evaluateDivision(left, right interface{}) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot divide %T and %T", left, right)
	}
	if rightNum == 0 {
		return nil, fmt.Errorf("division by zero")
	}

	result := leftNum / rightNum
	if isInteger(left) && isInteger(right) && result == float64(int(result)) {
		return int(result), nil
	}
	return result, nil
}

func evaluateModulo(left, right interface{}) (interface{}, error) {
	leftInt, leftOk := toInt(left)
	rightInt, rightOk := toInt(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("modulo requires integers, got %T and %T", left, right)
	}
	if rightInt == 0 {
		return nil, fmt.Errorf("modulo by zero")
	}
	return leftInt % rightInt, nil
}

func evaluateComparison(left interface{}, operator string, right interface{}) (interface{}, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot compare %T and %T", left, right)
	}

	switch operator {
	case "<":
		return leftNum < rightNum, nil
	case ">":
		return leftNum > rightNum, nil
	case "<=":
		return leftNum <= rightNum, nil
	default:
		return leftNum >= rightNum, nil
	}
}

func evaluateUnaryMinus(operand interface{}) (interface{}, error) {
	num, ok := toFloat64(operand)
	if !ok {
		return nil, fmt.Errorf("cannot apply unary minus to %T", operand)
	}
	if isInteger(operand) {
		return -int(num), nil
	}
	return -num, nil
}

func evaluateUnaryPlus(operand interface{}) (interface{}, error) {
	num, ok := toFloat64(operand)
	if !ok {
		return nil, fmt.Errorf("cannot apply unary plus to %T", operand)
	}
	if isInteger(operand) {
		return int(num), nil
	}
	return num, nil
}
