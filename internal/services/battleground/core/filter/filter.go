// Package filter provides AIP-160 filter expression parsing and SQL translation
// for participant listings.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ParticipantDeclarations returns the field declarations for participant filtering.
func ParticipantDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("alive", filtering.TypeBool),
		filtering.DeclareIdent("attack", filtering.TypeInt),
		filtering.DeclareIdent("defense", filtering.TypeInt),
		filtering.DeclareIdent("health_points", filtering.TypeInt),
		filtering.DeclareIdent("owner", filtering.TypeString),
	)
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "attack > ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// IsEmpty reports whether the condition matches everything.
func (c SQLCondition) IsEmpty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

// fieldMapping maps filter field names to SQL column names.
var fieldMapping = map[string]string{
	"alive":         "alive",
	"attack":        "attack",
	"defense":       "defense",
	"health_points": "health_points",
	"owner":         "owner",
}

// ParseParticipantFilter parses an AIP-160 filter expression and returns a
// SQL condition. Returns an empty condition for an empty filter string.
func ParseParticipantFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := ParticipantDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}

	return translateExpr(filter.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean field, as in "alive".
		return translateBareIdent(kind.IdentExpr.GetName())
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.GetFunction() {
	case "_&&_", "AND":
		return translateLogical(call.GetArgs(), "AND")
	case "_||_", "OR":
		return translateLogical(call.GetArgs(), "OR")
	case "!_", "NOT":
		return translateNot(call.GetArgs())
	case "_==_", "=":
		return translateComparison(call.GetArgs(), "=")
	case "_!=_", "!=":
		return translateComparison(call.GetArgs(), "!=")
	case "_<_", "<":
		return translateComparison(call.GetArgs(), "<")
	case "_<=_", "<=":
		return translateComparison(call.GetArgs(), "<=")
	case "_>_", ">":
		return translateComparison(call.GetArgs(), ">")
	case "_>=_", ">=":
		return translateComparison(call.GetArgs(), ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.GetFunction())
	}
}

func translateLogical(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	params := make([]any, 0, len(left.Params)+len(right.Params))
	params = append(params, left.Params...)
	params = append(params, right.Params...)
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: params,
	}, nil
}

func translateNot(args []*expr.Expr) (SQLCondition, error) {
	if len(args) != 1 {
		return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
	}
	inner, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("(NOT %s)", inner.Clause),
		Params: inner.Params,
	}, nil
}

func translateBareIdent(name string) (SQLCondition, error) {
	if name != "alive" {
		return SQLCondition{}, fmt.Errorf("field %s is not boolean", name)
	}
	return SQLCondition{Clause: "alive = ?", Params: []any{true}}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	column, ok := fieldMapping[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractConstValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	if field == "owner" {
		owner, ok := value.(string)
		if !ok {
			return SQLCondition{}, fmt.Errorf("owner must be compared to a string")
		}
		value = strings.ToLower(strings.TrimPrefix(owner, "0x"))
	}

	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.GetName(), nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractConstValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	if ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr); ok {
		// true and false may reach us as identifiers rather than constants.
		switch ident.IdentExpr.GetName() {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("expected constant, got identifier %s", ident.IdentExpr.GetName())
	}
	constExpr, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch kind := constExpr.ConstExpr.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
