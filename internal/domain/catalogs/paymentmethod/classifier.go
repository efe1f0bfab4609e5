package paymentmethod

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Classifier decides whether a payment method counts as cash-equivalent.
// The predicate is a CEL expression over the method's code and display name,
// compiled once at startup. Example:
//
//	name.contains("Espèces") || name.contains("Cash") || code == "CASH"
//
// Locale-specific markers live in configuration, not in query code.
type Classifier struct {
	program cel.Program
}

// NewClassifier compiles the CEL expression into a reusable program.
func NewClassifier(expression string) (*Classifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("code", cel.StringType),
		cel.Variable("name", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile cash predicate: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("cash predicate must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cash predicate program: %w", err)
	}

	return &Classifier{program: program}, nil
}

// IsCashEquivalent evaluates the predicate for one method.
func (c *Classifier) IsCashEquivalent(m *PaymentMethod) (bool, error) {
	out, _, err := c.program.Eval(map[string]any{
		"code": m.Code,
		"name": m.Name,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate cash predicate: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cash predicate returned %T, want bool", out.Value())
	}
	return result, nil
}
