// Package policy compiles the satisfied-expression setting with CEL.
package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"rwpay/internal/core/apperror"
	"rwpay/internal/domain/reconciliation"
	"rwpay/pkg/logger"
)

// Compiler turns expressions over a paid payment into predicates.
// Compiled programs are cached by expression text.
type Compiler struct {
	env *cel.Env
	log *logger.Logger

	mu    sync.Mutex
	cache map[string]reconciliation.SatisfiedFunc
}

// NewCompiler builds the CEL environment. A nil log discards evaluation warnings.
func NewCompiler(log *logger.Logger) (*Compiler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	env, err := cel.NewEnv(
		cel.Variable("category", cel.StringType),
		cel.Variable("amount", cel.IntType),
		cel.Variable("usage", cel.DoubleType),
		cel.Variable("rate", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &Compiler{env: env, log: log.WithComponent("policy"), cache: make(map[string]reconciliation.SatisfiedFunc)}, nil
}

// Compile returns AnyPaid for a blank expression. Errors are Validation errors.
func (c *Compiler) Compile(expr string) (reconciliation.SatisfiedFunc, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return reconciliation.AnyPaid, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if fn, ok := c.cache[expr]; ok {
		return fn, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, invalid(expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, invalid(expr, fmt.Errorf("expression must return bool, got %s", ast.OutputType()))
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, invalid(expr, err)
	}

	// A payment the program cannot evaluate counts as paid and is logged.
	fn := func(p reconciliation.PaidPayment) bool {
		usage := 0.0
		if p.UsageQuantity != nil {
			usage = p.UsageQuantity.InexactFloat64()
		}
		out, _, err := prg.Eval(map[string]any{
			"category": string(p.Category),
			"amount":   int64(p.Amount),
			"usage":    usage,
			"rate":     int64(p.RatePerUnit),
		})
		if err != nil {
			c.log.Warnw("satisfied expression failed, counting payment as paid",
				"expression", expr,
				"payment_id", p.ID,
				"resident_id", p.ResidentID,
				"error", err,
			)
			return reconciliation.AnyPaid(p)
		}
		b, ok := out.Value().(bool)
		return ok && b
	}

	c.cache[expr] = fn
	return fn, nil
}

// Check validates expr without keeping the result.
func (c *Compiler) Check(expr string) error {
	_, err := c.Compile(expr)
	return err
}

func invalid(expr string, err error) error {
	return apperror.NewValidation("invalid satisfied expression").
		WithDetail("field", "satisfied_expression").
		WithDetail("expression", expr).
		WithDetail("error", err.Error())
}
