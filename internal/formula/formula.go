// Package formula implements the safe expression evaluator and value
// formatters behind `computed` content items (C6): arithmetic, comparison
// and logical expressions over the source record only — no function
// calls, no builtins, nothing that could execute arbitrary code.
package formula

import (
	"fmt"
	"math"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"

	"github.com/soochol/notegen/internal/notetmpl"
)

// Error wraps a formula failure (compile, disallowed construct, or
// runtime) so resolvers can convert it into a formula_error warning
// instead of letting a panic or raw error escape.
type Error struct {
	Formula string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("formula_error: %q: %v", e.Formula, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// disallowedNode rejects any construct beyond arithmetic, comparison, and
// logical operators: function/method calls and builtins are the primary
// code-execution surface expr exposes, so both are patched out at compile
// time rather than filtered at runtime.
type disallowedNode struct{ found ast.Node }

func (d *disallowedNode) Visit(node *ast.Node) {
	switch (*node).(type) {
	case *ast.CallNode, *ast.BuiltinNode:
		if d.found == nil {
			d.found = *node
		}
	}
}

// Evaluate compiles and runs formula against record (the deterministic
// source record, not the full NAS snapshot — computed formulas read raw
// source data, not AI output). Any compile failure, disallowed construct,
// or runtime error (including a missing identifier) is returned as *Error
// and never panics.
func Evaluate(formula string, record map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Formula: formula, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	if formula == "" {
		return nil, &Error{Formula: formula, Cause: fmt.Errorf("empty formula")}
	}

	guard := &disallowedNode{}
	program, compileErr := expr.Compile(formula, expr.Env(record), expr.Patch(guard))
	if guard.found != nil {
		return nil, &Error{Formula: formula, Cause: fmt.Errorf("function calls and builtins are not permitted in computed formulas")}
	}
	if compileErr != nil {
		return nil, &Error{Formula: formula, Cause: compileErr}
	}

	out, runErr := expr.Run(program, record)
	if runErr != nil {
		return nil, &Error{Formula: formula, Cause: runErr}
	}
	if n, ok := out.(float64); ok && (math.IsInf(n, 0) || math.IsNaN(n)) {
		// expr's VM does float division, so a/0 yields +Inf/NaN instead of
		// erroring — catch it here rather than formatting it into the NAS.
		return nil, &Error{Formula: formula, Cause: fmt.Errorf("division by zero")}
	}
	return out, nil
}

// Format renders a formula result according to the content item's declared
// FormatKind. Division results and comparisons already come out as Go
// float64/bool from expr; Format only needs to stringify them.
func Format(kind notetmpl.FormatKind, value any) (string, error) {
	switch kind {
	case notetmpl.FormatDeltaScore:
		n, err := toFloat(value)
		if err != nil {
			return "", &Error{Cause: err}
		}
		rounded := int(math.Round(n))
		if rounded >= 0 {
			return fmt.Sprintf("+%d", rounded), nil
		}
		return strconv.Itoa(rounded), nil
	case notetmpl.FormatPercent:
		n, err := toFloat(value)
		if err != nil {
			return "", &Error{Cause: err}
		}
		return fmt.Sprintf("%d%%", int(math.Round(n*100))), nil
	case notetmpl.FormatPlain, "":
		return plainString(value), nil
	default:
		return "", &Error{Cause: fmt.Errorf("unknown format kind %q", kind)}
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("cannot format non-numeric result %v (%T) with a numeric formatter", v, v)
	}
}

func plainString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
