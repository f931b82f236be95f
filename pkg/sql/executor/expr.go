// pkg/sql/executor/expr.go
package executor

import (
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/storage"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// binding is one table (or alias) visible to expressions in a statement
type binding struct {
	name string // the name expressions qualify columns with
	def  *schema.TableDef
}

// sourceRow is one (possibly joined) input row: the rows slice is parallel
// to the binding list; a nil row stands in for the null-extended side of a
// LEFT JOIN miss
type sourceRow struct {
	bindings []binding
	rows     []storage.Row
}

// evalEnv is the context expressions evaluate in. aggs carries computed
// aggregate results keyed by their printed form; it is nil outside
// HAVING/projection of grouped queries.
type evalEnv struct {
	src  *sourceRow
	aggs map[string]types.Value
}

// resolveColumn finds a column value by optional qualifier and name
func (env *evalEnv) resolveColumn(ref *parser.ColumnRef) (types.Value, error) {
	if env.src == nil {
		return types.NewNull(), schema.Errorf("column %s is not available here", ref.Name)
	}

	for i, b := range env.src.bindings {
		if ref.Table != "" && !strings.EqualFold(ref.Table, b.name) {
			continue
		}
		col, _ := b.def.GetColumn(ref.Name)
		if col == nil {
			if ref.Table != "" {
				return types.NewNull(), schema.Errorf("column %s does not exist in %s", ref.Name, b.name)
			}
			continue
		}
		row := env.src.rows[i]
		if row == nil {
			return types.NewNull(), nil
		}
		return row[col.Name], nil
	}

	if ref.Table != "" {
		return types.NewNull(), schema.Errorf("unknown table or alias %s", ref.Table)
	}
	return types.NewNull(), schema.Errorf("unknown column %s", ref.Name)
}

// eval evaluates an expression under three-valued logic. Predicates produce
// boolean values with null standing in for unknown.
func (env *evalEnv) eval(expr parser.Expression) (types.Value, error) {
	switch ex := expr.(type) {
	case *parser.Literal:
		return ex.Value, nil

	case *parser.ColumnRef:
		return env.resolveColumn(ex)

	case *parser.UnaryExpr:
		right, err := env.eval(ex.Right)
		if err != nil {
			return types.NewNull(), err
		}
		if ex.Op == lexer.NOT {
			return evalNot(right)
		}
		return types.Neg(right)

	case *parser.BinaryExpr:
		return env.evalBinary(ex)

	case *parser.AggregateExpr:
		if env.aggs == nil {
			return types.NewNull(), schema.Errorf("aggregate %s is not allowed here", parser.PrintExpr(ex))
		}
		v, ok := env.aggs[parser.PrintExpr(ex)]
		if !ok {
			return types.NewNull(), schema.Errorf("aggregate %s was not computed", parser.PrintExpr(ex))
		}
		return v, nil

	case *parser.IsNullExpr:
		v, err := env.eval(ex.Expr)
		if err != nil {
			return types.NewNull(), err
		}
		if ex.Not {
			return types.NewBool(!v.IsNull()), nil
		}
		return types.NewBool(v.IsNull()), nil

	case *parser.InExpr:
		return env.evalIn(ex)

	case *parser.BetweenExpr:
		return env.evalBetween(ex)

	default:
		return types.NewNull(), schema.Errorf("unsupported expression %T", expr)
	}
}

func (env *evalEnv) evalBinary(ex *parser.BinaryExpr) (types.Value, error) {
	switch ex.Op {
	case lexer.AND, lexer.OR:
		return env.evalLogical(ex)
	}

	left, err := env.eval(ex.Left)
	if err != nil {
		return types.NewNull(), err
	}
	right, err := env.eval(ex.Right)
	if err != nil {
		return types.NewNull(), err
	}

	switch ex.Op {
	case lexer.PLUS:
		return types.Add(left, right)
	case lexer.MINUS:
		return types.Sub(left, right)
	case lexer.STAR:
		return types.Mul(left, right)
	case lexer.SLASH:
		return types.Div(left, right)
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		return compareValues(left, right, ex.Op)
	case lexer.LIKE_KW:
		return evalLike(left, right)
	default:
		return types.NewNull(), schema.Errorf("unsupported operator %s", ex.Op)
	}
}

// evalLogical implements AND/OR with short-circuit three-valued semantics
func (env *evalEnv) evalLogical(ex *parser.BinaryExpr) (types.Value, error) {
	left, err := env.eval(ex.Left)
	if err != nil {
		return types.NewNull(), err
	}
	lt, err := truthOf(left)
	if err != nil {
		return types.NewNull(), err
	}

	if ex.Op == lexer.AND && lt == triFalse {
		return types.NewBool(false), nil
	}
	if ex.Op == lexer.OR && lt == triTrue {
		return types.NewBool(true), nil
	}

	right, err := env.eval(ex.Right)
	if err != nil {
		return types.NewNull(), err
	}
	rt, err := truthOf(right)
	if err != nil {
		return types.NewNull(), err
	}

	if ex.Op == lexer.AND {
		switch {
		case rt == triFalse:
			return types.NewBool(false), nil
		case lt == triUnknown || rt == triUnknown:
			return types.NewNull(), nil
		}
		return types.NewBool(true), nil
	}

	switch {
	case rt == triTrue:
		return types.NewBool(true), nil
	case lt == triUnknown || rt == triUnknown:
		return types.NewNull(), nil
	}
	return types.NewBool(false), nil
}

func (env *evalEnv) evalIn(ex *parser.InExpr) (types.Value, error) {
	v, err := env.eval(ex.Expr)
	if err != nil {
		return types.NewNull(), err
	}

	sawUnknown := false
	for _, item := range ex.List {
		elem, err := env.eval(item)
		if err != nil {
			return types.NewNull(), err
		}
		match, err := compareValues(v, elem, lexer.EQ)
		if err != nil {
			return types.NewNull(), err
		}
		if match.IsNull() {
			sawUnknown = true
			continue
		}
		if match.Bool() {
			if ex.Not {
				return types.NewBool(false), nil
			}
			return types.NewBool(true), nil
		}
	}

	if sawUnknown {
		return types.NewNull(), nil
	}
	return types.NewBool(ex.Not), nil
}

func (env *evalEnv) evalBetween(ex *parser.BetweenExpr) (types.Value, error) {
	v, err := env.eval(ex.Expr)
	if err != nil {
		return types.NewNull(), err
	}
	low, err := env.eval(ex.Low)
	if err != nil {
		return types.NewNull(), err
	}
	high, err := env.eval(ex.High)
	if err != nil {
		return types.NewNull(), err
	}

	// value >= low AND value <= high
	ge, err := compareValues(v, low, lexer.GTE)
	if err != nil {
		return types.NewNull(), err
	}
	le, err := compareValues(v, high, lexer.LTE)
	if err != nil {
		return types.NewNull(), err
	}

	result := andValues(ge, le)
	if ex.Not {
		return evalNot(result)
	}
	return result, nil
}

// andValues combines two tri-state booleans without re-evaluating
func andValues(a, b types.Value) types.Value {
	aFalse := !a.IsNull() && !a.Bool()
	bFalse := !b.IsNull() && !b.Bool()
	switch {
	case aFalse || bFalse:
		return types.NewBool(false)
	case a.IsNull() || b.IsNull():
		return types.NewNull()
	}
	return types.NewBool(true)
}

// compareValues implements the comparison operators: null operands yield
// unknown, integer and float compare numerically, other kinds must match.
// Text compared against a date or timestamp is parsed first, mirroring the
// coercion applied on write.
func compareValues(left, right types.Value, op lexer.TokenType) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.NewNull(), nil
	}

	var err error
	if left, right, err = coerceComparison(left, right); err != nil {
		return types.NewNull(), err
	}

	cmp, err := types.Compare(left, right)
	if err != nil {
		return types.NewNull(), err
	}

	switch op {
	case lexer.EQ:
		return types.NewBool(cmp == 0), nil
	case lexer.NEQ:
		return types.NewBool(cmp != 0), nil
	case lexer.LT:
		return types.NewBool(cmp < 0), nil
	case lexer.LTE:
		return types.NewBool(cmp <= 0), nil
	case lexer.GT:
		return types.NewBool(cmp > 0), nil
	case lexer.GTE:
		return types.NewBool(cmp >= 0), nil
	default:
		return types.NewNull(), schema.Errorf("unsupported comparison %s", op)
	}
}

// coerceComparison parses a text operand when the other side is a date or
// timestamp, so literal predicates work the way literal writes do
func coerceComparison(left, right types.Value) (types.Value, types.Value, error) {
	if left.Type() == types.TypeText && isTemporal(right.Type()) {
		parsed, err := types.CoerceTo(left, right.Type())
		if err != nil {
			return left, right, err
		}
		return parsed, right, nil
	}
	if right.Type() == types.TypeText && isTemporal(left.Type()) {
		parsed, err := types.CoerceTo(right, left.Type())
		if err != nil {
			return left, right, err
		}
		return left, parsed, nil
	}
	return left, right, nil
}

func isTemporal(vt types.ValueType) bool {
	return vt == types.TypeDate || vt == types.TypeTimestamp
}

// evalLike matches text against a SQL pattern; null operands yield unknown
func evalLike(v, pattern types.Value) (types.Value, error) {
	if v.IsNull() || pattern.IsNull() {
		return types.NewNull(), nil
	}
	if v.Type() != types.TypeText || pattern.Type() != types.TypeText {
		return types.NewNull(), &types.TypeError{Msg: "LIKE requires text operands"}
	}
	return types.NewBool(types.Like(v.Text(), pattern.Text())), nil
}

// evalNot negates a tri-state boolean
func evalNot(v types.Value) (types.Value, error) {
	t, err := truthOf(v)
	if err != nil {
		return types.NewNull(), err
	}
	switch t {
	case triTrue:
		return types.NewBool(false), nil
	case triFalse:
		return types.NewBool(true), nil
	}
	return types.NewNull(), nil
}

type tristate int

const (
	triFalse tristate = iota
	triTrue
	triUnknown
)

// truthOf maps a value to three-valued truth; non-boolean non-null values
// are a type error
func truthOf(v types.Value) (tristate, error) {
	if v.IsNull() {
		return triUnknown, nil
	}
	if v.Type() != types.TypeBool {
		return triUnknown, &types.TypeError{Msg: "expected a boolean predicate"}
	}
	if v.Bool() {
		return triTrue, nil
	}
	return triFalse, nil
}

// isTrue reports whether a predicate result keeps the row
func isTrue(v types.Value) bool {
	return !v.IsNull() && v.Type() == types.TypeBool && v.Bool()
}
