// pkg/sql/executor/aggregate.go
package executor

import (
	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// computeAggregate evaluates one aggregate call over the rows of a group.
// COUNT(*) counts rows; every other aggregate skips null argument values.
// SUM/AVG/MIN/MAX over no non-null values yield null; a non-null AVG is
// always a float.
func computeAggregate(agg *parser.AggregateExpr, rows []*sourceRow) (types.Value, error) {
	if agg.Star {
		return types.NewInt(int64(len(rows))), nil
	}

	var values []types.Value
	for _, src := range rows {
		env := &evalEnv{src: src}
		v, err := env.eval(agg.Arg)
		if err != nil {
			return types.NewNull(), err
		}
		if !v.IsNull() {
			values = append(values, v)
		}
	}

	switch agg.Func {
	case lexer.COUNT:
		return types.NewInt(int64(len(values))), nil

	case lexer.SUM:
		return sumValues(values)

	case lexer.AVG:
		if len(values) == 0 {
			return types.NewNull(), nil
		}
		sum, err := sumValues(values)
		if err != nil {
			return types.NewNull(), err
		}
		total := sum.Float()
		if sum.Type() == types.TypeInt {
			total = float64(sum.Int())
		}
		return types.NewFloat(total / float64(len(values))), nil

	case lexer.MIN:
		return extremum(values, -1)

	case lexer.MAX:
		return extremum(values, 1)

	default:
		return types.NewNull(), schema.Errorf("unknown aggregate %s", agg.Func)
	}
}

// sumValues adds numeric values; mixing integer and float yields float
func sumValues(values []types.Value) (types.Value, error) {
	if len(values) == 0 {
		return types.NewNull(), nil
	}

	sum := values[0]
	for _, v := range values[1:] {
		next, err := types.Add(sum, v)
		if err != nil {
			return types.NewNull(), err
		}
		sum = next
	}
	if sum.Type() != types.TypeInt && sum.Type() != types.TypeFloat {
		return types.NewNull(), &types.TypeError{Msg: "SUM requires numeric values"}
	}
	return sum, nil
}

// extremum returns the smallest (dir < 0) or largest (dir > 0) value
func extremum(values []types.Value, dir int) (types.Value, error) {
	if len(values) == 0 {
		return types.NewNull(), nil
	}

	best := values[0]
	for _, v := range values[1:] {
		cmp, err := types.Compare(v, best)
		if err != nil {
			return types.NewNull(), err
		}
		if (dir < 0 && cmp < 0) || (dir > 0 && cmp > 0) {
			best = v
		}
	}
	return best, nil
}
