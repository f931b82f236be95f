// pkg/sql/executor/select.go
package executor

import (
	"sort"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/storage"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// outputCol is one projected column: its display name and the expression
// that produces it
type outputCol struct {
	name string
	expr parser.Expression
}

// executeSelect runs the full query pipeline: source rows from FROM and
// JOINs, WHERE filter, then either the grouped or the plain tail
func (e *Executor) executeSelect(stmt *parser.SelectStmt) (*Result, error) {
	bindings, err := e.resolveBindings(stmt)
	if err != nil {
		return nil, err
	}

	srcRows, err := e.sourceRows(stmt, bindings)
	if err != nil {
		return nil, err
	}

	// WHERE keeps only rows whose predicate is true; unknown filters out
	if stmt.Where != nil {
		kept := srcRows[:0]
		for _, src := range srcRows {
			env := &evalEnv{src: src}
			v, err := env.eval(stmt.Where)
			if err != nil {
				return nil, err
			}
			if isTrue(v) {
				kept = append(kept, src)
			}
		}
		srcRows = kept
	}

	outputCols, err := expandProjection(stmt, bindings)
	if err != nil {
		return nil, err
	}

	// With no row left to project, resolve the projection once against an
	// all-null row so an unknown column still fails as a schema error
	if len(srcRows) == 0 && len(stmt.GroupBy) == 0 && !hasAggregates(stmt) {
		env := &evalEnv{src: emptySourceRow(bindings)}
		for _, col := range outputCols {
			if _, err := env.eval(col.expr); err != nil {
				return nil, err
			}
		}
	}

	if len(stmt.GroupBy) > 0 || hasAggregates(stmt) {
		return e.groupedSelect(stmt, bindings, srcRows, outputCols)
	}
	return e.plainSelect(stmt, srcRows, outputCols)
}

// resolveBindings checks every referenced table and assembles the binding
// list in join order
func (e *Executor) resolveBindings(stmt *parser.SelectStmt) ([]binding, error) {
	refs := []parser.TableRef{stmt.From}
	for _, join := range stmt.Joins {
		refs = append(refs, join.Table)
	}

	var bindings []binding
	seen := make(map[string]bool)
	for _, ref := range refs {
		def := e.catalog.GetTable(ref.Name)
		if def == nil {
			return nil, schema.Errorf("table %s does not exist", ref.Name)
		}
		name := ref.Binding()
		key := strings.ToLower(name)
		if seen[key] {
			return nil, schema.Errorf("duplicate table name or alias %s", name)
		}
		seen[key] = true
		bindings = append(bindings, binding{name: name, def: def})
	}
	return bindings, nil
}

// sourceRows produces the joined row stream. The left table drives; each
// JOIN nests a scan of its right table. A single-table query with a usable
// WHERE conjunct reads candidates through an index instead of scanning.
func (e *Executor) sourceRows(stmt *parser.SelectStmt, bindings []binding) ([]*sourceRow, error) {
	left := bindings[0]

	var base []*sourceRow
	appendRow := func(row storage.Row) {
		base = append(base, &sourceRow{bindings: bindings, rows: paddedRows(row, len(bindings))})
	}

	if len(stmt.Joins) == 0 {
		if ids, ok := e.candidateRowIDs(left.def, left.name, stmt.Where); ok {
			for _, id := range ids {
				if row, found := e.store.Get(left.def.Name, id); found {
					appendRow(row)
				}
			}
			return e.applyJoins(stmt, bindings, base)
		}
	}

	it, err := e.store.Scan(left.def.Name)
	if err != nil {
		return nil, err
	}
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		appendRow(entry.Row)
	}

	return e.applyJoins(stmt, bindings, base)
}

// paddedRows places the left row first and leaves later join slots nil
func paddedRows(row storage.Row, n int) []storage.Row {
	rows := make([]storage.Row, n)
	rows[0] = row
	return rows
}

// applyJoins runs each JOIN step as a nested loop over the right table
func (e *Executor) applyJoins(stmt *parser.SelectStmt, bindings []binding, rows []*sourceRow) ([]*sourceRow, error) {
	for step, join := range stmt.Joins {
		right := bindings[step+1]

		rightEntries, err := e.store.Scan(right.def.Name)
		if err != nil {
			return nil, err
		}
		var rightRows []storage.Row
		for {
			entry, ok := rightEntries.Next()
			if !ok {
				break
			}
			rightRows = append(rightRows, entry.Row)
		}

		var next []*sourceRow
		for _, src := range rows {
			matched := false
			for _, rightRow := range rightRows {
				candidate := src.withRow(step+1, rightRow)
				env := &evalEnv{src: candidate}
				v, err := env.eval(join.On)
				if err != nil {
					return nil, err
				}
				if isTrue(v) {
					next = append(next, candidate)
					matched = true
				}
			}
			if join.Type == parser.JoinLeft && !matched {
				// Emit the outer row once with the right side null-extended
				next = append(next, src.withRow(step+1, nil))
			}
		}
		rows = next
	}
	return rows, nil
}

// withRow copies the source row with slot i filled
func (s *sourceRow) withRow(i int, row storage.Row) *sourceRow {
	rows := make([]storage.Row, len(s.rows))
	copy(rows, s.rows)
	rows[i] = row
	return &sourceRow{bindings: s.bindings, rows: rows}
}

// expandProjection resolves * to the bound columns in declaration order and
// names every output column (alias, or the printed expression)
func expandProjection(stmt *parser.SelectStmt, bindings []binding) ([]outputCol, error) {
	var out []outputCol
	for _, col := range stmt.Columns {
		if col.Star {
			if len(stmt.GroupBy) > 0 {
				return nil, schema.Errorf("SELECT * cannot be combined with GROUP BY")
			}
			for _, b := range bindings {
				for i := range b.def.Columns {
					c := &b.def.Columns[i]
					out = append(out, outputCol{
						name: c.Name,
						expr: &parser.ColumnRef{Table: b.name, Name: c.Name},
					})
				}
			}
			continue
		}

		name := col.Alias
		if name == "" {
			name = parser.PrintExpr(col.Expr)
		}
		out = append(out, outputCol{name: name, expr: col.Expr})
	}
	return out, nil
}

// plainSelect projects, deduplicates, orders, and slices ungrouped rows
func (e *Executor) plainSelect(stmt *parser.SelectStmt, srcRows []*sourceRow, outputCols []outputCol) (*Result, error) {
	type projected struct {
		src *sourceRow
		out storage.Row
	}

	items := make([]projected, 0, len(srcRows))
	for _, src := range srcRows {
		env := &evalEnv{src: src}
		out := make(storage.Row, len(outputCols))
		for _, col := range outputCols {
			v, err := env.eval(col.expr)
			if err != nil {
				return nil, err
			}
			out[col.name] = v
		}
		items = append(items, projected{src: src, out: out})
	}

	if stmt.Distinct {
		seen := make(map[string]bool)
		kept := items[:0]
		for _, item := range items {
			key := tupleKey(item.out, outputCols)
			if !seen[key] {
				seen[key] = true
				kept = append(kept, item)
			}
		}
		items = kept
	}

	if len(stmt.OrderBy) > 0 {
		var sortErr error
		sort.SliceStable(items, func(i, j int) bool {
			less, err := e.orderLess(stmt.OrderBy, outputCols,
				&evalEnv{src: items[i].src}, items[i].out,
				&evalEnv{src: items[j].src}, items[j].out)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return less
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	items = sliceWindow(items, stmt.Offset, stmt.Limit)

	result := &Result{Status: "SELECT"}
	for _, col := range outputCols {
		result.Columns = append(result.Columns, col.name)
	}
	for _, item := range items {
		result.Rows = append(result.Rows, item.out)
	}
	return result, nil
}

// group is one GROUP BY partition: the first row seen is its representative
// for evaluating group-key expressions
type group struct {
	rep  *sourceRow
	rows []*sourceRow
}

// groupedSelect partitions, aggregates, applies HAVING, projects, orders,
// and slices
func (e *Executor) groupedSelect(stmt *parser.SelectStmt, bindings []binding, srcRows []*sourceRow, outputCols []outputCol) (*Result, error) {
	groupExprs := substituteAliases(stmt.GroupBy, stmt.Columns)

	var ordered []*group
	if len(groupExprs) == 0 {
		// Aggregates without GROUP BY: the whole input is one group
		g := &group{rep: emptySourceRow(bindings), rows: srcRows}
		if len(srcRows) > 0 {
			g.rep = srcRows[0]
		}
		ordered = []*group{g}
	} else {
		byKey := make(map[string]*group)
		for _, src := range srcRows {
			env := &evalEnv{src: src}
			var parts []string
			for _, expr := range groupExprs {
				v, err := env.eval(expr)
				if err != nil {
					return nil, err
				}
				parts = append(parts, v.Key())
			}
			key := strings.Join(parts, "\x1f")
			g, ok := byKey[key]
			if !ok {
				g = &group{rep: src}
				byKey[key] = g
				ordered = append(ordered, g)
			}
			g.rows = append(g.rows, src)
		}
	}

	aggExprs := collectAggregates(stmt)

	result := &Result{Status: "SELECT"}
	for _, col := range outputCols {
		result.Columns = append(result.Columns, col.name)
	}

	type projectedGroup struct {
		env *evalEnv
		out storage.Row
	}
	var items []projectedGroup

	for _, g := range ordered {
		aggs := make(map[string]types.Value, len(aggExprs))
		for _, agg := range aggExprs {
			v, err := computeAggregate(agg, g.rows)
			if err != nil {
				return nil, err
			}
			aggs[parser.PrintExpr(agg)] = v
		}

		env := &evalEnv{src: g.rep, aggs: aggs}

		if stmt.Having != nil {
			v, err := env.eval(stmt.Having)
			if err != nil {
				return nil, err
			}
			if !isTrue(v) {
				continue
			}
		}

		out := make(storage.Row, len(outputCols))
		for _, col := range outputCols {
			v, err := env.eval(col.expr)
			if err != nil {
				return nil, err
			}
			out[col.name] = v
		}
		items = append(items, projectedGroup{env: env, out: out})
	}

	if stmt.Distinct {
		seen := make(map[string]bool)
		kept := items[:0]
		for _, item := range items {
			key := tupleKey(item.out, outputCols)
			if !seen[key] {
				seen[key] = true
				kept = append(kept, item)
			}
		}
		items = kept
	}

	if len(stmt.OrderBy) > 0 {
		var sortErr error
		sort.SliceStable(items, func(i, j int) bool {
			less, err := e.orderLess(stmt.OrderBy, outputCols,
				items[i].env, items[i].out,
				items[j].env, items[j].out)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return less
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	items = sliceWindow(items, stmt.Offset, stmt.Limit)
	for _, item := range items {
		result.Rows = append(result.Rows, item.out)
	}
	return result, nil
}

// emptySourceRow builds an all-null row so a zero-row group can still
// evaluate column references
func emptySourceRow(bindings []binding) *sourceRow {
	return &sourceRow{bindings: bindings, rows: make([]storage.Row, len(bindings))}
}

// orderLess compares two rows by the ORDER BY key list. Nulls sort first
// under ASC and last under DESC. Keys referencing an output column name or
// alias read the projected value; anything else evaluates in row context.
func (e *Executor) orderLess(orderBy []parser.OrderByExpr, outputCols []outputCol,
	envA *evalEnv, outA storage.Row, envB *evalEnv, outB storage.Row) (bool, error) {

	for _, item := range orderBy {
		va, err := orderKey(item.Expr, outputCols, envA, outA)
		if err != nil {
			return false, err
		}
		vb, err := orderKey(item.Expr, outputCols, envB, outB)
		if err != nil {
			return false, err
		}

		cmp, err := compareForSort(va, vb)
		if err != nil {
			return false, err
		}
		if item.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0, nil
		}
	}
	return false, nil
}

// orderKey evaluates one sort key for one row
func orderKey(expr parser.Expression, outputCols []outputCol, env *evalEnv, out storage.Row) (types.Value, error) {
	if ref, ok := expr.(*parser.ColumnRef); ok && ref.Table == "" {
		for _, col := range outputCols {
			if strings.EqualFold(col.name, ref.Name) {
				return out[col.name], nil
			}
		}
	}
	return env.eval(expr)
}

// compareForSort orders values with null smallest
func compareForSort(a, b types.Value) (int, error) {
	switch {
	case a.IsNull() && b.IsNull():
		return 0, nil
	case a.IsNull():
		return -1, nil
	case b.IsNull():
		return 1, nil
	}
	return types.Compare(a, b)
}

// tupleKey builds the DISTINCT identity of a projected row; null equals null
func tupleKey(out storage.Row, outputCols []outputCol) string {
	parts := make([]string, len(outputCols))
	for i, col := range outputCols {
		parts[i] = out[col.name].Key()
	}
	return strings.Join(parts, "\x1f")
}

// sliceWindow applies OFFSET then LIMIT
func sliceWindow[T any](items []T, offset, limit int64) []T {
	if offset > 0 {
		if offset >= int64(len(items)) {
			return nil
		}
		items = items[offset:]
	}
	if limit >= 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

// substituteAliases rewrites bare column references that name a projection
// alias to that projection's expression (GROUP BY n, ORDER BY n)
func substituteAliases(exprs []parser.Expression, columns []parser.SelectColumn) []parser.Expression {
	if len(exprs) == 0 {
		return exprs
	}
	out := make([]parser.Expression, len(exprs))
	for i, expr := range exprs {
		out[i] = expr
		if ref, ok := expr.(*parser.ColumnRef); ok && ref.Table == "" {
			for _, col := range columns {
				if col.Alias != "" && strings.EqualFold(col.Alias, ref.Name) {
					out[i] = col.Expr
					break
				}
			}
		}
	}
	return out
}

// hasAggregates reports whether any projection, HAVING, or ORDER BY key
// contains an aggregate call
func hasAggregates(stmt *parser.SelectStmt) bool {
	return len(collectAggregates(stmt)) > 0
}

// collectAggregates gathers every distinct aggregate call in the statement
func collectAggregates(stmt *parser.SelectStmt) []*parser.AggregateExpr {
	var aggs []*parser.AggregateExpr
	seen := make(map[string]bool)

	add := func(a *parser.AggregateExpr) {
		key := parser.PrintExpr(a)
		if !seen[key] {
			seen[key] = true
			aggs = append(aggs, a)
		}
	}

	for _, col := range stmt.Columns {
		if !col.Star {
			walkAggregates(col.Expr, add)
		}
	}
	if stmt.Having != nil {
		walkAggregates(stmt.Having, add)
	}
	for _, item := range stmt.OrderBy {
		walkAggregates(item.Expr, add)
	}
	return aggs
}

// walkAggregates visits aggregate nodes in an expression tree. Aggregate
// arguments are not descended into: nesting aggregates is not supported.
func walkAggregates(expr parser.Expression, visit func(*parser.AggregateExpr)) {
	switch ex := expr.(type) {
	case *parser.AggregateExpr:
		visit(ex)
	case *parser.BinaryExpr:
		walkAggregates(ex.Left, visit)
		walkAggregates(ex.Right, visit)
	case *parser.UnaryExpr:
		walkAggregates(ex.Right, visit)
	case *parser.IsNullExpr:
		walkAggregates(ex.Expr, visit)
	case *parser.InExpr:
		walkAggregates(ex.Expr, visit)
		for _, item := range ex.List {
			walkAggregates(item, visit)
		}
	case *parser.BetweenExpr:
		walkAggregates(ex.Expr, visit)
		walkAggregates(ex.Low, visit)
		walkAggregates(ex.High, visit)
	}
}
