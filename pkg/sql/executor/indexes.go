// pkg/sql/executor/indexes.go
package executor

import (
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/btree"
	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// tableIndex pairs an index definition with its open B-tree
type tableIndex struct {
	def  schema.IndexDef
	tree *btree.BTree
}

func lowerName(s string) string {
	return strings.ToLower(s)
}

// Rebuild constructs every index tree from the catalog definitions by
// scanning the tables. Called once after open; index node layout is never
// persisted.
func (e *Executor) Rebuild() error {
	e.indexes = make(map[string][]*tableIndex)
	for _, name := range e.catalog.ListTables() {
		def := e.catalog.GetTable(name)
		for _, idxDef := range def.Indexes {
			idx, err := e.buildIndex(def, idxDef)
			if err != nil {
				return err
			}
			key := lowerName(def.Name)
			e.indexes[key] = append(e.indexes[key], idx)
		}
	}
	return nil
}

// buildIndex fills a fresh tree from a full table scan. Null keys stay out
// of the tree; a unique index fails on the first duplicate key.
func (e *Executor) buildIndex(def *schema.TableDef, idxDef schema.IndexDef) (*tableIndex, error) {
	col, _ := def.GetColumn(idxDef.Column)
	if col == nil {
		return nil, schema.Errorf("index %s references unknown column %s", idxDef.Name, idxDef.Column)
	}

	tree := btree.New(e.degree, idxDef.Unique)
	it, err := e.store.Scan(def.Name)
	if err != nil {
		return nil, err
	}
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		key := entry.Row[col.Name]
		if key.IsNull() {
			continue
		}
		if err := tree.Insert(key, entry.ID); err != nil {
			if err == btree.ErrDuplicateKey {
				return nil, schema.ConstraintErrorf("duplicate value in column %s of table %s", col.Name, def.Name)
			}
			return nil, err
		}
	}

	return &tableIndex{def: idxDef, tree: tree}, nil
}

// openIndexes creates empty trees for a freshly created table
func (e *Executor) openIndexes(def *schema.TableDef) {
	key := lowerName(def.Name)
	for _, idxDef := range def.Indexes {
		e.indexes[key] = append(e.indexes[key], &tableIndex{
			def:  idxDef,
			tree: btree.New(e.degree, idxDef.Unique),
		})
	}
}

// closeIndexes forgets every index of a dropped table
func (e *Executor) closeIndexes(table string) {
	delete(e.indexes, lowerName(table))
}

// dropOpenIndex forgets one index by name
func (e *Executor) dropOpenIndex(table, indexName string) {
	key := lowerName(table)
	open := e.indexes[key]
	for i, idx := range open {
		if strings.EqualFold(idx.def.Name, indexName) {
			e.indexes[key] = append(open[:i], open[i+1:]...)
			return
		}
	}
}

// tableIndexes returns the open indexes of a table
func (e *Executor) tableIndexes(table string) []*tableIndex {
	return e.indexes[lowerName(table)]
}

// indexOnColumn returns an open index covering the column, or nil
func (e *Executor) indexOnColumn(table, column string) *tableIndex {
	for _, idx := range e.tableIndexes(table) {
		if strings.EqualFold(idx.def.Column, column) {
			return idx
		}
	}
	return nil
}

// candidateRowIDs inspects the WHERE predicate of a single-table statement
// for a conjunct that an index can answer: col = literal, col IN (...),
// col BETWEEN a AND b, or a range comparison. It returns the candidate row
// ids and true when an index was usable; the caller still evaluates the
// full predicate per candidate.
func (e *Executor) candidateRowIDs(def *schema.TableDef, binding string, where parser.Expression) ([]uint64, bool) {
	if where == nil {
		return nil, false
	}

	for _, conjunct := range splitConjuncts(where) {
		if ids, ok := e.probeConjunct(def, binding, conjunct); ok {
			return ids, true
		}
	}
	return nil, false
}

// splitConjuncts flattens a left-leaning AND chain
func splitConjuncts(expr parser.Expression) []parser.Expression {
	if b, ok := expr.(*parser.BinaryExpr); ok && b.Op == lexer.AND {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []parser.Expression{expr}
}

// probeConjunct tries to answer one conjunct from an index
func (e *Executor) probeConjunct(def *schema.TableDef, binding string, expr parser.Expression) ([]uint64, bool) {
	switch c := expr.(type) {
	case *parser.BinaryExpr:
		col, lit, op, ok := indexableComparison(c, binding)
		if !ok {
			return nil, false
		}
		idx, key, ok := e.probeTarget(def, col, lit)
		if !ok {
			return nil, false
		}
		switch op {
		case lexer.EQ:
			return idx.tree.Search(key), true
		case lexer.LT:
			return idx.tree.Range(nil, &key, false, false), true
		case lexer.LTE:
			return idx.tree.Range(nil, &key, false, true), true
		case lexer.GT:
			return idx.tree.Range(&key, nil, false, false), true
		case lexer.GTE:
			return idx.tree.Range(&key, nil, true, false), true
		}
		return nil, false

	case *parser.InExpr:
		if c.Not {
			return nil, false
		}
		ref, ok := bindingColumn(c.Expr, binding)
		if !ok {
			return nil, false
		}
		var ids []uint64
		for _, item := range c.List {
			lit, ok := item.(*parser.Literal)
			if !ok {
				return nil, false
			}
			idx, key, ok := e.probeTarget(def, ref, lit.Value)
			if !ok {
				return nil, false
			}
			ids = append(ids, idx.tree.Search(key)...)
		}
		return ids, true

	case *parser.BetweenExpr:
		if c.Not {
			return nil, false
		}
		ref, ok := bindingColumn(c.Expr, binding)
		if !ok {
			return nil, false
		}
		lowLit, ok := c.Low.(*parser.Literal)
		if !ok {
			return nil, false
		}
		highLit, ok := c.High.(*parser.Literal)
		if !ok {
			return nil, false
		}
		idx, low, ok := e.probeTarget(def, ref, lowLit.Value)
		if !ok {
			return nil, false
		}
		_, high, ok := e.probeTarget(def, ref, highLit.Value)
		if !ok {
			return nil, false
		}
		return idx.tree.Range(&low, &high, true, true), true
	}

	return nil, false
}

// indexableComparison recognizes col <op> literal (or literal <op> col,
// with the operator flipped) for the bound table
func indexableComparison(b *parser.BinaryExpr, binding string) (col string, lit types.Value, op lexer.TokenType, ok bool) {
	switch b.Op {
	case lexer.EQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
	default:
		return "", types.NewNull(), 0, false
	}

	if ref, ok := bindingColumn(b.Left, binding); ok {
		if l, isLit := b.Right.(*parser.Literal); isLit {
			return ref, l.Value, b.Op, true
		}
	}
	if ref, ok := bindingColumn(b.Right, binding); ok {
		if l, isLit := b.Left.(*parser.Literal); isLit {
			return ref, l.Value, flipComparison(b.Op), true
		}
	}
	return "", types.NewNull(), 0, false
}

func flipComparison(op lexer.TokenType) lexer.TokenType {
	switch op {
	case lexer.LT:
		return lexer.GT
	case lexer.LTE:
		return lexer.GTE
	case lexer.GT:
		return lexer.LT
	case lexer.GTE:
		return lexer.LTE
	default:
		return op
	}
}

// bindingColumn extracts a column name from an expression when it refers to
// the bound table
func bindingColumn(expr parser.Expression, binding string) (string, bool) {
	ref, ok := expr.(*parser.ColumnRef)
	if !ok {
		return "", false
	}
	if ref.Table != "" && !strings.EqualFold(ref.Table, binding) {
		return "", false
	}
	return ref.Name, true
}

// probeTarget resolves an index and coerces the probe literal to the
// column's declared type so numeric, date, and timestamp keys compare
// correctly. Null probes never match an index.
func (e *Executor) probeTarget(def *schema.TableDef, column string, lit types.Value) (*tableIndex, types.Value, bool) {
	col, _ := def.GetColumn(column)
	if col == nil {
		return nil, types.NewNull(), false
	}
	idx := e.indexOnColumn(def.Name, col.Name)
	if idx == nil {
		return nil, types.NewNull(), false
	}
	if lit.IsNull() {
		return nil, types.NewNull(), false
	}
	key, err := col.CoerceValue(lit)
	if err != nil {
		// Numeric probes against a differently-typed numeric column still
		// compare fine through value ordering
		if lit.Type() == types.TypeInt || lit.Type() == types.TypeFloat {
			return idx, lit, true
		}
		return nil, types.NewNull(), false
	}
	return idx, key, true
}
