// pkg/sql/executor/mutate.go
package executor

import (
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/storage"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// undoLog collects reversal steps for one statement. Mutations are
// all-or-nothing: on any per-row failure the recorded steps run in reverse
// and nothing is flushed.
type undoLog struct {
	ops []func()
}

func (u *undoLog) add(fn func()) {
	u.ops = append(u.ops, fn)
}

func (u *undoLog) rollback() {
	for i := len(u.ops) - 1; i >= 0; i-- {
		u.ops[i]()
	}
}

// executeInsert handles INSERT: defaults, coercion, NOT NULL and unique
// checks, then the row write and index maintenance, row by row
func (e *Executor) executeInsert(stmt *parser.InsertStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	// Map the statement's column list onto declared positions
	targets, err := insertTargets(def, stmt.Columns)
	if err != nil {
		return nil, err
	}

	undo := &undoLog{}
	var inserted int64

	for _, valueExprs := range stmt.Rows {
		if len(valueExprs) != len(targets) {
			undo.rollback()
			return nil, schema.Errorf("expected %d values for table %s, got %d",
				len(targets), def.Name, len(valueExprs))
		}

		row, err := e.buildInsertRow(def, targets, valueExprs)
		if err != nil {
			undo.rollback()
			return nil, err
		}

		if err := e.checkUnique(def, row, noRowID); err != nil {
			undo.rollback()
			return nil, err
		}

		id, err := e.store.Insert(def.Name, row)
		if err != nil {
			undo.rollback()
			return nil, err
		}
		undo.add(func() { e.store.UndoInsert(def.Name, id) })

		if err := e.indexInsert(def, row, id, undo); err != nil {
			undo.rollback()
			return nil, err
		}

		inserted++
	}

	if err := e.flush(); err != nil {
		undo.rollback()
		return nil, err
	}

	return &Result{Affected: inserted, Status: "INSERT"}, nil
}

// insertTargets resolves the insert column list (or all columns) to defs
func insertTargets(def *schema.TableDef, columns []string) ([]*schema.ColumnDef, error) {
	if columns == nil {
		targets := make([]*schema.ColumnDef, len(def.Columns))
		for i := range def.Columns {
			targets[i] = &def.Columns[i]
		}
		return targets, nil
	}

	targets := make([]*schema.ColumnDef, len(columns))
	seen := make(map[string]bool)
	for i, name := range columns {
		col, _ := def.GetColumn(name)
		if col == nil {
			return nil, schema.Errorf("column %s does not exist in table %s", name, def.Name)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, schema.Errorf("column %s specified twice", col.Name)
		}
		seen[key] = true
		targets[i] = col
	}
	return targets, nil
}

// buildInsertRow assembles a complete row: assigned values are evaluated
// and coerced, omitted columns fall back to their default or null, and
// NOT NULL is enforced at the end
func (e *Executor) buildInsertRow(def *schema.TableDef, targets []*schema.ColumnDef, valueExprs []parser.Expression) (storage.Row, error) {
	env := &evalEnv{}
	row := make(storage.Row, len(def.Columns))

	assigned := make(map[string]bool, len(targets))
	for i, col := range targets {
		v, err := env.eval(valueExprs[i])
		if err != nil {
			return nil, err
		}
		coerced, err := col.CoerceValue(v)
		if err != nil {
			return nil, err
		}
		row[col.Name] = coerced
		assigned[strings.ToLower(col.Name)] = true
	}

	for i := range def.Columns {
		col := &def.Columns[i]
		if assigned[strings.ToLower(col.Name)] {
			continue
		}
		if col.HasDefault {
			coerced, err := col.CoerceValue(col.Default)
			if err != nil {
				return nil, err
			}
			row[col.Name] = coerced
		} else {
			row[col.Name] = types.NewNull()
		}
	}

	for i := range def.Columns {
		col := &def.Columns[i]
		if col.NotNull && row[col.Name].IsNull() {
			return nil, schema.ConstraintErrorf("NOT NULL constraint failed: %s.%s", def.Name, col.Name)
		}
	}

	return row, nil
}

// noRowID marks a uniqueness probe that has no row of its own yet
const noRowID = ^uint64(0)

// checkUnique probes every unique index for the row's key values. A probe
// that only finds selfID passes (UPDATE re-probing its own row). Null keys
// are exempt from uniqueness.
func (e *Executor) checkUnique(def *schema.TableDef, row storage.Row, selfID uint64) error {
	for _, idx := range e.tableIndexes(def.Name) {
		if !idx.def.Unique {
			continue
		}
		col, _ := def.GetColumn(idx.def.Column)
		if col == nil {
			continue
		}
		key := row[col.Name]
		if key.IsNull() {
			continue
		}
		for _, id := range idx.tree.Search(key) {
			if id != selfID {
				return schema.ConstraintErrorf("duplicate value %s for column %s of table %s",
					key, col.Name, def.Name)
			}
		}
	}
	return nil
}

// indexInsert adds the row's non-null keys to every index of the table
func (e *Executor) indexInsert(def *schema.TableDef, row storage.Row, id uint64, undo *undoLog) error {
	for _, idx := range e.tableIndexes(def.Name) {
		col, _ := def.GetColumn(idx.def.Column)
		if col == nil {
			continue
		}
		key := row[col.Name]
		if key.IsNull() {
			continue
		}
		if err := idx.tree.Insert(key, id); err != nil {
			return schema.ConstraintErrorf("duplicate value %s for column %s of table %s",
				key, col.Name, def.Name)
		}
		tree := idx.tree
		undo.add(func() { tree.Delete(key, id) })
	}
	return nil
}

// indexDelete removes the row's non-null keys from every index
func (e *Executor) indexDelete(def *schema.TableDef, row storage.Row, id uint64, undo *undoLog) {
	for _, idx := range e.tableIndexes(def.Name) {
		col, _ := def.GetColumn(idx.def.Column)
		if col == nil {
			continue
		}
		key := row[col.Name]
		if key.IsNull() {
			continue
		}
		idx.tree.Delete(key, id)
		tree := idx.tree
		undo.add(func() { tree.Insert(key, id) })
	}
}

// matchingRows returns (id, row) pairs satisfying the WHERE predicate of a
// single-table statement, using an index for candidates when possible
func (e *Executor) matchingRows(def *schema.TableDef, where parser.Expression) ([]storage.RowEntry, error) {
	bindings := []binding{{name: def.Name, def: def}}

	var entries []storage.RowEntry
	if ids, ok := e.candidateRowIDs(def, def.Name, where); ok {
		for _, id := range ids {
			if row, found := e.store.Get(def.Name, id); found {
				entries = append(entries, storage.RowEntry{ID: id, Row: row})
			}
		}
	} else {
		it, err := e.store.Scan(def.Name)
		if err != nil {
			return nil, err
		}
		for {
			entry, ok := it.Next()
			if !ok {
				break
			}
			entries = append(entries, entry)
		}
	}

	if where == nil {
		return entries, nil
	}

	var matched []storage.RowEntry
	for _, entry := range entries {
		env := &evalEnv{src: &sourceRow{bindings: bindings, rows: []storage.Row{entry.Row}}}
		v, err := env.eval(where)
		if err != nil {
			return nil, err
		}
		if isTrue(v) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// executeUpdate handles UPDATE: SET expressions see the current row, then
// coercion, NOT NULL, and unique checks run before the write
func (e *Executor) executeUpdate(stmt *parser.UpdateStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	// Validate assignment targets up front
	for _, a := range stmt.Assignments {
		if col, _ := def.GetColumn(a.Column); col == nil {
			return nil, schema.Errorf("column %s does not exist in table %s", a.Column, def.Name)
		}
	}

	matched, err := e.matchingRows(def, stmt.Where)
	if err != nil {
		return nil, err
	}

	bindings := []binding{{name: def.Name, def: def}}
	undo := &undoLog{}
	var affected int64

	for _, entry := range matched {
		oldRow := entry.Row
		env := &evalEnv{src: &sourceRow{bindings: bindings, rows: []storage.Row{oldRow}}}

		newRow := oldRow.Clone()
		for _, a := range stmt.Assignments {
			col, _ := def.GetColumn(a.Column)
			v, err := env.eval(a.Value)
			if err != nil {
				undo.rollback()
				return nil, err
			}
			coerced, err := col.CoerceValue(v)
			if err != nil {
				undo.rollback()
				return nil, err
			}
			if col.NotNull && coerced.IsNull() {
				undo.rollback()
				return nil, schema.ConstraintErrorf("NOT NULL constraint failed: %s.%s", def.Name, col.Name)
			}
			newRow[col.Name] = coerced
		}

		if err := e.checkUnique(def, newRow, entry.ID); err != nil {
			undo.rollback()
			return nil, err
		}

		id := entry.ID
		prev := oldRow
		if err := e.store.Update(def.Name, id, newRow); err != nil {
			undo.rollback()
			return nil, err
		}
		undo.add(func() { e.store.Update(def.Name, id, prev) })

		if err := e.reindexRow(def, prev, newRow, id, undo); err != nil {
			undo.rollback()
			return nil, err
		}

		affected++
	}

	if err := e.flush(); err != nil {
		undo.rollback()
		return nil, err
	}

	return &Result{Affected: affected, Status: "UPDATE"}, nil
}

// reindexRow moves changed keys: the old key comes out, the new one goes in
func (e *Executor) reindexRow(def *schema.TableDef, oldRow, newRow storage.Row, id uint64, undo *undoLog) error {
	for _, idx := range e.tableIndexes(def.Name) {
		col, _ := def.GetColumn(idx.def.Column)
		if col == nil {
			continue
		}
		oldKey, newKey := oldRow[col.Name], newRow[col.Name]
		if types.Equal(oldKey, newKey) {
			continue
		}

		tree := idx.tree
		if !oldKey.IsNull() {
			tree.Delete(oldKey, id)
			undo.add(func() { tree.Insert(oldKey, id) })
		}
		if !newKey.IsNull() {
			if err := tree.Insert(newKey, id); err != nil {
				return schema.ConstraintErrorf("duplicate value %s for column %s of table %s",
					newKey, col.Name, def.Name)
			}
			undo.add(func() { tree.Delete(newKey, id) })
		}
	}
	return nil
}

// executeDelete handles DELETE: indexes first, then the row
func (e *Executor) executeDelete(stmt *parser.DeleteStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	matched, err := e.matchingRows(def, stmt.Where)
	if err != nil {
		return nil, err
	}

	undo := &undoLog{}
	var affected int64

	for _, entry := range matched {
		id, row := entry.ID, entry.Row

		e.indexDelete(def, row, id, undo)

		if err := e.store.Delete(def.Name, id); err != nil {
			undo.rollback()
			return nil, err
		}
		undo.add(func() { e.store.UndoDelete(def.Name, id, row) })

		affected++
	}

	if err := e.flush(); err != nil {
		undo.rollback()
		return nil, err
	}

	return &Result{Affected: affected, Status: "DELETE"}, nil
}
