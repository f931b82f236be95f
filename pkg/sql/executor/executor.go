// pkg/sql/executor/executor.go
package executor

import (
	"fmt"

	"github.com/Abogeerick/minidb-complete-project/pkg/btree"
	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/parser"
	"github.com/Abogeerick/minidb-complete-project/pkg/storage"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// Result holds the result of executing a SQL statement
type Result struct {
	Columns  []string
	Rows     []storage.Row
	Affected int64
	Status   string
}

// Executor interprets parsed statements against the catalog, the row store,
// and the index set
type Executor struct {
	catalog *schema.Catalog
	store   *storage.Store
	degree  int
	indexes map[string][]*tableIndex // lowercased table name -> open indexes
}

// New creates an Executor. Indexes are rebuilt from table scans with Rebuild
// before the first statement runs.
func New(cat *schema.Catalog, store *storage.Store, degree int) *Executor {
	if degree < 2 {
		degree = btree.DefaultDegree
	}
	return &Executor{
		catalog: cat,
		store:   store,
		degree:  degree,
		indexes: make(map[string][]*tableIndex),
	}
}

// Catalog returns the schema catalog
func (e *Executor) Catalog() *schema.Catalog {
	return e.catalog
}

// Execute parses and executes one SQL statement
func (e *Executor) Execute(sql string) (*Result, error) {
	stmt, err := parser.New(sql).Parse()
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.executeCreateTable(s)
	case *parser.DropTableStmt:
		return e.executeDropTable(s)
	case *parser.CreateIndexStmt:
		return e.executeCreateIndex(s)
	case *parser.DropIndexStmt:
		return e.executeDropIndex(s)
	case *parser.InsertStmt:
		return e.executeInsert(s)
	case *parser.SelectStmt:
		return e.executeSelect(s)
	case *parser.UpdateStmt:
		return e.executeUpdate(s)
	case *parser.DeleteStmt:
		return e.executeDelete(s)
	case *parser.TruncateStmt:
		return e.executeTruncate(s)
	case *parser.ShowTablesStmt:
		return e.executeShowTables(s)
	case *parser.DescribeStmt:
		return e.executeDescribe(s)
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// executeCreateTable handles CREATE TABLE
func (e *Executor) executeCreateTable(stmt *parser.CreateTableStmt) (*Result, error) {
	if e.catalog.GetTable(stmt.TableName) != nil {
		return nil, schema.Errorf("table %s already exists", stmt.TableName)
	}

	def := &schema.TableDef{Name: stmt.TableName}
	for _, col := range stmt.Columns {
		sc := schema.ColumnDef{
			Name:       col.Name,
			Type:       col.Type,
			MaxLength:  col.MaxLength,
			PrimaryKey: col.PrimaryKey,
			NotNull:    col.NotNull,
			Unique:     col.Unique,
			HasDefault: col.HasDefault,
			Default:    col.Default,
		}
		if sc.PrimaryKey {
			sc.NotNull = true
		}
		def.Columns = append(def.Columns, sc)
	}

	// Implicit unique indexes back PRIMARY KEY and UNIQUE columns
	for _, col := range def.Columns {
		switch {
		case col.PrimaryKey:
			def.Indexes = append(def.Indexes, schema.IndexDef{
				Name:      fmt.Sprintf("%s_%s_pkey", stmt.TableName, col.Name),
				TableName: stmt.TableName,
				Column:    col.Name,
				Unique:    true,
			})
		case col.Unique:
			def.Indexes = append(def.Indexes, schema.IndexDef{
				Name:      fmt.Sprintf("%s_%s_key", stmt.TableName, col.Name),
				TableName: stmt.TableName,
				Column:    col.Name,
				Unique:    true,
			})
		}
	}

	if err := e.catalog.CreateTable(def); err != nil {
		return nil, err
	}
	if err := e.store.CreateTable(stmt.TableName); err != nil {
		e.catalog.DropTable(stmt.TableName)
		return nil, err
	}
	e.openIndexes(def)

	if err := e.flush(); err != nil {
		e.catalog.DropTable(stmt.TableName)
		e.store.DropTable(stmt.TableName)
		e.closeIndexes(stmt.TableName)
		return nil, err
	}

	return &Result{Status: "CREATE TABLE"}, nil
}

// executeDropTable handles DROP TABLE
func (e *Executor) executeDropTable(stmt *parser.DropTableStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	if err := e.catalog.DropTable(stmt.TableName); err != nil {
		return nil, err
	}
	if err := e.store.DropTable(stmt.TableName); err != nil {
		e.catalog.CreateTable(def)
		return nil, err
	}
	e.closeIndexes(stmt.TableName)

	if err := e.flush(); err != nil {
		return nil, err
	}

	return &Result{Status: "DROP TABLE"}, nil
}

// executeCreateIndex handles CREATE [UNIQUE] INDEX
func (e *Executor) executeCreateIndex(stmt *parser.CreateIndexStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}
	col, _ := def.GetColumn(stmt.Column)
	if col == nil {
		return nil, schema.Errorf("column %s does not exist in table %s", stmt.Column, stmt.TableName)
	}

	idxDef := schema.IndexDef{
		Name:      stmt.IndexName,
		TableName: def.Name,
		Column:    col.Name,
		Unique:    stmt.Unique,
	}
	if err := e.catalog.AddIndex(idxDef); err != nil {
		return nil, err
	}

	idx, err := e.buildIndex(def, idxDef)
	if err != nil {
		e.catalog.DropIndex(stmt.IndexName)
		return nil, err
	}
	key := lowerName(def.Name)
	e.indexes[key] = append(e.indexes[key], idx)

	if err := e.flush(); err != nil {
		e.catalog.DropIndex(stmt.IndexName)
		e.dropOpenIndex(def.Name, stmt.IndexName)
		return nil, err
	}

	return &Result{Status: "CREATE INDEX"}, nil
}

// executeDropIndex handles DROP INDEX
func (e *Executor) executeDropIndex(stmt *parser.DropIndexStmt) (*Result, error) {
	def, err := e.catalog.DropIndex(stmt.IndexName)
	if err != nil {
		return nil, err
	}
	e.dropOpenIndex(def.Name, stmt.IndexName)

	if err := e.flush(); err != nil {
		return nil, err
	}

	return &Result{Status: "DROP INDEX"}, nil
}

// executeTruncate handles TRUNCATE TABLE: rows and index contents go, the
// schema stays, and the row id counter keeps counting up
func (e *Executor) executeTruncate(stmt *parser.TruncateStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	oldRows := e.store.SnapshotRows(def.Name)
	oldIndexes := e.indexes[lowerName(def.Name)]

	n, err := e.store.Truncate(def.Name)
	if err != nil {
		return nil, err
	}

	fresh := make([]*tableIndex, len(oldIndexes))
	for i, idx := range oldIndexes {
		fresh[i] = &tableIndex{def: idx.def, tree: btree.New(e.degree, idx.def.Unique)}
	}
	e.indexes[lowerName(def.Name)] = fresh

	if err := e.flush(); err != nil {
		e.store.RestoreTable(def.Name, oldRows)
		e.indexes[lowerName(def.Name)] = oldIndexes
		return nil, err
	}

	return &Result{Affected: n, Status: "TRUNCATE"}, nil
}

// executeShowTables handles SHOW TABLES
func (e *Executor) executeShowTables(_ *parser.ShowTablesStmt) (*Result, error) {
	result := &Result{Columns: []string{"name"}, Status: "SHOW TABLES"}
	for _, name := range e.catalog.ListTables() {
		result.Rows = append(result.Rows, storage.Row{"name": types.NewText(name)})
	}
	return result, nil
}

// executeDescribe handles DESCRIBE
func (e *Executor) executeDescribe(stmt *parser.DescribeStmt) (*Result, error) {
	def := e.catalog.GetTable(stmt.TableName)
	if def == nil {
		return nil, schema.Errorf("table %s does not exist", stmt.TableName)
	}

	result := &Result{
		Columns: []string{"column", "type", "nullable", "key", "default"},
		Status:  "DESCRIBE",
	}
	for i := range def.Columns {
		col := &def.Columns[i]

		nullable := "YES"
		if col.NotNull {
			nullable = "NO"
		}
		key := ""
		switch {
		case col.PrimaryKey:
			key = "PRI"
		case col.Unique:
			key = "UNI"
		}
		dflt := types.NewNull()
		if col.HasDefault {
			dflt = col.Default
		}

		result.Rows = append(result.Rows, storage.Row{
			"column":   types.NewText(col.Name),
			"type":     types.NewText(col.TypeString()),
			"nullable": types.NewText(nullable),
			"key":      types.NewText(key),
			"default":  dflt,
		})
	}
	return result, nil
}

// flush persists catalog and dirty tables
func (e *Executor) flush() error {
	return e.store.Flush(e.catalog)
}
