// pkg/schema/schema.go
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// SchemaError reports an unknown table or column, a duplicate name, or an
// invalid declaration
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Msg
}

func Errorf(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Msg: fmt.Sprintf(format, args...)}
}

// ConstraintError reports a NOT NULL, UNIQUE/PRIMARY KEY, or VARCHAR
// length violation
type ConstraintError struct {
	Msg string
}

func (e *ConstraintError) Error() string {
	return "constraint violation: " + e.Msg
}

func ConstraintErrorf(format string, args ...interface{}) *ConstraintError {
	return &ConstraintError{Msg: fmt.Sprintf(format, args...)}
}

// ColumnDef defines a table column
type ColumnDef struct {
	Name       string
	Type       types.ValueType
	MaxLength  int // VARCHAR(n) bound, 0 otherwise
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	HasDefault bool
	Default    types.Value
}

// TypeString renders the declared type, including the VARCHAR bound
func (c *ColumnDef) TypeString() string {
	if c.Type == types.TypeText && c.MaxLength > 0 {
		return fmt.Sprintf("VARCHAR(%d)", c.MaxLength)
	}
	return c.Type.String()
}

// IndexDef defines a single-column index
type IndexDef struct {
	Name      string
	TableName string
	Column    string
	Unique    bool
}

// TableDef defines a table schema
type TableDef struct {
	Name    string
	Columns []ColumnDef
	Indexes []IndexDef
}

// GetColumn returns the column definition and position by name, matching
// case-insensitively. Returns (nil, -1) if not found.
func (t *TableDef) GetColumn(name string) (*ColumnDef, int) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], i
		}
	}
	return nil, -1
}

// PrimaryKeyColumn returns the primary key column definition and position,
// or (nil, -1) if the table has no primary key
func (t *TableDef) PrimaryKeyColumn() (*ColumnDef, int) {
	for i := range t.Columns {
		if t.Columns[i].PrimaryKey {
			return &t.Columns[i], i
		}
	}
	return nil, -1
}

// ColumnNames returns the declared column names in order
func (t *TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// GetIndex returns the index definition by name, case-insensitively
func (t *TableDef) GetIndex(name string) *IndexDef {
	for i := range t.Indexes {
		if strings.EqualFold(t.Indexes[i].Name, name) {
			return &t.Indexes[i]
		}
	}
	return nil
}

// IndexOn returns the first index covering the given column, or nil
func (t *TableDef) IndexOn(column string) *IndexDef {
	for i := range t.Indexes {
		if strings.EqualFold(t.Indexes[i].Column, column) {
			return &t.Indexes[i]
		}
	}
	return nil
}

// CoerceValue validates and coerces a value for this column: type coercion
// per the dialect rules, then the VARCHAR length bound. NOT NULL is checked
// separately so INSERT can apply defaults first.
func (c *ColumnDef) CoerceValue(v types.Value) (types.Value, error) {
	coerced, err := types.CoerceTo(v, c.Type)
	if err != nil {
		return types.NewNull(), err
	}
	if c.MaxLength > 0 && coerced.Type() == types.TypeText && len(coerced.Text()) > c.MaxLength {
		return types.NewNull(), ConstraintErrorf("value too long for column %s (max %d characters)", c.Name, c.MaxLength)
	}
	return coerced, nil
}

// Validate checks the declaration itself: nonempty unique column names and
// at most one primary key
func (t *TableDef) Validate() error {
	if t.Name == "" {
		return Errorf("table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return Errorf("table %s must have at least one column", t.Name)
	}

	seen := make(map[string]bool)
	pkCount := 0
	for i := range t.Columns {
		col := &t.Columns[i]
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return Errorf("duplicate column %s in table %s", col.Name, t.Name)
		}
		seen[lower] = true
		if col.PrimaryKey {
			pkCount++
		}
		if col.HasDefault && !col.Default.IsNull() {
			if _, err := col.CoerceValue(col.Default); err != nil {
				return Errorf("invalid default for column %s: %v", col.Name, err)
			}
		}
	}
	if pkCount > 1 {
		return Errorf("table %s has more than one primary key", t.Name)
	}
	return nil
}

// Catalog is the registry of table definitions. Lookup is case-insensitive;
// declared case is preserved for output.
type Catalog struct {
	tables map[string]*TableDef // lowercased name -> def
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*TableDef)}
}

// GetTable returns the table definition, or nil when absent
func (c *Catalog) GetTable(name string) *TableDef {
	return c.tables[strings.ToLower(name)]
}

// CreateTable registers a validated table definition
func (c *Catalog) CreateTable(def *TableDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	lower := strings.ToLower(def.Name)
	if _, ok := c.tables[lower]; ok {
		return Errorf("table %s already exists", def.Name)
	}
	c.tables[lower] = def
	return nil
}

// DropTable removes a table definition
func (c *Catalog) DropTable(name string) error {
	lower := strings.ToLower(name)
	if _, ok := c.tables[lower]; !ok {
		return Errorf("table %s does not exist", name)
	}
	delete(c.tables, lower)
	return nil
}

// ListTables returns the declared table names in sorted order
func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.tables))
	for _, def := range c.tables {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// FindIndex locates an index by name across all tables
func (c *Catalog) FindIndex(name string) (*TableDef, *IndexDef) {
	for _, def := range c.tables {
		if idx := def.GetIndex(name); idx != nil {
			return def, idx
		}
	}
	return nil, nil
}

// AddIndex registers an index on a table
func (c *Catalog) AddIndex(idx IndexDef) error {
	def := c.GetTable(idx.TableName)
	if def == nil {
		return Errorf("table %s does not exist", idx.TableName)
	}
	if col, _ := def.GetColumn(idx.Column); col == nil {
		return Errorf("column %s does not exist in table %s", idx.Column, idx.TableName)
	}
	if t, _ := c.FindIndex(idx.Name); t != nil {
		return Errorf("index %s already exists", idx.Name)
	}
	def.Indexes = append(def.Indexes, idx)
	return nil
}

// DropIndex removes an index by name
func (c *Catalog) DropIndex(name string) (*TableDef, error) {
	def, idx := c.FindIndex(name)
	if idx == nil {
		return nil, Errorf("index %s does not exist", name)
	}
	for i := range def.Indexes {
		if strings.EqualFold(def.Indexes[i].Name, name) {
			def.Indexes = append(def.Indexes[:i], def.Indexes[i+1:]...)
			break
		}
	}
	return def, nil
}
