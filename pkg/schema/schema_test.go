package schema

import (
	"errors"
	"testing"

	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

func usersDef() *TableDef {
	return &TableDef{
		Name: "Users",
		Columns: []ColumnDef{
			{Name: "id", Type: types.TypeInt, PrimaryKey: true},
			{Name: "name", Type: types.TypeText, MaxLength: 10, NotNull: true},
			{Name: "age", Type: types.TypeInt},
		},
	}
}

func TestCatalog_CreateGetDrop(t *testing.T) {
	cat := NewCatalog()

	if err := cat.CreateTable(usersDef()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	// Case-insensitive lookup, preserved case in listing
	if def := cat.GetTable("USERS"); def == nil || def.Name != "Users" {
		t.Errorf("GetTable(USERS) = %v", def)
	}

	if err := cat.CreateTable(usersDef()); err == nil {
		t.Error("duplicate table should fail")
	}

	names := cat.ListTables()
	if len(names) != 1 || names[0] != "Users" {
		t.Errorf("ListTables = %v", names)
	}

	if err := cat.DropTable("users"); err != nil {
		t.Errorf("DropTable: %v", err)
	}
	if err := cat.DropTable("users"); err == nil {
		t.Error("dropping missing table should fail")
	}
}

func TestTableDef_Validate(t *testing.T) {
	bad := &TableDef{
		Name: "t",
		Columns: []ColumnDef{
			{Name: "a", Type: types.TypeInt},
			{Name: "A", Type: types.TypeText},
		},
	}
	if err := bad.Validate(); err == nil {
		t.Error("duplicate column names should fail")
	}

	twoPK := &TableDef{
		Name: "t",
		Columns: []ColumnDef{
			{Name: "a", Type: types.TypeInt, PrimaryKey: true},
			{Name: "b", Type: types.TypeInt, PrimaryKey: true},
		},
	}
	if err := twoPK.Validate(); err == nil {
		t.Error("two primary keys should fail")
	}

	badDefault := &TableDef{
		Name: "t",
		Columns: []ColumnDef{
			{Name: "a", Type: types.TypeInt, HasDefault: true, Default: types.NewText("x")},
		},
	}
	if err := badDefault.Validate(); err == nil {
		t.Error("text default on integer column should fail")
	}

	var se *SchemaError
	if err := (&TableDef{Name: "t"}).Validate(); !errors.As(err, &se) {
		t.Errorf("error type = %T", se)
	}
}

func TestTableDef_Lookups(t *testing.T) {
	def := usersDef()

	col, pos := def.GetColumn("AGE")
	if col == nil || col.Name != "age" || pos != 2 {
		t.Errorf("GetColumn(AGE) = %v, %d", col, pos)
	}
	if col, pos := def.GetColumn("missing"); col != nil || pos != -1 {
		t.Errorf("GetColumn(missing) = %v, %d", col, pos)
	}

	pk, pos := def.PrimaryKeyColumn()
	if pk == nil || pk.Name != "id" || pos != 0 {
		t.Errorf("PrimaryKeyColumn = %v, %d", pk, pos)
	}
}

func TestColumnDef_CoerceValue(t *testing.T) {
	name := ColumnDef{Name: "name", Type: types.TypeText, MaxLength: 5}

	if _, err := name.CoerceValue(types.NewText("abcde")); err != nil {
		t.Errorf("exactly n characters should pass: %v", err)
	}
	_, err := name.CoerceValue(types.NewText("abcdef"))
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Errorf("n+1 characters: error = %v", err)
	}

	f := ColumnDef{Name: "score", Type: types.TypeFloat}
	v, err := f.CoerceValue(types.NewInt(3))
	if err != nil || v.Type() != types.TypeFloat {
		t.Errorf("int to float column = %v, %v", v, err)
	}

	d := ColumnDef{Name: "born", Type: types.TypeDate}
	v, err = d.CoerceValue(types.NewText("2020-02-29"))
	if err != nil || v.Type() != types.TypeDate {
		t.Errorf("text to date column = %v, %v", v, err)
	}

	i := ColumnDef{Name: "n", Type: types.TypeInt}
	if _, err := i.CoerceValue(types.NewText("5")); err == nil {
		t.Error("text to integer column should fail")
	}
}

func TestCatalog_Indexes(t *testing.T) {
	cat := NewCatalog()
	if err := cat.CreateTable(usersDef()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	idx := IndexDef{Name: "idx_age", TableName: "users", Column: "age"}
	if err := cat.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	if err := cat.AddIndex(idx); err == nil {
		t.Error("duplicate index name should fail")
	}
	if err := cat.AddIndex(IndexDef{Name: "i2", TableName: "users", Column: "nope"}); err == nil {
		t.Error("index on missing column should fail")
	}
	if err := cat.AddIndex(IndexDef{Name: "i3", TableName: "nope", Column: "age"}); err == nil {
		t.Error("index on missing table should fail")
	}

	def, found := cat.FindIndex("IDX_AGE")
	if found == nil || def.Name != "Users" {
		t.Errorf("FindIndex = %v, %v", def, found)
	}
	if got := cat.GetTable("users").IndexOn("AGE"); got == nil {
		t.Error("IndexOn(AGE) = nil")
	}

	if _, err := cat.DropIndex("idx_age"); err != nil {
		t.Errorf("DropIndex: %v", err)
	}
	if _, err := cat.DropIndex("idx_age"); err == nil {
		t.Error("dropping missing index should fail")
	}
}
