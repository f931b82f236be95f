package executor

import (
	"errors"
	"testing"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
)

func TestConstraints_UniqueViolation(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE u (id INTEGER PRIMARY KEY, e VARCHAR(20) UNIQUE)",
		"INSERT INTO u VALUES (1, 'a@x')",
	)

	_, err := e.Execute("INSERT INTO u VALUES (2, 'a@x')")
	var ce *schema.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("duplicate unique error = %v (%T)", err, err)
	}

	r := mustExec(t, e, "SELECT COUNT(*) FROM u")
	if r.Rows[0]["COUNT(*)"].Int() != 1 {
		t.Errorf("count = %v, want 1", r.Rows[0])
	}
}

func TestConstraints_PrimaryKeyViolation(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, 10)",
	)

	if _, err := e.Execute("INSERT INTO t VALUES (1, 99)"); err == nil {
		t.Fatal("duplicate primary key accepted")
	}
	// Primary key is implicitly NOT NULL
	if _, err := e.Execute("INSERT INTO t VALUES (NULL, 5)"); err == nil {
		t.Fatal("null primary key accepted")
	}
}

func TestConstraints_MultipleNullsInUniqueColumn(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, e TEXT UNIQUE)",
		"INSERT INTO t VALUES (1, NULL)",
		"INSERT INTO t VALUES (2, NULL)",
	)

	r := mustExec(t, e, "SELECT COUNT(*) FROM t WHERE e IS NULL")
	if r.Rows[0]["COUNT(*)"].Int() != 2 {
		t.Errorf("null count = %v, want 2 (nulls exempt from uniqueness)", r.Rows[0])
	}
}

func TestConstraints_NotNull(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")

	var ce *schema.ConstraintError
	if _, err := e.Execute("INSERT INTO t VALUES (1, NULL)"); !errors.As(err, &ce) {
		t.Errorf("explicit null error = %v", err)
	}
	// Omitting a NOT NULL column without default also fails
	if _, err := e.Execute("INSERT INTO t (id) VALUES (1)"); !errors.As(err, &ce) {
		t.Errorf("omitted not-null error = %v", err)
	}
}

func TestConstraints_NotNullWithDefault(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, state TEXT NOT NULL DEFAULT 'new')",
		"INSERT INTO t (id) VALUES (1)",
	)

	r := mustExec(t, e, "SELECT state FROM t")
	if r.Rows[0]["state"].Text() != "new" {
		t.Errorf("state = %v", r.Rows[0]["state"])
	}
}

func TestConstraints_VarcharBounds(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e, "CREATE TABLE t (id INTEGER PRIMARY KEY, s VARCHAR(5))")

	// Exactly n characters pass
	mustExec(t, e, "INSERT INTO t VALUES (1, 'abcde')")

	var ce *schema.ConstraintError
	if _, err := e.Execute("INSERT INTO t VALUES (2, 'abcdef')"); !errors.As(err, &ce) {
		t.Errorf("n+1 characters error = %v", err)
	}
}

func TestConstraints_UpdateUniqueRollback(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, e VARCHAR(20) UNIQUE)",
		"INSERT INTO t VALUES (1, 'a')",
		"INSERT INTO t VALUES (2, 'b')",
	)

	_, err := e.Execute("UPDATE t SET e = 'a' WHERE id = 2")
	var ce *schema.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("update unique error = %v", err)
	}

	r := mustExec(t, e, "SELECT e FROM t WHERE id = 2")
	if r.Rows[0]["e"].Text() != "b" {
		t.Errorf("e = %v, want b (statement rolled back)", r.Rows[0]["e"])
	}
}

func TestConstraints_UpdateSelfKeyAllowed(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, e TEXT UNIQUE)",
		"INSERT INTO t VALUES (1, 'a')",
	)

	// Re-assigning a row's own unique value is not a violation
	r := mustExec(t, e, "UPDATE t SET e = 'a' WHERE id = 1")
	if r.Affected != 1 {
		t.Errorf("affected = %d", r.Affected)
	}
}

func TestConstraints_MultiRowInsertAtomicity(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, 10)",
	)

	// Third row collides; the whole statement must roll back
	if _, err := e.Execute("INSERT INTO t VALUES (2, 20), (3, 30), (1, 99)"); err == nil {
		t.Fatal("expected constraint error")
	}

	r := mustExec(t, e, "SELECT COUNT(*) FROM t")
	if r.Rows[0]["COUNT(*)"].Int() != 1 {
		t.Errorf("count = %v, want 1 (partial insert leaked)", r.Rows[0])
	}

	// The index must agree with the rows after rollback
	r = mustExec(t, e, "SELECT id FROM t WHERE id = 2")
	if len(r.Rows) != 0 {
		t.Errorf("rolled back row visible through index: %v", r.Rows)
	}
}

func TestConstraints_DeleteKeepsIndexConsistent(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, 10), (2, 20)",
		"DELETE FROM t WHERE id = 1",
	)

	if r := mustExec(t, e, "SELECT id FROM t WHERE id = 1"); len(r.Rows) != 0 {
		t.Errorf("deleted row reachable through index: %v", r.Rows)
	}

	// The freed key is insertable again
	mustExec(t, e, "INSERT INTO t VALUES (1, 11)")
	r := mustExec(t, e, "SELECT v FROM t WHERE id = 1")
	if len(r.Rows) != 1 || r.Rows[0]["v"].Int() != 11 {
		t.Errorf("reinserted row = %v", r.Rows)
	}
}

func TestConstraints_CreateUniqueIndexOnDuplicateData(t *testing.T) {
	e := setupTestExecutor(t)
	execAll(t, e,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)",
		"INSERT INTO t VALUES (1, 'dup'), (2, 'dup')",
	)

	_, err := e.Execute("CREATE UNIQUE INDEX idx_v ON t (v)")
	var ce *schema.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("unique index over duplicates error = %v", err)
	}

	// Failed index must not remain in the catalog
	if def := e.Catalog().GetTable("t"); def.GetIndex("idx_v") != nil {
		t.Error("failed index left in catalog")
	}
}
