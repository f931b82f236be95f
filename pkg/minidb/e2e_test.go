package minidb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end coverage of the public API, including the persistence
// round trip: reopening a closed database must reproduce the same
// logical state and query results.

func TestE2E_PersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)

	_, err = db.ExecuteScript(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(10) NOT NULL, age INTEGER, born DATE, active BOOLEAN DEFAULT true);
		CREATE INDEX idx_age ON users(age);
		INSERT INTO users VALUES (1, 'Alice', 30, '1994-03-02', true);
		INSERT INTO users VALUES (2, 'Bob', 25, NULL, false);
		INSERT INTO users (id, name) VALUES (3, 'Carol');
	`)
	require.NoError(t, err)

	before, err := db.Execute("SELECT * FROM users ORDER BY id")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	after, err := db2.Execute("SELECT * FROM users ORDER BY id")
	require.NoError(t, err)

	require.Equal(t, len(before.Rows), len(after.Rows))
	for i := range before.Rows {
		assert.Equal(t, before.Rows[i], after.Rows[i], "row %d changed across reopen", i)
	}

	// Typed values survive: dates stay dates, booleans stay booleans
	assert.Equal(t, "1994-03-02", after.Rows[0]["born"])
	assert.Equal(t, true, after.Rows[0]["active"])
	assert.Nil(t, after.Rows[1]["born"])
	assert.Equal(t, true, after.Rows[2]["active"], "default applied and persisted")

	// Indexes are rebuilt on open and keep enforcing uniqueness
	_, err = db2.Execute("INSERT INTO users VALUES (1, 'Dup', 1, NULL, true)")
	assert.Error(t, err)

	r, err := db2.Execute("SELECT name FROM users WHERE age BETWEEN 24 AND 26")
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, "Bob", r.Rows[0]["name"])
}

func TestE2E_RowIDMonotonicAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	_, err = db.ExecuteScript(`
		CREATE TABLE t (id INTEGER PRIMARY KEY);
		INSERT INTO t VALUES (1), (2), (3);
		DELETE FROM t WHERE id = 3;
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	// New rows must not collide with ids of deleted rows
	_, err = db2.Execute("INSERT INTO t VALUES (4)")
	require.NoError(t, err)

	n, err := db2.Count("t")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestE2E_ScenarioSuite(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	// Create + insert + select
	_, err = db.ExecuteScript(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(10) NOT NULL, age INTEGER);
		INSERT INTO users VALUES (1, 'Alice', 30);
		INSERT INTO users VALUES (2, 'Bob', 25);
	`)
	require.NoError(t, err)

	r, err := db.Execute("SELECT name FROM users WHERE age > 26 ORDER BY age DESC")
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, "Alice", r.Rows[0]["name"])

	// Unique violation leaves one row
	_, err = db.ExecuteScript(`
		CREATE TABLE u (id INTEGER PRIMARY KEY, e VARCHAR(20) UNIQUE);
		INSERT INTO u VALUES (1, 'a@x');
	`)
	require.NoError(t, err)
	_, err = db.Execute("INSERT INTO u VALUES (2, 'a@x')")
	require.Error(t, err)
	r, err = db.Execute("SELECT COUNT(*) FROM u")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Rows[0]["COUNT(*)"])

	// LEFT JOIN with an unmatched right side
	_, err = db.ExecuteScript(`
		CREATE TABLE c (id INTEGER PRIMARY KEY, name VARCHAR(20));
		CREATE TABLE e (id INTEGER PRIMARY KEY, cid INTEGER, amount FLOAT);
		INSERT INTO c VALUES (1, 'Food'); INSERT INTO c VALUES (2, 'Rent');
		INSERT INTO e VALUES (10, 1, 5.0);
	`)
	require.NoError(t, err)
	r, err = db.Execute("SELECT c.name, COUNT(e.id) FROM c LEFT JOIN e ON c.id = e.cid GROUP BY c.name ORDER BY c.name")
	require.NoError(t, err)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, "Food", r.Rows[0]["c.name"])
	assert.Equal(t, int64(1), r.Rows[0]["COUNT(e.id)"])
	assert.Equal(t, "Rent", r.Rows[1]["c.name"])
	assert.Equal(t, int64(0), r.Rows[1]["COUNT(e.id)"])

	// Aggregate null handling
	_, err = db.ExecuteScript(`
		CREATE TABLE x (v INTEGER);
		INSERT INTO x VALUES (1); INSERT INTO x VALUES (NULL); INSERT INTO x VALUES (3);
	`)
	require.NoError(t, err)
	r, err = db.Execute("SELECT COUNT(*), COUNT(v), SUM(v), AVG(v) FROM x")
	require.NoError(t, err)
	row := r.Rows[0]
	assert.Equal(t, int64(3), row["COUNT(*)"])
	assert.Equal(t, int64(2), row["COUNT(v)"])
	assert.Equal(t, int64(4), row["SUM(v)"])
	assert.Equal(t, 2.0, row["AVG(v)"])

	// Range over an index
	_, err = db.ExecuteScript(`
		CREATE TABLE p (id INTEGER PRIMARY KEY, price FLOAT);
		CREATE INDEX idx_price ON p(price);
		INSERT INTO p VALUES (1, 10.0); INSERT INTO p VALUES (2, 25.0); INSERT INTO p VALUES (3, 50.0);
	`)
	require.NoError(t, err)
	r, err = db.Execute("SELECT id FROM p WHERE price BETWEEN 20 AND 40 ORDER BY id")
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, int64(2), r.Rows[0]["id"])

	// Update blocked by a unique constraint changes nothing
	_, err = db.ExecuteScript(`
		CREATE TABLE t (id INTEGER PRIMARY KEY, e VARCHAR(20) UNIQUE);
		INSERT INTO t VALUES (1, 'a'); INSERT INTO t VALUES (2, 'b');
	`)
	require.NoError(t, err)
	_, err = db.Execute("UPDATE t SET e = 'a' WHERE id = 2")
	require.Error(t, err)
	r, err = db.Execute("SELECT e FROM t WHERE id = 2")
	require.NoError(t, err)
	assert.Equal(t, "b", r.Rows[0]["e"])
}

func TestE2E_TruncatePreservesSchema(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecuteScript(`
		CREATE TABLE t (id INTEGER PRIMARY KEY, v VARCHAR(3));
		INSERT INTO t VALUES (1, 'a'), (2, 'b');
		TRUNCATE TABLE t;
	`)
	require.NoError(t, err)

	r, err := db.Execute("SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Rows[0]["COUNT(*)"])

	// Schema and constraints intact
	_, err = db.Execute("INSERT INTO t VALUES (1, 'toolong')")
	assert.Error(t, err)
	_, err = db.Execute("INSERT INTO t VALUES (1, 'ok')")
	assert.NoError(t, err)
}
