// pkg/minidb/db.go
package minidb

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/sql/executor"
	"github.com/Abogeerick/minidb-complete-project/pkg/storage"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

var (
	// ErrDatabaseClosed is returned when attempting operations on a closed database
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrDatabaseLocked is returned when the data directory is held by another handle
	ErrDatabaseLocked = errors.New("database is locked by another process")
)

// Database is an open database handle rooted at a data directory. It owns
// the catalog, the row store, and the indexes exclusively; one handle per
// directory, one user per handle.
type Database struct {
	mu sync.Mutex

	dir      string
	lockFile *os.File
	store    *storage.Store
	catalog  *schema.Catalog
	executor *executor.Executor
	closed   bool
}

// Options configures database opening behavior
type Options struct {
	// BTreeDegree is the minimum degree of index trees (default 3)
	BTreeDegree int
}

// Open opens the database in dataDir, creating the directory when absent
// and loading the catalog when present. The caller must Close the handle.
func Open(dataDir string) (*Database, error) {
	return OpenWithOptions(dataDir, Options{})
}

// OpenWithOptions opens a database with explicit options
func OpenWithOptions(dataDir string, opts Options) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, &storage.IOError{Op: "open", Err: err}
	}

	// A second handle on the same directory fails fast
	lf, err := os.OpenFile(filepath.Join(dataDir, ".lock"), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &storage.IOError{Op: "open", Err: err}
	}
	if err := lockFile(lf); err != nil {
		lf.Close()
		return nil, err
	}

	store, err := storage.Open(dataDir)
	if err != nil {
		unlockFile(lf)
		lf.Close()
		return nil, err
	}
	catalog, err := store.LoadCatalog()
	if err != nil {
		unlockFile(lf)
		lf.Close()
		return nil, err
	}

	exec := executor.New(catalog, store, opts.BTreeDegree)
	if err := exec.Rebuild(); err != nil {
		unlockFile(lf)
		lf.Close()
		return nil, err
	}

	return &Database{
		dir:      dataDir,
		lockFile: lf,
		store:    store,
		catalog:  catalog,
		executor: exec,
	}, nil
}

// Dir returns the data directory of the database
func (db *Database) Dir() string {
	return db.dir
}

// Result is the outcome of one statement. Rows carry one name-to-value map
// per row with values converted to Go native types; Columns preserves the
// projection order.
type Result struct {
	Columns  []string
	Rows     []map[string]interface{}
	Affected int64
	Status   string
}

// Execute runs one SQL statement and returns its result
func (db *Database) Execute(sql string) (*Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}

	result, err := db.executor.Execute(sql)
	if err != nil {
		return nil, err
	}
	return convertResult(result), nil
}

// ExecuteScript runs a sequence of semicolon-separated statements in order,
// stopping at the first error. Results come back one per statement run.
func (db *Database) ExecuteScript(script string) ([]*Result, error) {
	var results []*Result
	for _, stmt := range SplitStatements(script) {
		result, err := db.Execute(stmt)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Tables returns the table names in sorted order
func (db *Database) Tables() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	return db.catalog.ListTables()
}

// Count returns the number of rows in a table
func (db *Database) Count(table string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0, ErrDatabaseClosed
	}
	if db.catalog.GetTable(table) == nil {
		return 0, schema.Errorf("table %s does not exist", table)
	}
	return db.store.Count(table)
}

// Close flushes pending state and releases the directory lock. It is an
// error to call Close more than once.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true

	flushErr := db.store.Flush(db.catalog)

	if db.lockFile != nil {
		unlockFile(db.lockFile)
		db.lockFile.Close()
		db.lockFile = nil
	}

	return flushErr
}

// convertResult converts an executor result to the public shape
func convertResult(r *executor.Result) *Result {
	out := &Result{
		Columns:  r.Columns,
		Affected: r.Affected,
		Status:   r.Status,
	}
	for _, row := range r.Rows {
		converted := make(map[string]interface{}, len(row))
		for name, v := range row {
			converted[name] = valueToGo(v)
		}
		out.Rows = append(out.Rows, converted)
	}
	return out
}

// valueToGo converts a types.Value to a Go native type
func valueToGo(v types.Value) interface{} {
	switch v.Type() {
	case types.TypeNull:
		return nil
	case types.TypeInt:
		return v.Int()
	case types.TypeFloat:
		return v.Float()
	case types.TypeText:
		return v.Text()
	case types.TypeBool:
		return v.Bool()
	case types.TypeDate, types.TypeTimestamp:
		return v.String()
	default:
		return nil
	}
}
