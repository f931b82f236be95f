// pkg/storage/store.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// NotFoundError reports a missing row or table inside the store
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Msg
}

// IOError reports a persistence failure
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

const (
	catalogFile = "catalog"
	tablesDir   = "tables"
)

// Row maps column names to values. Every row holds exactly the declared
// columns of its table.
type Row map[string]types.Value

// Clone returns an independent copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// tableData is the in-memory image of one table document
type tableData struct {
	rows      map[uint64]Row
	nextRowID uint64
}

// Store is the durable row store. Tables live in memory and are written
// back as whole documents on Flush using write-then-rename.
type Store struct {
	dir     string
	tables  map[string]*tableData // lowercased table name -> data
	dirty   map[string]bool       // tables needing a write on next Flush
	removed map[string]bool       // tables needing file removal on next Flush
}

// Open opens the store rooted at dir, creating the directory tree when
// absent and loading every table document found under tables/.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, tablesDir), 0755); err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	s := &Store{
		dir:     dir,
		tables:  make(map[string]*tableData),
		dirty:   make(map[string]bool),
		removed: make(map[string]bool),
	}

	entries, err := os.ReadDir(filepath.Join(dir, tablesDir))
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Leftover temp files from an interrupted flush are not tables
		if strings.HasPrefix(name, ".") {
			continue
		}
		data, err := readTableDoc(filepath.Join(dir, tablesDir, name))
		if err != nil {
			return nil, err
		}
		s.tables[name] = data
	}

	return s, nil
}

// Dir returns the data directory path
func (s *Store) Dir() string {
	return s.dir
}

// HasTable reports whether a table document exists
func (s *Store) HasTable(name string) bool {
	_, ok := s.tables[lower(name)]
	return ok
}

// CreateTable registers an empty table document
func (s *Store) CreateTable(name string) error {
	key := lower(name)
	if _, ok := s.tables[key]; ok {
		return &IOError{Op: "create table", Err: fmt.Errorf("table %s already stored", name)}
	}
	s.tables[key] = &tableData{rows: make(map[uint64]Row)}
	s.dirty[key] = true
	delete(s.removed, key)
	return nil
}

// DropTable removes a table document; the file disappears on next Flush
func (s *Store) DropTable(name string) error {
	key := lower(name)
	if _, ok := s.tables[key]; !ok {
		return &NotFoundError{Msg: "table " + name}
	}
	delete(s.tables, key)
	delete(s.dirty, key)
	s.removed[key] = true
	return nil
}

// Truncate clears all rows of a table. Row ids stay monotonic: the next
// row id is not reset.
func (s *Store) Truncate(name string) (int64, error) {
	data, err := s.table(name)
	if err != nil {
		return 0, err
	}
	n := int64(len(data.rows))
	data.rows = make(map[uint64]Row)
	s.dirty[lower(name)] = true
	return n, nil
}

// RestoreTable swaps a table's full row image back in (statement rollback)
func (s *Store) RestoreTable(name string, rows map[uint64]Row) {
	if data, ok := s.tables[lower(name)]; ok {
		data.rows = rows
		s.dirty[lower(name)] = true
	}
}

// SnapshotRows returns the table's current row map (shared rows; callers
// treat rows as immutable and replace, never mutate, them)
func (s *Store) SnapshotRows(name string) map[uint64]Row {
	data, err := s.table(name)
	if err != nil {
		return nil
	}
	out := make(map[uint64]Row, len(data.rows))
	for id, row := range data.rows {
		out[id] = row
	}
	return out
}

// Insert assigns the next row id, stores the row, and returns the id
func (s *Store) Insert(name string, row Row) (uint64, error) {
	data, err := s.table(name)
	if err != nil {
		return 0, err
	}
	id := data.nextRowID
	data.nextRowID++
	data.rows[id] = row
	s.dirty[lower(name)] = true
	return id, nil
}

// Update overwrites the row with the given id
func (s *Store) Update(name string, id uint64, row Row) error {
	data, err := s.table(name)
	if err != nil {
		return err
	}
	if _, ok := data.rows[id]; !ok {
		return &NotFoundError{Msg: fmt.Sprintf("row %d in table %s", id, name)}
	}
	data.rows[id] = row
	s.dirty[lower(name)] = true
	return nil
}

// Delete removes the row with the given id
func (s *Store) Delete(name string, id uint64) error {
	data, err := s.table(name)
	if err != nil {
		return err
	}
	if _, ok := data.rows[id]; !ok {
		return &NotFoundError{Msg: fmt.Sprintf("row %d in table %s", id, name)}
	}
	delete(data.rows, id)
	s.dirty[lower(name)] = true
	return nil
}

// UndoInsert removes a freshly inserted row without touching nextRowID,
// keeping ids strictly monotonic across rolled-back statements
func (s *Store) UndoInsert(name string, id uint64) {
	if data, ok := s.tables[lower(name)]; ok {
		delete(data.rows, id)
		s.dirty[lower(name)] = true
	}
}

// UndoDelete restores a deleted row under its original id
func (s *Store) UndoDelete(name string, id uint64, row Row) {
	if data, ok := s.tables[lower(name)]; ok {
		data.rows[id] = row
		s.dirty[lower(name)] = true
	}
}

// Get returns the row with the given id
func (s *Store) Get(name string, id uint64) (Row, bool) {
	data, err := s.table(name)
	if err != nil {
		return nil, false
	}
	row, ok := data.rows[id]
	return row, ok
}

// Count returns the number of rows in a table
func (s *Store) Count(name string) (int64, error) {
	data, err := s.table(name)
	if err != nil {
		return 0, err
	}
	return int64(len(data.rows)), nil
}

// NextRowID exposes the id the next insert will receive
func (s *Store) NextRowID(name string) uint64 {
	data, err := s.table(name)
	if err != nil {
		return 0
	}
	return data.nextRowID
}

// RowEntry pairs a row with its id during scans
type RowEntry struct {
	ID  uint64
	Row Row
}

// RowIterator walks a table in ascending row-id order. Each Scan call
// produces an independent, restartable iterator.
type RowIterator struct {
	entries []RowEntry
	pos     int
}

// Next returns the next entry, or ok=false at the end
func (it *RowIterator) Next() (RowEntry, bool) {
	if it.pos >= len(it.entries) {
		return RowEntry{}, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

// Scan returns an iterator over the table in ascending row-id order
func (s *Store) Scan(name string) (*RowIterator, error) {
	data, err := s.table(name)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(data.rows))
	for id := range data.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]RowEntry, len(ids))
	for i, id := range ids {
		entries[i] = RowEntry{ID: id, Row: data.rows[id]}
	}
	return &RowIterator{entries: entries}, nil
}

func (s *Store) table(name string) (*tableData, error) {
	data, ok := s.tables[lower(name)]
	if !ok {
		return nil, &NotFoundError{Msg: "table " + name}
	}
	return data, nil
}
