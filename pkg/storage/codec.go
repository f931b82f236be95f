// pkg/storage/codec.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/schema"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

func lower(s string) string {
	return strings.ToLower(s)
}

// valueWire is the self-describing on-disk form of a value. The tag keeps
// integers, floats, booleans, dates and timestamps distinguishable after a
// round trip through JSON.
type valueWire struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

func encodeValue(v types.Value) (valueWire, error) {
	switch v.Type() {
	case types.TypeNull:
		return valueWire{T: "null"}, nil
	case types.TypeInt:
		return valueWire{T: "integer", V: json.RawMessage(strconv.FormatInt(v.Int(), 10))}, nil
	case types.TypeFloat:
		raw, err := json.Marshal(v.Float())
		if err != nil {
			return valueWire{}, err
		}
		return valueWire{T: "float", V: raw}, nil
	case types.TypeText:
		raw, err := json.Marshal(v.Text())
		if err != nil {
			return valueWire{}, err
		}
		return valueWire{T: "text", V: raw}, nil
	case types.TypeBool:
		raw, err := json.Marshal(v.Bool())
		if err != nil {
			return valueWire{}, err
		}
		return valueWire{T: "boolean", V: raw}, nil
	case types.TypeDate:
		raw, err := json.Marshal(v.String())
		if err != nil {
			return valueWire{}, err
		}
		return valueWire{T: "date", V: raw}, nil
	case types.TypeTimestamp:
		raw, err := json.Marshal(v.String())
		if err != nil {
			return valueWire{}, err
		}
		return valueWire{T: "timestamp", V: raw}, nil
	default:
		return valueWire{}, fmt.Errorf("unsupported value type %v", v.Type())
	}
}

func decodeValue(w valueWire) (types.Value, error) {
	switch w.T {
	case "null":
		return types.NewNull(), nil
	case "integer":
		var n int64
		if err := json.Unmarshal(w.V, &n); err != nil {
			return types.NewNull(), err
		}
		return types.NewInt(n), nil
	case "float":
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return types.NewNull(), err
		}
		return types.NewFloat(f), nil
	case "text":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return types.NewNull(), err
		}
		return types.NewText(s), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return types.NewNull(), err
		}
		return types.NewBool(b), nil
	case "date":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return types.NewNull(), err
		}
		return types.ParseDate(s)
	case "timestamp":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return types.NewNull(), err
		}
		return types.ParseTimestamp(s)
	default:
		return types.NewNull(), fmt.Errorf("unknown value tag %q", w.T)
	}
}

// tableDoc is the on-disk form of one table
type tableDoc struct {
	Rows      map[string]map[string]valueWire `json:"rows"`
	NextRowID uint64                          `json:"next_row_id"`
}

// columnWire / indexWire / tableWire / catalogDoc form the catalog document
type columnWire struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	MaxLength  int        `json:"max_length,omitempty"`
	PrimaryKey bool       `json:"primary_key,omitempty"`
	NotNull    bool       `json:"not_null,omitempty"`
	Unique     bool       `json:"unique,omitempty"`
	Default    *valueWire `json:"default,omitempty"`
}

type indexWire struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Unique bool   `json:"unique,omitempty"`
}

type tableWire struct {
	Name    string       `json:"name"`
	Columns []columnWire `json:"columns"`
	Indexes []indexWire  `json:"indexes,omitempty"`
}

type catalogDoc struct {
	Tables []tableWire `json:"tables"`
}

var typeNames = map[string]types.ValueType{
	"integer":   types.TypeInt,
	"float":     types.TypeFloat,
	"text":      types.TypeText,
	"boolean":   types.TypeBool,
	"date":      types.TypeDate,
	"timestamp": types.TypeTimestamp,
}

func typeName(vt types.ValueType) string {
	for name, t := range typeNames {
		if t == vt {
			return name
		}
	}
	return "text"
}

// LoadCatalog reads the catalog document, returning an empty catalog when
// the file does not exist yet
func (s *Store) LoadCatalog() (*schema.Catalog, error) {
	cat := schema.NewCatalog()

	data, err := os.ReadFile(filepath.Join(s.dir, catalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cat, nil
		}
		return nil, &IOError{Op: "load catalog", Err: err}
	}

	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &IOError{Op: "load catalog", Err: err}
	}

	for _, tw := range doc.Tables {
		def := &schema.TableDef{Name: tw.Name}
		for _, cw := range tw.Columns {
			vt, ok := typeNames[cw.Type]
			if !ok {
				return nil, &IOError{Op: "load catalog", Err: fmt.Errorf("unknown column type %q", cw.Type)}
			}
			col := schema.ColumnDef{
				Name:       cw.Name,
				Type:       vt,
				MaxLength:  cw.MaxLength,
				PrimaryKey: cw.PrimaryKey,
				NotNull:    cw.NotNull,
				Unique:     cw.Unique,
			}
			if cw.Default != nil {
				v, err := decodeValue(*cw.Default)
				if err != nil {
					return nil, &IOError{Op: "load catalog", Err: err}
				}
				col.HasDefault = true
				col.Default = v
			}
			def.Columns = append(def.Columns, col)
		}
		for _, iw := range tw.Indexes {
			def.Indexes = append(def.Indexes, schema.IndexDef{
				Name:      iw.Name,
				TableName: tw.Name,
				Column:    iw.Column,
				Unique:    iw.Unique,
			})
		}
		if err := cat.CreateTable(def); err != nil {
			return nil, &IOError{Op: "load catalog", Err: err}
		}
	}

	return cat, nil
}

// Flush persists every dirty table document and then the catalog, each
// written to a temp file and renamed into place, so a crash leaves either
// the previous or the new snapshot. Tables go first and removals last: the
// catalog on disk only ever references table files that exist.
func (s *Store) Flush(cat *schema.Catalog) error {
	for key := range s.dirty {
		data, ok := s.tables[key]
		if !ok {
			continue
		}
		raw, err := encodeTableDoc(data)
		if err != nil {
			return &IOError{Op: "flush table " + key, Err: err}
		}
		if err := writeAtomic(filepath.Join(s.dir, tablesDir, key), raw); err != nil {
			return err
		}
		delete(s.dirty, key)
	}

	doc := catalogDoc{}
	for _, name := range cat.ListTables() {
		def := cat.GetTable(name)
		tw := tableWire{Name: def.Name}
		for _, col := range def.Columns {
			cw := columnWire{
				Name:       col.Name,
				Type:       typeName(col.Type),
				MaxLength:  col.MaxLength,
				PrimaryKey: col.PrimaryKey,
				NotNull:    col.NotNull,
				Unique:     col.Unique,
			}
			if col.HasDefault {
				w, err := encodeValue(col.Default)
				if err != nil {
					return &IOError{Op: "flush catalog", Err: err}
				}
				cw.Default = &w
			}
			tw.Columns = append(tw.Columns, cw)
		}
		for _, idx := range def.Indexes {
			tw.Indexes = append(tw.Indexes, indexWire{Name: idx.Name, Column: idx.Column, Unique: idx.Unique})
		}
		doc.Tables = append(doc.Tables, tw)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &IOError{Op: "flush catalog", Err: err}
	}
	if err := writeAtomic(filepath.Join(s.dir, catalogFile), raw); err != nil {
		return err
	}

	for key := range s.removed {
		path := filepath.Join(s.dir, tablesDir, key)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &IOError{Op: "remove table " + key, Err: err}
		}
		delete(s.removed, key)
	}

	return nil
}

func encodeTableDoc(data *tableData) ([]byte, error) {
	doc := tableDoc{
		Rows:      make(map[string]map[string]valueWire, len(data.rows)),
		NextRowID: data.nextRowID,
	}
	for id, row := range data.rows {
		wireRow := make(map[string]valueWire, len(row))
		for col, v := range row {
			w, err := encodeValue(v)
			if err != nil {
				return nil, err
			}
			wireRow[col] = w
		}
		doc.Rows[strconv.FormatUint(id, 10)] = wireRow
	}
	return json.MarshalIndent(doc, "", "  ")
}

func readTableDoc(path string) (*tableData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read table", Err: err}
	}

	var doc tableDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &IOError{Op: "read table", Err: err}
	}

	data := &tableData{
		rows:      make(map[uint64]Row, len(doc.Rows)),
		nextRowID: doc.NextRowID,
	}
	for idText, wireRow := range doc.Rows {
		id, err := strconv.ParseUint(idText, 10, 64)
		if err != nil {
			return nil, &IOError{Op: "read table", Err: fmt.Errorf("bad row id %q", idText)}
		}
		row := make(Row, len(wireRow))
		for col, w := range wireRow {
			v, err := decodeValue(w)
			if err != nil {
				return nil, &IOError{Op: "read table", Err: err}
			}
			row[col] = v
		}
		data.rows[id] = row
	}

	return data, nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it,
// and renames it over the destination
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &IOError{Op: "write " + path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "write " + path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "sync " + path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "close " + path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "rename " + path, Err: err}
	}
	return nil
}
