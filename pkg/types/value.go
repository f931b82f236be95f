// pkg/types/value.go
package types

import (
	"fmt"
	"strconv"
	"time"
)

// ValueType represents the type of a database value
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeText
	TypeBool
	TypeDate
	TypeTimestamp
)

// String returns the SQL name of the type
func (vt ValueType) String() string {
	switch vt {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

// Layouts for DATE and TIMESTAMP literals
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// TypeError reports a value incompatible with an operation or declared type
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return "type error: " + e.Msg
}

func typeErrorf(format string, args ...interface{}) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// Value represents a database value
type Value struct {
	typ      ValueType
	intVal   int64
	floatVal float64
	textVal  string
	boolVal  bool
	timeVal  time.Time
}

func NewNull() Value {
	return Value{typ: TypeNull}
}

func NewInt(i int64) Value {
	return Value{typ: TypeInt, intVal: i}
}

func NewFloat(f float64) Value {
	return Value{typ: TypeFloat, floatVal: f}
}

func NewText(s string) Value {
	return Value{typ: TypeText, textVal: s}
}

func NewBool(b bool) Value {
	return Value{typ: TypeBool, boolVal: b}
}

func NewDate(t time.Time) Value {
	y, m, d := t.Date()
	return Value{typ: TypeDate, timeVal: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func NewTimestamp(t time.Time) Value {
	return Value{typ: TypeTimestamp, timeVal: t.Truncate(time.Second)}
}

// ParseDate parses a YYYY-MM-DD literal
func ParseDate(s string) (Value, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return NewNull(), typeErrorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return NewDate(t), nil
}

// ParseTimestamp parses a YYYY-MM-DD HH:MM:SS literal
func ParseTimestamp(s string) (Value, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return NewNull(), typeErrorf("invalid timestamp %q (want YYYY-MM-DD HH:MM:SS)", s)
	}
	return NewTimestamp(t), nil
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.typ == TypeNull }
func (v Value) Int() int64      { return v.intVal }
func (v Value) Float() float64  { return v.floatVal }
func (v Value) Text() string    { return v.textVal }
func (v Value) Bool() bool      { return v.boolVal }
func (v Value) Time() time.Time { return v.timeVal }

// String renders the value for display
func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case TypeText:
		return v.textVal
	case TypeBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case TypeDate:
		return v.timeVal.Format(DateLayout)
	case TypeTimestamp:
		return v.timeVal.Format(TimestampLayout)
	default:
		return "UNKNOWN"
	}
}

// isNumeric reports whether the value is an integer or float
func (v Value) isNumeric() bool {
	return v.typ == TypeInt || v.typ == TypeFloat
}

// numeric returns the value as a float64 for cross-kind numeric comparison
func (v Value) numeric() float64 {
	if v.typ == TypeInt {
		return float64(v.intVal)
	}
	return v.floatVal
}

// CoerceTo converts v to the declared column type where the dialect allows it:
// integer widens to float, text parses to date/timestamp. Null passes through.
// Anything else is a type error.
func CoerceTo(v Value, target ValueType) (Value, error) {
	if v.IsNull() || v.typ == target {
		return v, nil
	}
	switch target {
	case TypeFloat:
		if v.typ == TypeInt {
			return NewFloat(float64(v.intVal)), nil
		}
	case TypeDate:
		if v.typ == TypeText {
			return ParseDate(v.textVal)
		}
	case TypeTimestamp:
		if v.typ == TypeText {
			return ParseTimestamp(v.textVal)
		}
	}
	return NewNull(), typeErrorf("cannot store %s value as %s", v.typ, target)
}

// Compare orders two non-null values. Integer and float compare numerically;
// all other comparisons require matching kinds. Returns <0, 0, or >0.
func Compare(a, b Value) (int, error) {
	if a.IsNull() || b.IsNull() {
		return 0, typeErrorf("cannot compare NULL values")
	}

	if a.isNumeric() && b.isNumeric() {
		if a.typ == TypeInt && b.typ == TypeInt {
			return compareInt64(a.intVal, b.intVal), nil
		}
		return compareFloat64(a.numeric(), b.numeric()), nil
	}

	if a.typ != b.typ {
		return 0, typeErrorf("cannot compare %s with %s", a.typ, b.typ)
	}

	switch a.typ {
	case TypeText:
		switch {
		case a.textVal < b.textVal:
			return -1, nil
		case a.textVal > b.textVal:
			return 1, nil
		}
		return 0, nil
	case TypeBool:
		// false sorts before true
		switch {
		case !a.boolVal && b.boolVal:
			return -1, nil
		case a.boolVal && !b.boolVal:
			return 1, nil
		}
		return 0, nil
	case TypeDate, TypeTimestamp:
		switch {
		case a.timeVal.Before(b.timeVal):
			return -1, nil
		case a.timeVal.After(b.timeVal):
			return 1, nil
		}
		return 0, nil
	default:
		return 0, typeErrorf("cannot compare %s values", a.typ)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports value equality with NULL equal to NULL. This is the identity
// used by DISTINCT and GROUP BY keys, not by WHERE predicates.
func Equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	cmp, err := Compare(a, b)
	return err == nil && cmp == 0
}

// Key renders a canonical representation usable as a hash-map key for
// grouping and DISTINCT. Distinct kinds never collide, except that integers
// and floats representing the same number compare equal and share a key.
func (v Value) Key() string {
	switch v.typ {
	case TypeNull:
		return "\x00"
	case TypeInt:
		return "n:" + strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		// An integral float shares its key with the equal integer
		if v.floatVal == float64(int64(v.floatVal)) {
			return "n:" + strconv.FormatInt(int64(v.floatVal), 10)
		}
		return "n:" + strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case TypeText:
		return "t:" + v.textVal
	case TypeBool:
		if v.boolVal {
			return "b:1"
		}
		return "b:0"
	case TypeDate:
		return "d:" + v.timeVal.Format(DateLayout)
	case TypeTimestamp:
		return "s:" + v.timeVal.Format(TimestampLayout)
	default:
		return "?"
	}
}
