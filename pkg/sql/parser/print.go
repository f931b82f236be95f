// pkg/sql/parser/print.go
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// Print renders a statement back to SQL text. Printing a parsed statement
// and reparsing the output yields an equivalent AST, except that operands of
// IS NULL, IN and BETWEEN are not parenthesized: those predicates applied to
// an AND, OR or NOT expression reparse with a different grouping.
func Print(stmt Statement) string {
	switch s := stmt.(type) {
	case *SelectStmt:
		return printSelect(s)
	case *InsertStmt:
		return printInsert(s)
	case *UpdateStmt:
		return printUpdate(s)
	case *DeleteStmt:
		return printDelete(s)
	case *CreateTableStmt:
		return printCreateTable(s)
	case *DropTableStmt:
		return "DROP TABLE " + s.TableName
	case *CreateIndexStmt:
		return printCreateIndex(s)
	case *DropIndexStmt:
		return "DROP INDEX " + s.IndexName
	case *TruncateStmt:
		return "TRUNCATE TABLE " + s.TableName
	case *ShowTablesStmt:
		return "SHOW TABLES"
	case *DescribeStmt:
		return "DESCRIBE " + s.TableName
	default:
		return ""
	}
}

// PrintExpr renders an expression back to SQL text. The executor uses this
// as the display name of unaliased projections.
func PrintExpr(expr Expression) string {
	switch e := expr.(type) {
	case *Literal:
		return printLiteral(e.Value)
	case *ColumnRef:
		if e.Table != "" {
			return e.Table + "." + e.Name
		}
		return e.Name
	case *BinaryExpr:
		// Operands that bind looser than the operator are parenthesized; a
		// right operand at the same level is too, as operators group left
		left, right := PrintExpr(e.Left), PrintExpr(e.Right)
		if l, ok := e.Left.(*BinaryExpr); ok && precedences[l.Op] < precedences[e.Op] {
			left = "(" + left + ")"
		}
		if r, ok := e.Right.(*BinaryExpr); ok && precedences[r.Op] <= precedences[e.Op] {
			right = "(" + right + ")"
		}
		return left + " " + e.Op.String() + " " + right
	case *UnaryExpr:
		right := PrintExpr(e.Right)
		if b, ok := e.Right.(*BinaryExpr); ok && (e.Op != lexer.NOT || precedences[b.Op] < NOT_PREC) {
			right = "(" + right + ")"
		}
		if e.Op == lexer.NOT {
			return "NOT " + right
		}
		return e.Op.String() + right
	case *AggregateExpr:
		if e.Star {
			return e.Func.String() + "(*)"
		}
		return e.Func.String() + "(" + PrintExpr(e.Arg) + ")"
	case *IsNullExpr:
		if e.Not {
			return PrintExpr(e.Expr) + " IS NOT NULL"
		}
		return PrintExpr(e.Expr) + " IS NULL"
	case *InExpr:
		var parts []string
		for _, item := range e.List {
			parts = append(parts, PrintExpr(item))
		}
		op := " IN ("
		if e.Not {
			op = " NOT IN ("
		}
		return PrintExpr(e.Expr) + op + strings.Join(parts, ", ") + ")"
	case *BetweenExpr:
		op := " BETWEEN "
		if e.Not {
			op = " NOT BETWEEN "
		}
		return PrintExpr(e.Expr) + op + PrintExpr(e.Low) + " AND " + PrintExpr(e.High)
	default:
		return ""
	}
}

func printLiteral(v types.Value) string {
	switch v.Type() {
	case types.TypeText:
		return "'" + strings.ReplaceAll(v.Text(), "'", "''") + "'"
	case types.TypeDate, types.TypeTimestamp:
		return "'" + v.String() + "'"
	default:
		return v.String()
	}
}

func printSelect(s *SelectStmt) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}

	for i, col := range s.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		if col.Star {
			sb.WriteString("*")
			continue
		}
		sb.WriteString(PrintExpr(col.Expr))
		if col.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(col.Alias)
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(printTableRef(s.From))

	for _, join := range s.Joins {
		sb.WriteString(" ")
		sb.WriteString(join.Type.String())
		sb.WriteString(" ")
		sb.WriteString(printTableRef(join.Table))
		sb.WriteString(" ON ")
		sb.WriteString(PrintExpr(join.On))
	}

	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(PrintExpr(s.Where))
	}

	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, expr := range s.GroupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(PrintExpr(expr))
		}
	}

	if s.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(PrintExpr(s.Having))
	}

	if len(s.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, item := range s.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(PrintExpr(item.Expr))
			if item.Desc {
				sb.WriteString(" DESC")
			}
		}
	}

	if s.Limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(s.Limit, 10))
	}
	if s.Offset >= 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.FormatInt(s.Offset, 10))
	}

	return sb.String()
}

func printTableRef(t TableRef) string {
	if t.Alias != "" {
		return t.Name + " AS " + t.Alias
	}
	return t.Name
}

func printInsert(s *InsertStmt) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.TableName)

	if len(s.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(s.Columns, ", "))
		sb.WriteString(")")
	}

	sb.WriteString(" VALUES ")
	for i, row := range s.Rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, expr := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(PrintExpr(expr))
		}
		sb.WriteString(")")
	}

	return sb.String()
}

func printUpdate(s *UpdateStmt) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(s.TableName)
	sb.WriteString(" SET ")

	for i, a := range s.Assignments {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Column)
		sb.WriteString(" = ")
		sb.WriteString(PrintExpr(a.Value))
	}

	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(PrintExpr(s.Where))
	}

	return sb.String()
}

func printDelete(s *DeleteStmt) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(s.TableName)
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(PrintExpr(s.Where))
	}
	return sb.String()
}

func printCreateTable(s *CreateTableStmt) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(s.TableName)
	sb.WriteString(" (")

	for i, col := range s.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteString(" ")
		sb.WriteString(ColumnTypeString(col.Type, col.MaxLength))
		if col.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		if col.NotNull {
			sb.WriteString(" NOT NULL")
		}
		if col.Unique {
			sb.WriteString(" UNIQUE")
		}
		if col.HasDefault {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(printLiteral(col.Default))
		}
	}

	sb.WriteString(")")
	return sb.String()
}

func printCreateIndex(s *CreateIndexStmt) string {
	kw := "CREATE INDEX "
	if s.Unique {
		kw = "CREATE UNIQUE INDEX "
	}
	return fmt.Sprintf("%s%s ON %s (%s)", kw, s.IndexName, s.TableName, s.Column)
}

// ColumnTypeString renders a declared column type, including the VARCHAR bound
func ColumnTypeString(vt types.ValueType, maxLength int) string {
	if vt == types.TypeText && maxLength > 0 {
		return fmt.Sprintf("VARCHAR(%d)", maxLength)
	}
	return vt.String()
}
