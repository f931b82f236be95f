package parser

import (
	"errors"
	"testing"

	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

func parse(t *testing.T, input string) Statement {
	t.Helper()
	stmt, err := New(input).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return stmt
}

func TestParse_CreateTable(t *testing.T) {
	stmt := parse(t, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name VARCHAR(10) NOT NULL,
		age INTEGER,
		email TEXT UNIQUE,
		active BOOLEAN DEFAULT true,
		score FLOAT DEFAULT -1.5
	);`)

	ct, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("statement type = %T", stmt)
	}
	if ct.TableName != "users" {
		t.Errorf("table name = %s", ct.TableName)
	}
	if len(ct.Columns) != 6 {
		t.Fatalf("columns = %d, want 6", len(ct.Columns))
	}

	id := ct.Columns[0]
	if !id.PrimaryKey || id.Type != types.TypeInt {
		t.Errorf("id column = %+v", id)
	}
	name := ct.Columns[1]
	if !name.NotNull || name.Type != types.TypeText || name.MaxLength != 10 {
		t.Errorf("name column = %+v", name)
	}
	email := ct.Columns[3]
	if !email.Unique || email.MaxLength != 0 {
		t.Errorf("email column = %+v", email)
	}
	active := ct.Columns[4]
	if !active.HasDefault || active.Default.Type() != types.TypeBool || !active.Default.Bool() {
		t.Errorf("active column = %+v", active)
	}
	score := ct.Columns[5]
	if !score.HasDefault || score.Default.Float() != -1.5 {
		t.Errorf("score column = %+v", score)
	}
}

func TestParse_CreateDropIndex(t *testing.T) {
	stmt := parse(t, "CREATE UNIQUE INDEX idx_email ON users (email)")
	ci := stmt.(*CreateIndexStmt)
	if !ci.Unique || ci.IndexName != "idx_email" || ci.TableName != "users" || ci.Column != "email" {
		t.Errorf("create index = %+v", ci)
	}

	stmt = parse(t, "DROP INDEX idx_email")
	di := stmt.(*DropIndexStmt)
	if di.IndexName != "idx_email" {
		t.Errorf("drop index = %+v", di)
	}
}

func TestParse_Insert(t *testing.T) {
	stmt := parse(t, "INSERT INTO users (id, name) VALUES (1, 'Alice'), (2, 'Bob')")
	ins := stmt.(*InsertStmt)
	if ins.TableName != "users" {
		t.Errorf("table = %s", ins.TableName)
	}
	if len(ins.Columns) != 2 || ins.Columns[0] != "id" || ins.Columns[1] != "name" {
		t.Errorf("columns = %v", ins.Columns)
	}
	if len(ins.Rows) != 2 || len(ins.Rows[0]) != 2 {
		t.Fatalf("rows = %d", len(ins.Rows))
	}
	lit := ins.Rows[0][1].(*Literal)
	if lit.Value.Text() != "Alice" {
		t.Errorf("value = %v", lit.Value)
	}
}

func TestParse_InsertWithoutColumns(t *testing.T) {
	stmt := parse(t, "INSERT INTO users VALUES (1, 'Alice', NULL)")
	ins := stmt.(*InsertStmt)
	if ins.Columns != nil {
		t.Errorf("columns = %v, want nil", ins.Columns)
	}
	if len(ins.Rows[0]) != 3 {
		t.Errorf("values = %d", len(ins.Rows[0]))
	}
	if !ins.Rows[0][2].(*Literal).Value.IsNull() {
		t.Error("third value should be NULL")
	}
}

func TestParse_Update(t *testing.T) {
	stmt := parse(t, "UPDATE users SET age = age + 1, name = 'X' WHERE id = 3")
	up := stmt.(*UpdateStmt)
	if up.TableName != "users" || len(up.Assignments) != 2 {
		t.Fatalf("update = %+v", up)
	}
	if up.Assignments[0].Column != "age" {
		t.Errorf("assignment column = %s", up.Assignments[0].Column)
	}
	add, ok := up.Assignments[0].Value.(*BinaryExpr)
	if !ok || add.Op != lexer.PLUS {
		t.Errorf("assignment value = %T", up.Assignments[0].Value)
	}
	if up.Where == nil {
		t.Error("where is nil")
	}
}

func TestParse_Delete(t *testing.T) {
	stmt := parse(t, "DELETE FROM users WHERE age < 18")
	del := stmt.(*DeleteStmt)
	if del.TableName != "users" || del.Where == nil {
		t.Errorf("delete = %+v", del)
	}

	stmt = parse(t, "DELETE FROM users")
	if stmt.(*DeleteStmt).Where != nil {
		t.Error("where should be nil")
	}
}

func TestParse_SelectBasic(t *testing.T) {
	stmt := parse(t, "SELECT name FROM users WHERE age > 26 ORDER BY age DESC")
	sel := stmt.(*SelectStmt)

	if sel.From.Name != "users" {
		t.Errorf("from = %+v", sel.From)
	}
	if len(sel.Columns) != 1 || sel.Columns[0].Star {
		t.Fatalf("columns = %+v", sel.Columns)
	}
	ref := sel.Columns[0].Expr.(*ColumnRef)
	if ref.Name != "name" {
		t.Errorf("column = %+v", ref)
	}
	cmp := sel.Where.(*BinaryExpr)
	if cmp.Op != lexer.GT {
		t.Errorf("where op = %v", cmp.Op)
	}
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Desc {
		t.Errorf("order by = %+v", sel.OrderBy)
	}
}

func TestParse_SelectStar(t *testing.T) {
	sel := parse(t, "SELECT * FROM users").(*SelectStmt)
	if len(sel.Columns) != 1 || !sel.Columns[0].Star {
		t.Errorf("columns = %+v", sel.Columns)
	}
}

func TestParse_SelectDistinctAliasLimit(t *testing.T) {
	sel := parse(t, "SELECT DISTINCT age + 1 AS next_age FROM users LIMIT 10 OFFSET 5").(*SelectStmt)
	if !sel.Distinct {
		t.Error("distinct not set")
	}
	if sel.Columns[0].Alias != "next_age" {
		t.Errorf("alias = %s", sel.Columns[0].Alias)
	}
	if sel.Limit != 10 || sel.Offset != 5 {
		t.Errorf("limit/offset = %d/%d", sel.Limit, sel.Offset)
	}
}

func TestParse_Joins(t *testing.T) {
	sel := parse(t, `SELECT c.name, COUNT(e.id) FROM c
		LEFT JOIN e ON c.id = e.cid
		JOIN d ON d.id = e.did
		GROUP BY c.name HAVING COUNT(e.id) > 0 ORDER BY c.name`).(*SelectStmt)

	if len(sel.Joins) != 2 {
		t.Fatalf("joins = %d", len(sel.Joins))
	}
	if sel.Joins[0].Type != JoinLeft || sel.Joins[0].Table.Name != "e" {
		t.Errorf("join[0] = %+v", sel.Joins[0])
	}
	if sel.Joins[1].Type != JoinInner {
		t.Errorf("join[1] = %+v", sel.Joins[1])
	}
	on := sel.Joins[0].On.(*BinaryExpr)
	left := on.Left.(*ColumnRef)
	if left.Table != "c" || left.Name != "id" {
		t.Errorf("on left = %+v", left)
	}
	if len(sel.GroupBy) != 1 || sel.Having == nil {
		t.Errorf("group/having = %v/%v", sel.GroupBy, sel.Having)
	}
}

func TestParse_TableAlias(t *testing.T) {
	sel := parse(t, "SELECT u.name FROM users AS u").(*SelectStmt)
	if sel.From.Alias != "u" || sel.From.Binding() != "u" {
		t.Errorf("from = %+v", sel.From)
	}

	sel = parse(t, "SELECT u.name FROM users u").(*SelectStmt)
	if sel.From.Alias != "u" {
		t.Errorf("implicit alias: from = %+v", sel.From)
	}
}

func TestParse_Aggregates(t *testing.T) {
	sel := parse(t, "SELECT COUNT(*), COUNT(v), SUM(v), AVG(v), MIN(v), MAX(v) FROM x").(*SelectStmt)
	if len(sel.Columns) != 6 {
		t.Fatalf("columns = %d", len(sel.Columns))
	}

	star := sel.Columns[0].Expr.(*AggregateExpr)
	if star.Func != lexer.COUNT || !star.Star {
		t.Errorf("COUNT(*) = %+v", star)
	}
	sum := sel.Columns[2].Expr.(*AggregateExpr)
	if sum.Func != lexer.SUM || sum.Star || sum.Arg == nil {
		t.Errorf("SUM(v) = %+v", sum)
	}
}

func TestParse_PredicateForms(t *testing.T) {
	sel := parse(t, `SELECT * FROM t WHERE a IS NULL AND b IS NOT NULL
		AND c IN (1, 2, 3) AND d NOT IN (4)
		AND e BETWEEN 1 AND 10 AND f NOT BETWEEN 2 AND 3
		AND g LIKE 'a%' AND h NOT LIKE '_b'`).(*SelectStmt)

	// Walk the left-leaning AND chain and collect the leaves
	var leaves []Expression
	var walk func(e Expression)
	walk = func(e Expression) {
		if b, ok := e.(*BinaryExpr); ok && b.Op == lexer.AND {
			walk(b.Left)
			walk(b.Right)
			return
		}
		leaves = append(leaves, e)
	}
	walk(sel.Where)

	if len(leaves) != 8 {
		t.Fatalf("leaves = %d, want 8", len(leaves))
	}
	if isNull := leaves[0].(*IsNullExpr); isNull.Not {
		t.Error("a IS NULL parsed as NOT")
	}
	if isNull := leaves[1].(*IsNullExpr); !isNull.Not {
		t.Error("b IS NOT NULL missing NOT")
	}
	if in := leaves[2].(*InExpr); in.Not || len(in.List) != 3 {
		t.Errorf("IN = %+v", in)
	}
	if in := leaves[3].(*InExpr); !in.Not {
		t.Error("NOT IN missing NOT")
	}
	if bt := leaves[4].(*BetweenExpr); bt.Not {
		t.Error("BETWEEN parsed as NOT")
	}
	if bt := leaves[5].(*BetweenExpr); !bt.Not {
		t.Error("NOT BETWEEN missing NOT")
	}
	if like := leaves[6].(*BinaryExpr); like.Op != lexer.LIKE_KW {
		t.Errorf("LIKE = %+v", like)
	}
	notLike := leaves[7].(*UnaryExpr)
	if notLike.Op != lexer.NOT {
		t.Errorf("NOT LIKE = %+v", notLike)
	}
}

func TestParse_Precedence(t *testing.T) {
	sel := parse(t, "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3").(*SelectStmt)
	or := sel.Where.(*BinaryExpr)
	if or.Op != lexer.OR {
		t.Fatalf("top op = %v, want OR", or.Op)
	}
	and := or.Right.(*BinaryExpr)
	if and.Op != lexer.AND {
		t.Errorf("right op = %v, want AND", and.Op)
	}

	sel = parse(t, "SELECT * FROM t WHERE a + 2 * 3 = 7").(*SelectStmt)
	eq := sel.Where.(*BinaryExpr)
	if eq.Op != lexer.EQ {
		t.Fatalf("top op = %v, want =", eq.Op)
	}
	add := eq.Left.(*BinaryExpr)
	if add.Op != lexer.PLUS {
		t.Fatalf("left op = %v, want +", add.Op)
	}
	mul := add.Right.(*BinaryExpr)
	if mul.Op != lexer.STAR {
		t.Errorf("inner op = %v, want *", mul.Op)
	}

	// NOT binds looser than comparison
	sel = parse(t, "SELECT * FROM t WHERE NOT a = 1 AND b = 2").(*SelectStmt)
	and = sel.Where.(*BinaryExpr)
	if and.Op != lexer.AND {
		t.Fatalf("top op = %v, want AND", and.Op)
	}
	not := and.Left.(*UnaryExpr)
	if not.Op != lexer.NOT {
		t.Fatalf("left = %T, want NOT", and.Left)
	}
	if inner := not.Right.(*BinaryExpr); inner.Op != lexer.EQ {
		t.Errorf("NOT operand op = %v, want =", inner.Op)
	}
}

func TestParse_MiscStatements(t *testing.T) {
	if _, ok := parse(t, "SHOW TABLES").(*ShowTablesStmt); !ok {
		t.Error("SHOW TABLES")
	}
	if d := parse(t, "DESCRIBE users").(*DescribeStmt); d.TableName != "users" {
		t.Errorf("describe = %+v", d)
	}
	if tr := parse(t, "TRUNCATE TABLE logs").(*TruncateStmt); tr.TableName != "logs" {
		t.Errorf("truncate = %+v", tr)
	}
	if tr := parse(t, "TRUNCATE logs").(*TruncateStmt); tr.TableName != "logs" {
		t.Errorf("truncate without TABLE = %+v", tr)
	}
	if d := parse(t, "DROP TABLE users").(*DropTableStmt); d.TableName != "users" {
		t.Errorf("drop = %+v", d)
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"SELECT",
		"SELECT FROM t",
		"SELECT * FROM",
		"SELEC * FROM t",
		"INSERT users VALUES (1)",
		"CREATE TABLE t",
		"CREATE TABLE t ()",
		"SELECT * FROM t WHERE a = ",
		"SELECT * FROM t; SELECT * FROM u",
		"SELECT * FROM t WHERE a LIKE",
		"SELECT 'unterminated FROM t",
		"SELECT nosuch(x) FROM t",
		"SELECT * FROM t WHERE a NOT 5",
		"CREATE TABLE t (v VARCHAR)",
		"CREATE TABLE t (v VARCHAR(0))",
	}
	for _, input := range inputs {
		_, err := New(input).Parse()
		if err == nil {
			t.Errorf("Parse(%q): expected error", input)
			continue
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Parse(%q): error type = %T", input, err)
		}
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := New("SELECT *\nFRM users").Parse()
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Line != 2 {
		t.Errorf("error line = %d, want 2", se.Line)
	}
}

func TestPrint_RoundTrip(t *testing.T) {
	inputs := []string{
		"SELECT name FROM users WHERE age > 26 ORDER BY age DESC",
		"SELECT DISTINCT a + 1 AS n, COUNT(*) FROM t AS x LEFT JOIN u ON x.id = u.tid WHERE a IS NOT NULL GROUP BY n HAVING COUNT(*) > 1 LIMIT 3 OFFSET 1",
		"SELECT * FROM t WHERE a IN (1, 2) AND b NOT BETWEEN 1 AND 2 OR NOT c LIKE 'x%'",
		"INSERT INTO users (id, name) VALUES (1, 'it''s'), (2, NULL)",
		"UPDATE t SET a = a + 1 WHERE b = 2",
		"DELETE FROM t WHERE a = 1",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name VARCHAR(10) NOT NULL, e TEXT UNIQUE, f FLOAT DEFAULT 1.5)",
		"CREATE UNIQUE INDEX i ON t (a)",
		"TRUNCATE TABLE t",
		"SHOW TABLES",
		"DESCRIBE t",
	}

	for _, input := range inputs {
		first, err := New(input).Parse()
		if err != nil {
			t.Errorf("parse(%q): %v", input, err)
			continue
		}
		printed := Print(first)
		second, err := New(printed).Parse()
		if err != nil {
			t.Errorf("reparse of %q: %v", printed, err)
			continue
		}
		if Print(second) != printed {
			t.Errorf("round trip not stable:\n  first:  %s\n  second: %s", printed, Print(second))
		}
	}
}
