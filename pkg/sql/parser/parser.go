// pkg/sql/parser/parser.go
package parser

import (
	"fmt"
	"strconv"

	"github.com/Abogeerick/minidb-complete-project/pkg/sql/lexer"
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// SyntaxError reports a lex or parse failure with its source position
type SyntaxError struct {
	Msg  string
	Line int
	Col  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

// Precedence levels for operators, tight to loose:
// unary sign, * /, + -, comparison, NOT, AND, OR
const (
	_ int = iota
	LOWEST
	OR_PREC   // OR
	AND_PREC  // AND
	NOT_PREC  // NOT <cmp>
	COMPARE   // = != <> < <= > >= LIKE IS IN BETWEEN
	SUM       // + -
	PRODUCT   // * /
	PREFIX    // -x
)

// precedences maps token types to infix precedence
var precedences = map[lexer.TokenType]int{
	lexer.OR:      OR_PREC,
	lexer.AND:     AND_PREC,
	lexer.EQ:      COMPARE,
	lexer.NEQ:     COMPARE,
	lexer.LT:      COMPARE,
	lexer.GT:      COMPARE,
	lexer.LTE:     COMPARE,
	lexer.GTE:     COMPARE,
	lexer.LIKE_KW: COMPARE,
	lexer.IS:      COMPARE,
	lexer.IN_KW:   COMPARE,
	lexer.BETWEEN: COMPARE,
	lexer.NOT:     COMPARE, // infix NOT introduces NOT IN / NOT BETWEEN / NOT LIKE
	lexer.PLUS:    SUM,
	lexer.MINUS:   SUM,
	lexer.STAR:    PRODUCT,
	lexer.SLASH:   PRODUCT,
}

// Parser is a recursive descent SQL parser
type Parser struct {
	lexer *lexer.Lexer
	cur   lexer.Token
	peek  lexer.Token
}

// New creates a new Parser for the given SQL input
func New(input string) *Parser {
	p := &Parser{lexer: lexer.New(input)}
	// Read two tokens to initialize cur and peek
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// errf builds a SyntaxError at the given token
func errf(tok lexer.Token, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: tok.Line, Col: tok.Col}
}

// Parse parses exactly one statement. Trailing input after an optional
// terminating semicolon is a syntax error.
func (p *Parser) Parse() (Statement, error) {
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	if p.peekIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	if !p.peekIs(lexer.EOF) {
		return nil, errf(p.peek, "unexpected input after statement: %s", p.peek.Literal)
	}

	return stmt, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	if p.cur.Type == lexer.ILLEGAL {
		return nil, errf(p.cur, "%s", p.cur.Literal)
	}

	switch p.cur.Type {
	case lexer.SELECT:
		return p.parseSelect()
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.UPDATE:
		return p.parseUpdate()
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.CREATE:
		return p.parseCreate()
	case lexer.DROP:
		return p.parseDrop()
	case lexer.TRUNCATE:
		return p.parseTruncate()
	case lexer.SHOW:
		return p.parseShowTables()
	case lexer.DESCRIBE:
		return p.parseDescribe()
	default:
		return nil, errf(p.cur, "unexpected token: %s", p.cur.Literal)
	}
}

// parseCreate handles CREATE TABLE and CREATE [UNIQUE] INDEX
func (p *Parser) parseCreate() (Statement, error) {
	p.nextToken() // consume CREATE

	switch p.cur.Type {
	case lexer.TABLE:
		return p.parseCreateTableBody()
	case lexer.INDEX:
		return p.parseCreateIndex(false)
	case lexer.UNIQUE:
		if !p.expectPeek(lexer.INDEX) {
			return nil, errf(p.peek, "expected INDEX after UNIQUE, got %s", p.peek.Literal)
		}
		return p.parseCreateIndex(true)
	default:
		return nil, errf(p.cur, "expected TABLE, INDEX, or UNIQUE after CREATE, got %s", p.cur.Literal)
	}
}

// parseDrop handles DROP TABLE and DROP INDEX
func (p *Parser) parseDrop() (Statement, error) {
	p.nextToken() // consume DROP

	switch p.cur.Type {
	case lexer.TABLE:
		if !p.expectPeek(lexer.IDENT) {
			return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
		}
		return &DropTableStmt{TableName: p.cur.Literal}, nil
	case lexer.INDEX:
		if !p.expectPeek(lexer.IDENT) {
			return nil, errf(p.peek, "expected index name, got %s", p.peek.Literal)
		}
		return &DropIndexStmt{IndexName: p.cur.Literal}, nil
	default:
		return nil, errf(p.cur, "expected TABLE or INDEX after DROP, got %s", p.cur.Literal)
	}
}

// parseCreateTableBody parses: TABLE name (column_def, ...)
func (p *Parser) parseCreateTableBody() (*CreateTableStmt, error) {
	stmt := &CreateTableStmt{}

	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	stmt.TableName = p.cur.Literal

	if !p.expectPeek(lexer.LPAREN) {
		return nil, errf(p.peek, "expected '(', got %s", p.peek.Literal)
	}

	for {
		p.nextToken()
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)

		if p.peekIs(lexer.COMMA) {
			p.nextToken() // consume ,
		} else {
			break
		}
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil, errf(p.peek, "expected ')' or ',', got %s", p.peek.Literal)
	}

	return stmt, nil
}

// parseColumnDef parses: name type[(n)] [PRIMARY KEY] [NOT NULL] [UNIQUE] [DEFAULT literal]
func (p *Parser) parseColumnDef() (ColumnDef, error) {
	col := ColumnDef{}

	if p.cur.Type != lexer.IDENT {
		return col, errf(p.cur, "expected column name, got %s", p.cur.Literal)
	}
	col.Name = p.cur.Literal

	p.nextToken()
	typ, maxLen, err := p.parseColumnType()
	if err != nil {
		return col, err
	}
	col.Type = typ
	col.MaxLength = maxLen

	// Constraint clauses in any order
	for {
		switch p.peek.Type {
		case lexer.PRIMARY:
			p.nextToken()
			if !p.expectPeek(lexer.KEY) {
				return col, errf(p.peek, "expected KEY after PRIMARY, got %s", p.peek.Literal)
			}
			col.PrimaryKey = true
		case lexer.NOT:
			p.nextToken()
			if !p.expectPeek(lexer.NULL_KW) {
				return col, errf(p.peek, "expected NULL after NOT, got %s", p.peek.Literal)
			}
			col.NotNull = true
		case lexer.UNIQUE:
			p.nextToken()
			col.Unique = true
		case lexer.DEFAULT:
			p.nextToken()
			p.nextToken()
			v, err := p.parseConstant()
			if err != nil {
				return col, err
			}
			col.HasDefault = true
			col.Default = v
		default:
			return col, nil
		}
	}
}

// parseColumnType parses a type name with optional VARCHAR length
func (p *Parser) parseColumnType() (types.ValueType, int, error) {
	switch p.cur.Type {
	case lexer.INTEGER_TYPE:
		return types.TypeInt, 0, nil
	case lexer.FLOAT_TYPE:
		return types.TypeFloat, 0, nil
	case lexer.TEXT_TYPE:
		return types.TypeText, 0, nil
	case lexer.BOOLEAN_TYPE:
		return types.TypeBool, 0, nil
	case lexer.DATE_TYPE:
		return types.TypeDate, 0, nil
	case lexer.TIMESTAMP_TYPE:
		return types.TypeTimestamp, 0, nil
	case lexer.VARCHAR_TYPE:
		if !p.expectPeek(lexer.LPAREN) {
			return 0, 0, errf(p.peek, "expected '(' after VARCHAR, got %s", p.peek.Literal)
		}
		if !p.expectPeek(lexer.INT) {
			return 0, 0, errf(p.peek, "expected VARCHAR length, got %s", p.peek.Literal)
		}
		n, err := strconv.Atoi(p.cur.Literal)
		if err != nil || n <= 0 {
			return 0, 0, errf(p.cur, "invalid VARCHAR length %s", p.cur.Literal)
		}
		if !p.expectPeek(lexer.RPAREN) {
			return 0, 0, errf(p.peek, "expected ')' after VARCHAR length, got %s", p.peek.Literal)
		}
		return types.TypeText, n, nil
	default:
		return 0, 0, errf(p.cur, "expected column type, got %s", p.cur.Literal)
	}
}

// parseConstant parses a literal constant: number, string, boolean, or NULL,
// with an optional leading sign. Used for DEFAULT clauses.
func (p *Parser) parseConstant() (types.Value, error) {
	neg := false
	if p.cur.Type == lexer.MINUS || p.cur.Type == lexer.PLUS {
		neg = p.cur.Type == lexer.MINUS
		p.nextToken()
	}

	switch p.cur.Type {
	case lexer.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return types.NewNull(), errf(p.cur, "invalid integer literal %s", p.cur.Literal)
		}
		if neg {
			n = -n
		}
		return types.NewInt(n), nil
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return types.NewNull(), errf(p.cur, "invalid float literal %s", p.cur.Literal)
		}
		if neg {
			f = -f
		}
		return types.NewFloat(f), nil
	case lexer.STRING:
		if neg {
			return types.NewNull(), errf(p.cur, "cannot negate a string literal")
		}
		return types.NewText(p.cur.Literal), nil
	case lexer.TRUE_KW:
		return types.NewBool(true), nil
	case lexer.FALSE_KW:
		return types.NewBool(false), nil
	case lexer.NULL_KW:
		return types.NewNull(), nil
	default:
		return types.NewNull(), errf(p.cur, "expected constant, got %s", p.cur.Literal)
	}
}

// parseCreateIndex parses: INDEX name ON table (column)
func (p *Parser) parseCreateIndex(unique bool) (*CreateIndexStmt, error) {
	stmt := &CreateIndexStmt{Unique: unique}

	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected index name, got %s", p.peek.Literal)
	}
	stmt.IndexName = p.cur.Literal

	if !p.expectPeek(lexer.ON) {
		return nil, errf(p.peek, "expected ON, got %s", p.peek.Literal)
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	stmt.TableName = p.cur.Literal

	if !p.expectPeek(lexer.LPAREN) {
		return nil, errf(p.peek, "expected '(', got %s", p.peek.Literal)
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected column name, got %s", p.peek.Literal)
	}
	stmt.Column = p.cur.Literal

	if !p.expectPeek(lexer.RPAREN) {
		return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
	}

	return stmt, nil
}

// parseInsert parses: INSERT INTO name [(cols)] VALUES (exprs) [, (exprs)]*
func (p *Parser) parseInsert() (*InsertStmt, error) {
	stmt := &InsertStmt{}

	if !p.expectPeek(lexer.INTO) {
		return nil, errf(p.peek, "expected INTO, got %s", p.peek.Literal)
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	stmt.TableName = p.cur.Literal

	// Optional column list
	if p.peekIs(lexer.LPAREN) {
		p.nextToken() // (
		for {
			if !p.expectPeek(lexer.IDENT) {
				return nil, errf(p.peek, "expected column name, got %s", p.peek.Literal)
			}
			stmt.Columns = append(stmt.Columns, p.cur.Literal)
			if p.peekIs(lexer.COMMA) {
				p.nextToken()
			} else {
				break
			}
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
		}
	}

	if !p.expectPeek(lexer.VALUES) {
		return nil, errf(p.peek, "expected VALUES, got %s", p.peek.Literal)
	}

	for {
		if !p.expectPeek(lexer.LPAREN) {
			return nil, errf(p.peek, "expected '(', got %s", p.peek.Literal)
		}
		row, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
		}
		stmt.Rows = append(stmt.Rows, row)

		if p.peekIs(lexer.COMMA) {
			p.nextToken()
		} else {
			break
		}
	}

	return stmt, nil
}

// parseUpdate parses: UPDATE name SET col = expr [, col = expr]* [WHERE expr]
func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	stmt := &UpdateStmt{}

	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	stmt.TableName = p.cur.Literal

	if !p.expectPeek(lexer.SET) {
		return nil, errf(p.peek, "expected SET, got %s", p.peek.Literal)
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil, errf(p.peek, "expected column name, got %s", p.peek.Literal)
		}
		a := Assignment{Column: p.cur.Literal}

		if !p.expectPeek(lexer.EQ) {
			return nil, errf(p.peek, "expected '=', got %s", p.peek.Literal)
		}
		p.nextToken()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		a.Value = expr
		stmt.Assignments = append(stmt.Assignments, a)

		if p.peekIs(lexer.COMMA) {
			p.nextToken()
		} else {
			break
		}
	}

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

// parseDelete parses: DELETE FROM name [WHERE expr]
func (p *Parser) parseDelete() (*DeleteStmt, error) {
	stmt := &DeleteStmt{}

	if !p.expectPeek(lexer.FROM) {
		return nil, errf(p.peek, "expected FROM, got %s", p.peek.Literal)
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	stmt.TableName = p.cur.Literal

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

// parseTruncate parses: TRUNCATE [TABLE] name
func (p *Parser) parseTruncate() (*TruncateStmt, error) {
	if p.peekIs(lexer.TABLE) {
		p.nextToken()
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	return &TruncateStmt{TableName: p.cur.Literal}, nil
}

// parseShowTables parses: SHOW TABLES
func (p *Parser) parseShowTables() (*ShowTablesStmt, error) {
	if !p.expectPeek(lexer.TABLES) {
		return nil, errf(p.peek, "expected TABLES after SHOW, got %s", p.peek.Literal)
	}
	return &ShowTablesStmt{}, nil
}

// parseDescribe parses: DESCRIBE name
func (p *Parser) parseDescribe() (*DescribeStmt, error) {
	if !p.expectPeek(lexer.IDENT) {
		return nil, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	return &DescribeStmt{TableName: p.cur.Literal}, nil
}

// parseSelect parses a full SELECT statement
func (p *Parser) parseSelect() (*SelectStmt, error) {
	stmt := &SelectStmt{Limit: -1, Offset: -1}

	if p.peekIs(lexer.DISTINCT) {
		p.nextToken()
		stmt.Distinct = true
	}

	cols, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	stmt.Columns = cols

	if !p.expectPeek(lexer.FROM) {
		return nil, errf(p.peek, "expected FROM, got %s", p.peek.Literal)
	}

	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.From = from

	// JOIN clauses
	for p.peekIs(lexer.JOIN) || p.peekIs(lexer.INNER) || p.peekIs(lexer.LEFT) {
		join, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.peekIs(lexer.GROUP) {
		p.nextToken()
		if !p.expectPeek(lexer.BY) {
			return nil, errf(p.peek, "expected BY after GROUP, got %s", p.peek.Literal)
		}
		p.nextToken()
		groupBy, err := p.parseExpressionListFromCur()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = groupBy
	}

	if p.peekIs(lexer.HAVING) {
		p.nextToken()
		p.nextToken()
		having, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.peekIs(lexer.ORDER) {
		p.nextToken()
		if !p.expectPeek(lexer.BY) {
			return nil, errf(p.peek, "expected BY after ORDER, got %s", p.peek.Literal)
		}
		orderBy, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderBy
	}

	if p.peekIs(lexer.LIMIT) {
		p.nextToken()
		n, err := p.parseBoundValue("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = n
	}

	if p.peekIs(lexer.OFFSET) {
		p.nextToken()
		n, err := p.parseBoundValue("OFFSET")
		if err != nil {
			return nil, err
		}
		stmt.Offset = n
	}

	return stmt, nil
}

// parseBoundValue parses the non-negative integer after LIMIT or OFFSET
func (p *Parser) parseBoundValue(clause string) (int64, error) {
	if !p.expectPeek(lexer.INT) {
		return 0, errf(p.peek, "expected integer after %s, got %s", clause, p.peek.Literal)
	}
	n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
	if err != nil || n < 0 {
		return 0, errf(p.cur, "invalid %s value %s", clause, p.cur.Literal)
	}
	return n, nil
}

// parseSelectColumns parses the projection list: * or expr [AS alias], ...
func (p *Parser) parseSelectColumns() ([]SelectColumn, error) {
	var cols []SelectColumn

	for {
		p.nextToken()

		if p.cur.Type == lexer.STAR {
			cols = append(cols, SelectColumn{Star: true})
		} else {
			expr, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			col := SelectColumn{Expr: expr}
			if p.peekIs(lexer.AS_KW) {
				p.nextToken()
				if !p.expectPeek(lexer.IDENT) {
					return nil, errf(p.peek, "expected alias after AS, got %s", p.peek.Literal)
				}
				col.Alias = p.cur.Literal
			} else if p.peekIs(lexer.IDENT) {
				p.nextToken()
				col.Alias = p.cur.Literal
			}
			cols = append(cols, col)
		}

		if p.peekIs(lexer.COMMA) {
			p.nextToken()
		} else {
			break
		}
	}

	return cols, nil
}

// parseTableRef parses: name [AS alias | alias]
func (p *Parser) parseTableRef() (TableRef, error) {
	if !p.expectPeek(lexer.IDENT) {
		return TableRef{}, errf(p.peek, "expected table name, got %s", p.peek.Literal)
	}
	ref := TableRef{Name: p.cur.Literal}

	if p.peekIs(lexer.AS_KW) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return TableRef{}, errf(p.peek, "expected alias after AS, got %s", p.peek.Literal)
		}
		ref.Alias = p.cur.Literal
	} else if p.peekIs(lexer.IDENT) {
		p.nextToken()
		ref.Alias = p.cur.Literal
	}

	return ref, nil
}

// parseJoinClause parses: [INNER] JOIN t ON p, or LEFT JOIN t ON p
func (p *Parser) parseJoinClause() (JoinClause, error) {
	join := JoinClause{Type: JoinInner}

	switch p.peek.Type {
	case lexer.LEFT:
		p.nextToken()
		join.Type = JoinLeft
		if !p.expectPeek(lexer.JOIN) {
			return join, errf(p.peek, "expected JOIN after LEFT, got %s", p.peek.Literal)
		}
	case lexer.INNER:
		p.nextToken()
		if !p.expectPeek(lexer.JOIN) {
			return join, errf(p.peek, "expected JOIN after INNER, got %s", p.peek.Literal)
		}
	case lexer.JOIN:
		p.nextToken()
	}

	table, err := p.parseTableRef()
	if err != nil {
		return join, err
	}
	join.Table = table

	if !p.expectPeek(lexer.ON) {
		return join, errf(p.peek, "expected ON, got %s", p.peek.Literal)
	}
	p.nextToken()
	on, err := p.parseExpression(LOWEST)
	if err != nil {
		return join, err
	}
	join.On = on

	return join, nil
}

// parseOrderByList parses: expr [ASC|DESC] [, expr [ASC|DESC]]*
func (p *Parser) parseOrderByList() ([]OrderByExpr, error) {
	var items []OrderByExpr

	for {
		p.nextToken()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		item := OrderByExpr{Expr: expr}

		if p.peekIs(lexer.ASC) {
			p.nextToken()
		} else if p.peekIs(lexer.DESC) {
			p.nextToken()
			item.Desc = true
		}
		items = append(items, item)

		if p.peekIs(lexer.COMMA) {
			p.nextToken()
		} else {
			break
		}
	}

	return items, nil
}

// parseExpressionList parses a comma-separated expression list, starting
// with cur on the token before the first expression
func (p *Parser) parseExpressionList() ([]Expression, error) {
	p.nextToken()
	return p.parseExpressionListFromCur()
}

// parseExpressionListFromCur parses a comma-separated expression list with
// cur already on the first expression token
func (p *Parser) parseExpressionListFromCur() ([]Expression, error) {
	var exprs []Expression

	for {
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		if p.peekIs(lexer.COMMA) {
			p.nextToken() // ,
			p.nextToken() // next expr
		} else {
			break
		}
	}

	return exprs, nil
}

// parseExpression parses an expression using Pratt parsing
func (p *Parser) parseExpression(precedence int) (Expression, error) {
	left, err := p.parsePrefixExpression()
	if err != nil {
		return nil, err
	}

	for !p.peekIs(lexer.EOF) && !p.peekIs(lexer.SEMICOLON) &&
		precedence < p.peekPrecedence() {
		p.nextToken()
		left, err = p.parseInfixExpression(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefixExpression parses a literal, column reference, aggregate call,
// unary operator, or parenthesized expression
func (p *Parser) parsePrefixExpression() (Expression, error) {
	if p.cur.Type == lexer.ILLEGAL {
		return nil, errf(p.cur, "%s", p.cur.Literal)
	}

	switch p.cur.Type {
	case lexer.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, errf(p.cur, "invalid integer literal %s", p.cur.Literal)
		}
		return &Literal{Value: types.NewInt(n)}, nil
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, errf(p.cur, "invalid float literal %s", p.cur.Literal)
		}
		return &Literal{Value: types.NewFloat(f)}, nil
	case lexer.STRING:
		return &Literal{Value: types.NewText(p.cur.Literal)}, nil
	case lexer.NULL_KW:
		return &Literal{Value: types.NewNull()}, nil
	case lexer.TRUE_KW:
		return &Literal{Value: types.NewBool(true)}, nil
	case lexer.FALSE_KW:
		return &Literal{Value: types.NewBool(false)}, nil
	case lexer.COUNT, lexer.SUM, lexer.AVG, lexer.MIN, lexer.MAX:
		return p.parseAggregateCall()
	case lexer.NOT:
		p.nextToken()
		right, err := p.parseExpression(NOT_PREC)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: lexer.NOT, Right: right}, nil
	case lexer.MINUS, lexer.PLUS:
		op := p.cur.Type
		p.nextToken()
		right, err := p.parsePrefixExpression()
		if err != nil {
			return nil, err
		}
		if op == lexer.PLUS {
			return right, nil
		}
		// Fold the sign into numeric literals
		if lit, ok := right.(*Literal); ok {
			if lit.Value.Type() == types.TypeInt {
				return &Literal{Value: types.NewInt(-lit.Value.Int())}, nil
			}
			if lit.Value.Type() == types.TypeFloat {
				return &Literal{Value: types.NewFloat(-lit.Value.Float())}, nil
			}
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	case lexer.IDENT:
		if p.peekIs(lexer.LPAREN) {
			return nil, errf(p.cur, "unknown function: %s", p.cur.Literal)
		}
		if p.peekIs(lexer.DOT) {
			table := p.cur.Literal
			p.nextToken() // .
			if !p.expectPeek(lexer.IDENT) {
				return nil, errf(p.peek, "expected column name after '.', got %s", p.peek.Literal)
			}
			return &ColumnRef{Table: table, Name: p.cur.Literal}, nil
		}
		return &ColumnRef{Name: p.cur.Literal}, nil
	case lexer.LPAREN:
		p.nextToken()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
		}
		return expr, nil
	default:
		return nil, errf(p.cur, "unexpected token in expression: %s", p.cur.Literal)
	}
}

// parseAggregateCall parses COUNT(*), COUNT(expr), SUM/AVG/MIN/MAX(expr)
func (p *Parser) parseAggregateCall() (Expression, error) {
	agg := &AggregateExpr{Func: p.cur.Type}

	if !p.expectPeek(lexer.LPAREN) {
		return nil, errf(p.peek, "expected '(' after %s, got %s", agg.Func, p.peek.Literal)
	}

	if p.peekIs(lexer.STAR) {
		if agg.Func != lexer.COUNT {
			return nil, errf(p.peek, "%s(*) is not supported", agg.Func)
		}
		p.nextToken()
		agg.Star = true
	} else {
		p.nextToken()
		arg, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
	}

	return agg, nil
}

// parseInfixExpression parses binary operators, IS [NOT] NULL, [NOT] IN,
// and [NOT] BETWEEN with cur on the operator token
func (p *Parser) parseInfixExpression(left Expression) (Expression, error) {
	switch p.cur.Type {
	case lexer.AND, lexer.OR,
		lexer.EQ, lexer.NEQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE,
		lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.LIKE_KW:
		op := p.cur.Type
		prec := p.curPrecedence()
		p.nextToken()
		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Op: op, Right: right}, nil

	case lexer.IS:
		not := false
		if p.peekIs(lexer.NOT) {
			p.nextToken()
			not = true
		}
		if !p.expectPeek(lexer.NULL_KW) {
			return nil, errf(p.peek, "expected NULL after IS, got %s", p.peek.Literal)
		}
		return &IsNullExpr{Expr: left, Not: not}, nil

	case lexer.IN_KW:
		return p.parseInList(left, false)

	case lexer.BETWEEN:
		return p.parseBetween(left, false)

	case lexer.NOT:
		switch p.peek.Type {
		case lexer.IN_KW:
			p.nextToken()
			return p.parseInList(left, true)
		case lexer.BETWEEN:
			p.nextToken()
			return p.parseBetween(left, true)
		case lexer.LIKE_KW:
			p.nextToken()
			p.nextToken()
			pattern, err := p.parseExpression(COMPARE)
			if err != nil {
				return nil, err
			}
			return &UnaryExpr{Op: lexer.NOT, Right: &BinaryExpr{Left: left, Op: lexer.LIKE_KW, Right: pattern}}, nil
		default:
			return nil, errf(p.peek, "expected IN, BETWEEN, or LIKE after NOT, got %s", p.peek.Literal)
		}

	default:
		return nil, errf(p.cur, "unexpected operator: %s", p.cur.Literal)
	}
}

// parseInList parses: (expr, expr, ...) after IN
func (p *Parser) parseInList(left Expression, not bool) (Expression, error) {
	if !p.expectPeek(lexer.LPAREN) {
		return nil, errf(p.peek, "expected '(' after IN, got %s", p.peek.Literal)
	}
	list, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil, errf(p.peek, "expected ')', got %s", p.peek.Literal)
	}
	return &InExpr{Expr: left, List: list, Not: not}, nil
}

// parseBetween parses: low AND high after BETWEEN
func (p *Parser) parseBetween(left Expression, not bool) (Expression, error) {
	p.nextToken()
	low, err := p.parseExpression(COMPARE)
	if err != nil {
		return nil, err
	}
	if !p.expectPeek(lexer.AND) {
		return nil, errf(p.peek, "expected AND in BETWEEN, got %s", p.peek.Literal)
	}
	p.nextToken()
	high, err := p.parseExpression(COMPARE)
	if err != nil {
		return nil, err
	}
	return &BetweenExpr{Expr: left, Low: low, High: high, Not: not}, nil
}

func (p *Parser) curIs(t lexer.TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) peekIs(t lexer.TokenType) bool {
	return p.peek.Type == t
}

// expectPeek advances when the next token matches the expected type
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return LOWEST
}
