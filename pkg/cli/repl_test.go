package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Abogeerick/minidb-complete-project/pkg/minidb"
)

func runScript(t *testing.T, input string) (string, string) {
	t.Helper()

	db, err := minidb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var out, errOut bytes.Buffer
	repl := NewREPL(db, strings.NewReader(input), &out, &errOut, false)
	repl.Run()
	return out.String(), errOut.String()
}

func TestREPL_ExecutesStatements(t *testing.T) {
	out, errOut := runScript(t, `
CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);
INSERT INTO t VALUES (1, 'Alice');
SELECT name FROM t;
`)
	if errOut != "" {
		t.Fatalf("errors: %s", errOut)
	}
	if !strings.Contains(out, "Alice") {
		t.Errorf("output missing row data:\n%s", out)
	}
	if !strings.Contains(out, "| name") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "1 row(s)") {
		t.Errorf("output missing row count:\n%s", out)
	}
}

func TestREPL_MultiLineStatement(t *testing.T) {
	out, errOut := runScript(t, "CREATE TABLE t (id INTEGER PRIMARY KEY);\nINSERT INTO t\nVALUES (1);\nSELECT id FROM t;\n")
	if errOut != "" {
		t.Fatalf("errors: %s", errOut)
	}
	if !strings.Contains(out, "| 1") {
		t.Errorf("output = %s", out)
	}
}

func TestREPL_ErrorThenContinue(t *testing.T) {
	out, errOut := runScript(t, `
SELECT * FROM missing;
CREATE TABLE t (id INTEGER PRIMARY KEY);
INSERT INTO t VALUES (7);
SELECT id FROM t;
`)
	if !strings.Contains(errOut, "Error:") {
		t.Errorf("expected an error line, got: %s", errOut)
	}
	if !strings.Contains(out, "| 7") {
		t.Errorf("later statements did not run:\n%s", out)
	}
}

func TestREPL_NullRendering(t *testing.T) {
	out, _ := runScript(t, `
CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER);
INSERT INTO t VALUES (1, NULL);
SELECT v FROM t;
`)
	if !strings.Contains(out, "NULL") {
		t.Errorf("null not rendered:\n%s", out)
	}
}

func TestREPL_Commands(t *testing.T) {
	out, errOut := runScript(t, `
CREATE TABLE people (id INTEGER PRIMARY KEY, name VARCHAR(10));
\tables
\d people
\h
\q
SELECT should_not_run FROM nowhere;
`)
	if strings.Contains(errOut, "should_not_run") || strings.Contains(errOut, "nowhere") {
		t.Errorf("statement after \\q ran: %s", errOut)
	}
	if !strings.Contains(out, "people") {
		t.Errorf("\\tables output missing:\n%s", out)
	}
	if !strings.Contains(out, "VARCHAR(10)") {
		t.Errorf("\\d output missing:\n%s", out)
	}
	if !strings.Contains(out, "Quit") {
		t.Errorf("\\h output missing:\n%s", out)
	}
}

func TestREPL_UnknownCommand(t *testing.T) {
	_, errOut := runScript(t, "\\nope\n")
	if !strings.Contains(errOut, "Unknown command") {
		t.Errorf("errOut = %s", errOut)
	}
}

func TestShell_IsComplete(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1 FROM t;", true},
		{"SELECT 1 FROM t", false},
		{"SELECT ';' FROM t", false},
		{"SELECT ';' FROM t;", true},
		{"SELECT 1 -- ;\nFROM t", false},
		{"INSERT INTO t VALUES ('it''s');", true},
	}
	for _, tt := range tests {
		if got := IsComplete(tt.sql); got != tt.want {
			t.Errorf("IsComplete(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestShell_ReadStatement(t *testing.T) {
	s := NewShell(strings.NewReader("SELECT 1\nFROM t;\n\\q\n"), nil, false)

	stmt, eof := s.ReadStatement()
	if eof || !strings.Contains(stmt, "FROM t;") {
		t.Errorf("statement = %q, eof = %v", stmt, eof)
	}

	cmd, _ := s.ReadStatement()
	if cmd != `\q` {
		t.Errorf("command = %q", cmd)
	}
}
