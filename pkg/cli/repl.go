// pkg/cli/repl.go
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Abogeerick/minidb-complete-project/pkg/minidb"
)

// REPL is the interactive shell: it reads statements, executes them
// against the database, prints results as ASCII tables, and keeps going
// after errors.
type REPL struct {
	db        *minidb.Database
	shell     *Shell
	output    io.Writer
	errOutput io.Writer

	// interactive enables the banner and prompts
	interactive bool

	// exitRequested is set by the \q command
	exitRequested bool
}

// NewREPL creates a REPL over an open database and the given streams
func NewREPL(db *minidb.Database, input io.Reader, output, errOutput io.Writer, interactive bool) *REPL {
	if errOutput == nil {
		errOutput = output
	}
	return &REPL{
		db:          db,
		shell:       NewShell(input, output, interactive),
		output:      output,
		errOutput:   errOutput,
		interactive: interactive,
	}
}

// SetPrompt changes the shell prompt
func (r *REPL) SetPrompt(prompt string) {
	r.shell.SetPrompt(prompt)
}

// Run reads and executes statements until EOF or \q
func (r *REPL) Run() {
	if r.interactive {
		fmt.Fprintln(r.output, "minidb shell")
		fmt.Fprintln(r.output, `Enter SQL terminated by ';', or \h for help.`)
	}

	for !r.exitRequested {
		stmt, eof := r.shell.ReadStatement()

		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			if strings.HasPrefix(stmt, "\\") {
				r.handleCommand(stmt)
			} else if err := r.ExecuteStatement(stmt); err != nil {
				r.printError(err)
			}
		}

		if eof {
			if r.interactive {
				fmt.Fprintln(r.output)
			}
			break
		}
	}
}

// ExecuteStatement executes one SQL statement and displays the result
func (r *REPL) ExecuteStatement(sql string) error {
	result, err := r.db.Execute(sql)
	if err != nil {
		return err
	}
	r.displayResult(result)
	return nil
}

// handleCommand processes backslash commands
func (r *REPL) handleCommand(cmd string) {
	parts := strings.Fields(cmd)

	switch parts[0] {
	case `\q`:
		r.exitRequested = true
	case `\h`:
		r.printHelp()
	case `\tables`:
		if err := r.ExecuteStatement("SHOW TABLES"); err != nil {
			r.printError(err)
		}
	case `\d`:
		if len(parts) < 2 {
			fmt.Fprintln(r.errOutput, `Usage: \d <table>`)
			return
		}
		if err := r.ExecuteStatement("DESCRIBE " + parts[1]); err != nil {
			r.printError(err)
		}
	default:
		fmt.Fprintf(r.errOutput, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(r.errOutput, `Use \h for help.`)
	}
}

// printHelp displays usage hints
func (r *REPL) printHelp() {
	help := `
\q             Quit
\h             Show this help message
\tables        List tables (same as SHOW TABLES)
\d <table>     Describe a table (same as DESCRIBE)

Enter SQL statements terminated with a semicolon.
Multi-line statements are supported.
`
	fmt.Fprintln(r.output, help)
}

// displayResult renders a result: a table for row sets, a row count for
// mutations
func (r *REPL) displayResult(result *minidb.Result) {
	if result == nil {
		return
	}
	if len(result.Columns) == 0 {
		fmt.Fprintf(r.output, "%s (%d row(s) affected)\n", result.Status, result.Affected)
		return
	}
	r.displayTable(result.Columns, result.Rows)
}

// displayTable formats rows as an ASCII table
func (r *REPL) displayTable(columns []string, rows []map[string]interface{}) {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, col := range columns {
			if s := formatValue(row[col]); len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	r.printSeparator(widths)
	header := make([]string, len(columns))
	copy(header, columns)
	r.printRow(header, widths)
	r.printSeparator(widths)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatValue(row[col])
		}
		r.printRow(cells, widths)
	}
	r.printSeparator(widths)
	fmt.Fprintf(r.output, "%d row(s)\n", len(rows))
}

// printSeparator prints a horizontal line
func (r *REPL) printSeparator(widths []int) {
	fmt.Fprint(r.output, "+")
	for _, w := range widths {
		fmt.Fprint(r.output, strings.Repeat("-", w+2))
		fmt.Fprint(r.output, "+")
	}
	fmt.Fprintln(r.output)
}

// printRow prints one table row
func (r *REPL) printRow(cells []string, widths []int) {
	fmt.Fprint(r.output, "|")
	for i, cell := range cells {
		fmt.Fprintf(r.output, " %-*s |", widths[i], cell)
	}
	fmt.Fprintln(r.output)
}

// formatValue converts a result value to its display form
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// printError prints the error and resumes at the next prompt
func (r *REPL) printError(err error) {
	fmt.Fprintf(r.errOutput, "Error: %v\n", err)
}
