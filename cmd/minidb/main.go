// cmd/minidb/main.go
//
// minidb - interactive SQL shell for minidb databases.
//
// Usage:
//
//	minidb [--data-dir dir] [--config minidb.yml]
//
// Reads SQL statements terminated by ';' from stdin. Use \h for help.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/Abogeerick/minidb-complete-project/pkg/cli"
	"github.com/Abogeerick/minidb-complete-project/pkg/config"
	"github.com/Abogeerick/minidb-complete-project/pkg/minidb"
)

var version = "0.1.0"

func main() {
	var opts struct {
		DataDir string `short:"d" long:"data-dir" description:"Data directory" value-name:"dir"`
		Config  string `short:"c" long:"config" description:"YAML config file" value-name:"file" default:"minidb.yml"`
		Help    bool   `long:"help" description:"Show this help"`
		Version bool   `long:"version" description:"Show this version"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	db, err := minidb.OpenWithOptions(cfg.DataDir, minidb.Options{BTreeDegree: cfg.BTreeDegree})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	repl := cli.NewREPL(db, os.Stdin, os.Stdout, os.Stderr, interactive)
	repl.SetPrompt(cfg.Prompt)
	repl.Run()
}
