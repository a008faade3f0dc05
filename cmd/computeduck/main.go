package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"computeduck/internal/config"
	"computeduck/internal/driver"
	"computeduck/internal/ir"
	"computeduck/internal/runtime"
)

const version = "0.1.0"

var log = commonlog.GetLogger("computeduck.cli")

func main() {
	flags := flag.NewFlagSet("computeduck", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	configPath := flags.String("config", config.FileName, "config file")
	verbosity := flags.Int("v", -1, "log verbosity (overrides [log] verbosity)")
	flags.Usage = usage
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	configureLog(cfg.Log)

	args := flags.Args()
	if len(args) == 0 {
		if err := runREPL(cfg); err != nil {
			fail(err)
		}
		return
	}

	cmd := args[0]
	switch cmd {
	case "run":
		err = cmdRun(cfg, args[1:])
	case "build":
		err = cmdBuild(cfg, args[1:])
	case "exec":
		err = cmdExec(cfg, args[1:])
	case "disasm":
		err = cmdDisasm(cfg, args[1:])
	case "repl":
		err = runREPL(cfg)
	case "help", "-h", "--help":
		usage()
	case "version", "--version":
		fmt.Println("computeduck", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func configureLog(c config.Log) {
	var path *string
	if c.File != "" {
		path = &c.File
	}
	commonlog.Configure(c.Verbosity, path)
}

func usage() {
	fmt.Println(`ComputeDuck language CLI

Usage:
  computeduck [-config file] [-v n] <command> [arguments]

Commands:
  run      Compile and run a source file
  build    Compile a source file into a bytecode file
  exec     Run a bytecode file
  disasm   Print the instructions of a source or bytecode file
  repl     Start an interactive session (default with no command)
  version  Print the version

Flags (build):
  -o       Output file name (default: <input> with the [build] output extension)`)
}

// -------------- RUN --------------

func cmdRun(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("run: missing input file")
	}
	d := driver.New(cfg, runtime.DefaultEnv())
	return d.RunFile(args[0])
}

// -------------- BUILD --------------

func cmdBuild(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var out string
	fs.StringVar(&out, "o", "", "output file (default: <input>"+cfg.Build.Output+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("build: missing input file")
	}
	input := fs.Arg(0)
	if isBytecode(cfg, input) {
		return fmt.Errorf("build: %s is already bytecode", input)
	}
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + cfg.Build.Output
	}

	d := driver.New(cfg, runtime.DefaultEnv())
	u, err := d.CompileFile(input)
	if err != nil {
		return err
	}
	if err := ir.WriteUnitToFile(out, u); err != nil {
		return fmt.Errorf("failed to write bytecode: %w", err)
	}
	log.Infof("wrote %s (unit %s)", out, u.ID)
	return nil
}

// -------------- EXEC --------------

func cmdExec(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("exec: missing bytecode file")
	}
	u, err := ir.ReadUnitFromFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read bytecode: %w", err)
	}
	// builtins are looked up by name, dllimport reloads modules at run time
	d := driver.New(cfg, runtime.DefaultEnv())
	return d.Exec(u)
}

// -------------- DISASM --------------

func cmdDisasm(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("disasm: missing input file")
	}
	input := args[0]

	var u *ir.Unit
	var err error
	if isBytecode(cfg, input) {
		u, err = ir.ReadUnitFromFile(input)
	} else {
		u, err = driver.New(cfg, runtime.DefaultEnv()).CompileFile(input)
	}
	if err != nil {
		return err
	}
	fmt.Printf("; unit %s from %s\n", u.ID, u.Source)
	ir.Disassemble(os.Stdout, u.Main)
	return nil
}

func isBytecode(cfg config.Config, path string) bool {
	return cfg.Build.Output != "" && filepath.Ext(path) == cfg.Build.Output
}
