package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"computeduck/internal/config"
	"computeduck/internal/driver"
	"computeduck/internal/lexer"
	"computeduck/internal/runtime"
	"computeduck/internal/token"
	"computeduck/internal/value"
)

const (
	banner     = "ComputeDuck " + version + ". Type \"clear\" to reset state, \"exit\" to quit."
	promptCont = "... "
)

func runREPL(cfg config.Config) error {
	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.REPL.History != "" {
		if f, err := os.Open(cfg.REPL.History); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	d := driver.New(cfg, runtime.DefaultEnv(), driver.WithKeepGlobals())
	line := 0
	for {
		src, ok := readStatement(ln, cfg.REPL.Prompt)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(src)
		switch trimmed {
		case "":
			continue
		case "exit", "quit":
			return saveHistory(ln, cfg.REPL.History)
		case "clear":
			d.Reset()
			log.Debug("repl state cleared")
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		line++
		if err := d.RunSource(fmt.Sprintf("<repl:%d>", line), src); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if v, err := d.VM().Deref(d.VM().StackTop()); err == nil && v.Kind != value.KindNil {
			fmt.Println(v)
		}
	}
	return saveHistory(ln, cfg.REPL.History)
}

func saveHistory(ln *liner.State, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		log.Warningf("cannot save history: %s", err)
		return nil
	}
	defer f.Close()
	_, err = ln.WriteHistory(f)
	return err
}

// readStatement reads lines until every bracket opened so far is closed.
func readStatement(ln *liner.State, prompt string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = promptCont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// ctrl-c drops the pending input
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if depth(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

func depth(src string) int {
	toks, _ := lexer.Tokenize(src)
	n := 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.LBrace, token.LParen, token.LBracket:
			n++
		case token.RBrace, token.RParen, token.RBracket:
			n--
		}
	}
	return n
}
