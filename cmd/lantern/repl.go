package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/lantern/host"
	"github.com/chazu/lantern/journal"
)

const (
	historyFile = ".lantern_history"
	promptMain  = ">> "
	promptCont  = ".. "
)

// runREPL reads and runs one entry at a time. Each entry is a separate run:
// variables do not carry over between entries.
func runREPL(session *host.Session, j *journal.Journal, stdout, stderr io.Writer, withColor bool) int {
	fmt.Fprintln(stdout, "Lantern REPL (type :quit to exit, :help for commands)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := readEntry(ln, session)
		if !ok {
			fmt.Fprintln(stdout)
			return exitOK
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if !replCommand(session, trimmed, stdout) {
				return exitOK
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		outcome, err := session.Interpret(code, nil)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		if j != nil {
			if _, err := j.Record(session.ID(), code, outcome); err != nil {
				log.Errorf("journal: %v", err)
			}
		}
		if !outcome.Success() {
			fmt.Fprintln(stderr, renderOutcome("<repl>", code, outcome, withColor))
		}
	}
}

// readEntry reads lines until they form a complete entry. Input that only
// fails at end of input, such as an unclosed block, asks for another line;
// an empty line submits whatever has been typed.
func readEntry(ln *liner.State, session *host.Session) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(session.Check(src)) {
			return src, true
		}
	}
}

// incomplete reports whether every compile error is at end of input.
func incomplete(outcome *host.Outcome) bool {
	errs := outcome.CompileErrors()
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !strings.HasSuffix(e.Message, " at end") {
			return false
		}
	}
	return true
}

// replCommand handles a meta-command. Returns false to leave the REPL.
func replCommand(session *host.Session, cmd string, stdout io.Writer) bool {
	switch cmd {
	case ":quit", ":q":
		return false
	case ":help", ":h", ":?":
		fmt.Fprintln(stdout, "REPL Commands:")
		fmt.Fprintln(stdout, "  :help, :h, :?     Show this help")
		fmt.Fprintln(stdout, "  :natives          List native functions")
		fmt.Fprintln(stdout, "  :session          Show the session id")
		fmt.Fprintln(stdout, "  :quit, :q         Exit REPL")
	case ":natives":
		for _, n := range session.Natives() {
			fmt.Fprintf(stdout, "  %-16s %d\n", n.Name, n.Arity)
		}
	case ":session":
		fmt.Fprintln(stdout, session.ID())
	default:
		fmt.Fprintf(stdout, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return true
}
