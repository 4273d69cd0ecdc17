// Lantern CLI - runs .lan scripts, checks them, or serves them to editors
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/lantern/compiler"
	"github.com/chazu/lantern/host"
	"github.com/chazu/lantern/journal"
	"github.com/chazu/lantern/manifest"
	"github.com/chazu/lantern/server"
	"github.com/chazu/lantern/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes follow sysexits(3) the way clox-style interpreters report them.
const (
	exitOK           = 0
	exitFailure      = 1
	exitUsage        = 2
	exitCompileError = 65
	exitRuntimeError = 70
)

var log = commonlog.GetLogger("lantern.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	verbosity   int
	interactive bool
	lsp         bool
	check       bool
	dump        bool
	format      string
	journalPath string
	noColor     bool
	args        []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("lantern", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity (0 = errors only, 2 = debug)")
	fs.BoolVar(&opts.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&opts.lsp, "lsp", false, "Start language server on stdio")
	fs.BoolVar(&opts.check, "check", false, "Compile only and report diagnostics")
	fs.BoolVar(&opts.dump, "dump", false, "Print the compiled bytecode instead of running")
	fs.StringVar(&opts.format, "format", "text", "Outcome format: text or cbor")
	fs.StringVar(&opts.journalPath, "journal", "", "Record runs in this SQLite journal")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored diagnostics")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lantern [options] [script.lan]\n\n")
		fmt.Fprintf(stderr, "Runs a Lantern script. Without a script, runs the entry of the nearest\n")
		fmt.Fprintf(stderr, "%s, or starts the REPL.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lantern hello.lan                 # Run a script\n")
		fmt.Fprintf(stderr, "  lantern -check hello.lan          # Report compile errors only\n")
		fmt.Fprintf(stderr, "  lantern -format cbor hello.lan    # Emit the outcome as CBOR\n")
		fmt.Fprintf(stderr, "  lantern -i                        # Start REPL\n")
		fmt.Fprintf(stderr, "  lantern -lsp                      # Serve editors over stdio\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.args = fs.Args()

	if opts.format != "text" && opts.format != "cbor" {
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}
	if len(opts.args) > 1 {
		return nil, errors.New("at most one script may be given")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	// The manifest is looked up next to the script, or from the working
	// directory when no script is given.
	searchDir := "."
	if len(opts.args) == 1 {
		searchDir = filepath.Dir(opts.args[0])
	}
	m, err := manifest.FindAndLoad(searchDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	configureLogging(opts, m)

	// In cbor mode stdout carries only the encoded outcome, so script
	// output goes to stderr.
	scriptOut := stdout
	if opts.format == "cbor" {
		scriptOut = stderr
	}
	sessionOpts := []host.Option{host.WithOutput(scriptOut)}
	if m != nil {
		constants, err := m.Natives()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", manifest.FileName, err)
			return exitFailure
		}
		sessionOpts = append(sessionOpts, host.WithNatives(constants...))
		log.Infof("loaded manifest for %q from %s", m.Project.Name, m.Dir)
	}
	session := host.New(sessionOpts...)

	if opts.lsp {
		if err := server.NewLSP(session).Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	j, err := openJournal(opts, m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if j != nil {
		defer j.Close()
	}

	path := ""
	switch {
	case len(opts.args) == 1:
		path = opts.args[0]
	case m != nil && !opts.interactive:
		path = m.EntryPath()
	}

	if opts.interactive || path == "" {
		return runREPL(session, j, stdout, stderr, !opts.noColor)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if opts.dump {
		return dump(path, string(source), stdout, stderr, !opts.noColor)
	}

	var outcome *host.Outcome
	if opts.check {
		outcome = session.Check(string(source))
	} else {
		outcome, err = session.Interpret(string(source), nil)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	if j != nil {
		if _, err := j.Record(session.ID(), string(source), outcome); err != nil {
			log.Errorf("journal: %v", err)
		}
	}

	if opts.format == "cbor" {
		data, err := host.MarshalOutcome(outcome)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		if _, err := stdout.Write(data); err != nil {
			fmt.Fprintf(stderr, "Error: write outcome: %v\n", err)
			return exitFailure
		}
	} else if !outcome.Success() {
		fmt.Fprintln(stderr, renderOutcome(path, string(source), outcome, !opts.noColor))
	}

	return exitCode(outcome)
}

func configureLogging(opts *options, m *manifest.Manifest) {
	verbosity := opts.verbosity
	var logFile *string
	if m != nil {
		if verbosity == 0 {
			verbosity = m.Log.Verbosity
		}
		logFile = m.LogFile()
	}
	commonlog.Configure(verbosity, logFile)
}

// openJournal opens the journal named by -journal, or the manifest's when it
// is enabled there. Returns nil when journaling is off.
func openJournal(opts *options, m *manifest.Manifest) (*journal.Journal, error) {
	path := opts.journalPath
	if path == "" && m != nil && m.Journal.Enabled {
		path = m.JournalPath()
	}
	if path == "" {
		return nil, nil
	}
	return journal.Open(path)
}

func dump(path, source string, stdout, stderr io.Writer, withColor bool) int {
	chunk, errs := compiler.Compile(source)
	if len(errs) > 0 {
		outcome := host.OutcomeFromCompileErrors(errs)
		fmt.Fprintln(stderr, renderOutcome(path, source, outcome, withColor))
		return exitCompileError
	}
	fmt.Fprint(stdout, vm.Disassemble(chunk, filepath.Base(path)))
	return exitOK
}

func exitCode(outcome *host.Outcome) int {
	switch outcome.Kind() {
	case vm.ResultCompileError:
		return exitCompileError
	case vm.ResultRuntimeError:
		return exitRuntimeError
	}
	return exitOK
}
