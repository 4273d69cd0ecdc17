package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/chazu/lantern/host"
)

// renderOutcome renders a failed outcome for a terminal. Compile errors get
// one block each, of the form:
//
//	error: <message>
//	  --> <file>:<line>:<column>
//	   |
//	 2 | <offending line of source code>
//	   |     ^^^
//
// A successful outcome renders as the empty string.
func renderOutcome(file, source string, outcome *host.Outcome, withColor bool) string {
	color.NoColor = !withColor

	lines := strings.Split(source, "\n")

	if msg := outcome.RuntimeError(); msg != "" {
		return renderRuntimeError(file, lines, msg, outcome.RuntimeLine())
	}

	var blocks []string
	for _, e := range outcome.CompileErrors() {
		blocks = append(blocks, renderCompileError(file, lines, e))
	}
	return strings.Join(blocks, "\n\n")
}

func renderCompileError(file string, lines []string, e host.CompileError) string {
	redBold := color.New(color.FgRed, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	gutter := strings.Repeat(" ", len(fmt.Sprintf("%d", e.Line)))

	text := ""
	if e.Line >= 1 && int(e.Line) <= len(lines) {
		text = strings.TrimRight(lines[e.Line-1], "\r")
	}

	start := int(e.Start)
	if start > len(text) {
		start = len(text)
	}
	end := start + int(e.Len)
	if end > len(text) {
		end = len(text)
	}
	width := utf8.RuneCountInString(text[start:end])
	if width < 1 {
		width = 1
	}

	out := []string{
		redBold("error:") + " " + e.Message,
		fmt.Sprintf(" %s%s %s:%d:%d", gutter, blue("-->"), file, e.Line, e.Start+1),
		blue(fmt.Sprintf(" %s |", gutter)),
		blue(fmt.Sprintf(" %d |", e.Line)) + " " + text,
		blue(fmt.Sprintf(" %s |", gutter)) + " " + indent(text[:start]) + red(strings.Repeat("^", width)),
	}
	return strings.Join(out, "\n")
}

// renderRuntimeError shows the fault with the line it happened on, when
// that line is known.
func renderRuntimeError(file string, lines []string, msg string, line uint) string {
	redBold := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	header := redBold("runtime error:") + " " + msg
	if line == 0 || int(line) > len(lines) {
		return fmt.Sprintf("%s\n  %s %s", header, blue("-->"), file)
	}

	gutter := strings.Repeat(" ", len(fmt.Sprintf("%d", line)))
	out := []string{
		header,
		fmt.Sprintf(" %s%s %s:%d", gutter, blue("-->"), file, line),
		blue(fmt.Sprintf(" %s |", gutter)),
		blue(fmt.Sprintf(" %d |", line)) + " " + strings.TrimRight(lines[line-1], "\r"),
	}
	return strings.Join(out, "\n")
}

// indent returns blank space as wide as prefix, keeping tabs so the caret
// lines up with the source above it.
func indent(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
