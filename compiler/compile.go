// Package compiler turns Lantern source into vm bytecode.
//
// Compilation reports every diagnostic it can find in one pass: the parser
// recovers at statement boundaries, and the code generator only runs on a
// program that parsed cleanly.
package compiler

import "github.com/chazu/lantern/vm"

// Compile parses and compiles source. It satisfies vm.CompileFunc.
func Compile(source string) (*vm.Chunk, []vm.CompileError) {
	p := NewParser(source)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs
	}

	g := NewCodeGenerator()
	chunk := g.GenerateProgram(prog)
	if errs := g.Errors(); len(errs) > 0 {
		return nil, errs
	}
	return chunk, nil
}

// Parse parses source without generating code.
func Parse(source string) (*Program, []vm.CompileError) {
	p := NewParser(source)
	prog := p.ParseProgram()
	return prog, p.Errors()
}
