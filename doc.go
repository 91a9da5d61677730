// Package pydec decompiles a Python pickle opcode stream into the object
// graph it would produce, without ever invoking any of the code a pickle
// names.
//
// A pickle is a program for a small stack machine: opcodes push scalars,
// build collections, memoize values for later reuse, and — crucially —
// apply constructor-like operations (REDUCE, BUILD, NEWOBJ, ...) to values
// whose class this package cannot know anything about. pydec models that
// last case explicitly as an "opaque" object (Obj of kind KindWhat): a
// value under construction, recorded as an ordered list of operations
// rather than as a faithfully-typed Go value.
//
// pydec does not decode raw pickle bytes itself. It consumes already
// decoded operations through the Disassembler interface (see asm.go),
// mirroring the split radare2's r2pickledec plugin makes between byte
// decoding (owned by the analysis engine) and semantic reconstruction
// (owned by this package). The asmpickle subpackage provides a reference
// Disassembler implementation over raw pickle byte streams, used by this
// package's own tests and by cmd/pydec.
//
// Typical use:
//
//	asm := asmpickle.New(data)
//	vm, err := pydec.NewInterpreter(asm, pydec.Config{Arch: "pickle"}, pydec.WithHostIO(asm))
//	if err != nil {
//		...
//	}
//	if err := vm.Run(); err != nil {
//		...
//	}
//	out, err := pydec.RenderPseudocode(vm.State(), pydec.RenderOptions{})
//
// See RenderJSON for the structured-tree sibling of RenderPseudocode.
package pydec
