package pydec

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for conditions with no useful extra context, analogous to
// og-rek's errNotImplemented/errStackUnderflow/errNoMarker.
var (
	errStackUnderflow = errors.New("pydec: stack underflow")
	errNoMarker       = errors.New("pydec: no marker in metastack")
	errMemoMiss       = errors.New("pydec: memo slot not found")
	errOddDict        = errors.New("pydec: dict close with odd number of stack items")
	errNotImplemented = errors.New("pydec: unimplemented opcode")
	errStop           = errors.New("pydec: STOP reached")
)

// ConfigError reports a problem with the Config passed to NewInterpreter —
// §7's "Configuration" error kind. The sole instance today is an
// asm.arch mismatch (§6.4).
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "pydec: configuration: " + e.Msg }

// DecodeError reports the disassembler collaborator misbehaving: returning
// a non-positive length, or an opcode byte pydec has no handler for at all
// (§7's "Decode" error kind).
type DecodeError struct {
	Offset   int64
	Mnemonic string
	Code     byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pydec: decode error at offset 0x%x (opcode %#02x %q)", e.Offset, e.Code, e.Mnemonic)
}

// HandlerError reports an opcode handler failing against otherwise
// well-formed input: wrong type at a stack position, missing mark, odd
// dict length, unimplemented-but-recognized opcode, arity mismatch
// (§7's "Handler" error kind). Cause, when set, is the underlying sentinel
// (errStackUnderflow, errNoMarker, errOddDict, errNotImplemented, ...).
type HandlerError struct {
	Offset   int64
	Mnemonic string
	Cause    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("pydec: handler error at offset 0x%x (%s): %s", e.Offset, e.Mnemonic, e.Cause)
}

func (e *HandlerError) Unwrap() error { return e.Cause }

func wrapHandler(offset int64, mnemonic string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(&HandlerError{Offset: offset, Mnemonic: mnemonic, Cause: cause})
}

// RenderError reports the pseudocode or JSON renderer giving up — either a
// buffer append failing (§7's "Render" error kind, theoretical for the
// in-memory strings.Builder/bytes.Buffer backing pydec's renderers, but kept
// for parity with the append-can-fail original) or an unrenderable graph
// shape, such as a REDUCE/NEWOBJ argument that isn't a Tuple.
type RenderError struct {
	Msg string
}

func (e *RenderError) Error() string { return "pydec: render: " + e.Msg }
