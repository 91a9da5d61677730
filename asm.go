package pydec

// DecodedOp is the unit of information the interpreter consumes from the
// host disassembler, per §6.1: an opcode byte, a mnemonic string, an
// immediate value (used for integer pushes, memo slots, and protocol
// versions), and — for opcodes whose payload is too large for the
// disassembler to inline into the mnemonic — a pointer/size pair to be
// re-read from the host I/O collaborator (§6.2).
type DecodedOp struct {
	// Code is the raw opcode byte.
	Code byte

	// Mnemonic is the disassembler's human-readable rendering of this
	// instruction, e.g. `binint1 1` or `string "hello"`. For the string,
	// bytes and unicode opcodes whose payload is inlined, and for GLOBAL
	// and INST, the quoted/space-separated payload is parsed out of
	// Mnemonic by the interpreter; see §4.C.
	Mnemonic string

	// Imm carries the decoded integer immediate for opcodes that push or
	// reference an integer: BININT*, LONG1/LONG4, memo slot opcodes, and
	// the PROTO version byte.
	Imm int64

	// FImm carries the decoded float immediate for FLOAT/BINFLOAT.
	FImm float64

	// Ptr and PtrSize locate a "large" string payload (PtrSize > 80 bytes)
	// in host I/O that the disassembler chose not to inline into Mnemonic.
	// PtrSize <= 80 means the payload, if any, is inline in Mnemonic.
	Ptr     int64
	PtrSize int64

	// Length is the number of bytes this instruction consumed. A
	// non-positive Length is a decode failure/premature end per §7.
	Length int
}

// Disassembler decodes one instruction at a time starting at offset. It is
// the "opcode byte decoder" collaborator §1 explicitly keeps out of this
// package's scope; asmpickle provides a reference implementation for real
// pickle byte streams.
type Disassembler interface {
	Next(offset int64) (DecodedOp, error)
}

// HostIO lets the interpreter recover the raw bytes of a "large" string
// payload a DecodedOp pointed at instead of inlining (§4.C, §6.2).
// asmpickle.New's Disassembler also satisfies HostIO over the same
// underlying buffer.
type HostIO interface {
	ReadAt(offset, size int64) ([]byte, error)
}

// LargeStringThreshold is the PtrSize above which a string/bytes/unicode
// payload is considered "large" and re-read from HostIO instead of parsed
// out of the mnemonic (§4.C). Exported so a Disassembler implementation
// in another package (asmpickle) can apply the same cutoff when deciding
// whether to inline a payload or point at it.
const LargeStringThreshold = 80
