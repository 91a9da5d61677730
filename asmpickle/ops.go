package asmpickle

// Opcode bytes, kept in lockstep with pydec's own (unexported) table since
// this package owns byte-level decoding and pydec only dispatches on the
// values it's handed. Names mirror pickletools.py.
const (
	opMark    byte = '('
	opStop    byte = '.'
	opPop     byte = '0'
	opPopMark byte = '1'
	opDup     byte = '2'
	opFloat   byte = 'F'
	opInt     byte = 'I'
	opLong    byte = 'L'
	opNone    byte = 'N'
	opPersid  byte = 'P'
	opReduce  byte = 'R'
	opString  byte = 'S'
	opUnicode byte = 'V'
	opAppend  byte = 'a'
	opBuild   byte = 'b'
	opGlobal  byte = 'c'
	opDict    byte = 'd'
	opGet     byte = 'g'
	opInst    byte = 'i'
	opList    byte = 'l'
	opPut     byte = 'p'
	opSetitem byte = 's'
	opTuple   byte = 't'

	opBinint         byte = 'J'
	opBinint1        byte = 'K'
	opBinint2        byte = 'M'
	opBinpersid      byte = 'Q'
	opBinstring      byte = 'T'
	opShortBinstring byte = 'U'
	opBinunicode     byte = 'X'
	opAppends        byte = 'e'
	opBinget         byte = 'h'
	opLongBinget     byte = 'j'
	opEmptyList      byte = ']'
	opEmptyTuple     byte = ')'
	opEmptyDict      byte = '}'
	opObj            byte = 'o'
	opBinput         byte = 'q'
	opLongBinput     byte = 'r'
	opSetitems       byte = 'u'
	opBinfloat       byte = 'G'

	opProto    byte = '\x80'
	opNewobj   byte = '\x81'
	opExt1     byte = '\x82'
	opExt2     byte = '\x83'
	opExt4     byte = '\x84'
	opTuple1   byte = '\x85'
	opTuple2   byte = '\x86'
	opTuple3   byte = '\x87'
	opNewtrue  byte = '\x88'
	opNewfalse byte = '\x89'
	opLong1    byte = '\x8a'
	opLong4    byte = '\x8b'

	opBinbytes      byte = 'B'
	opShortBinbytes byte = 'C'

	opShortBinUnicode byte = '\x8c'
	opBinunicode8     byte = '\x8d'
	opBinbytes8       byte = '\x8e'
	opEmptySet        byte = '\x8f'
	opAdditems        byte = '\x90'
	opFrozenset       byte = '\x91'
	opNewobjEx        byte = '\x92'
	opStackGlobal     byte = '\x93'
	opMemoize         byte = '\x94'
	opFrame           byte = '\x95'

	opBytearray8     byte = '\x96'
	opNextBuffer     byte = '\x97'
	opReadonlyBuffer byte = '\x98'
)

// opName gives the lowercase mnemonic name pydec's mnemonic parsing
// expects as the first field (opGlobal and opInst strip a leading
// "global"/"inst" when the payload is not quoted).
func opName(code byte) string {
	switch code {
	case opMark:
		return "mark"
	case opStop:
		return "stop"
	case opPop:
		return "pop"
	case opPopMark:
		return "pop_mark"
	case opDup:
		return "dup"
	case opFloat:
		return "float"
	case opInt:
		return "int"
	case opLong:
		return "long"
	case opNone:
		return "none"
	case opPersid:
		return "persid"
	case opReduce:
		return "reduce"
	case opString:
		return "string"
	case opUnicode:
		return "unicode"
	case opAppend:
		return "append"
	case opBuild:
		return "build"
	case opGlobal:
		return "global"
	case opDict:
		return "dict"
	case opGet:
		return "get"
	case opInst:
		return "inst"
	case opList:
		return "list"
	case opPut:
		return "put"
	case opSetitem:
		return "setitem"
	case opTuple:
		return "tuple"
	case opBinint:
		return "binint"
	case opBinint1:
		return "binint1"
	case opBinint2:
		return "binint2"
	case opBinpersid:
		return "binpersid"
	case opBinstring:
		return "binstring"
	case opShortBinstring:
		return "short_binstring"
	case opBinunicode:
		return "binunicode"
	case opAppends:
		return "appends"
	case opBinget:
		return "binget"
	case opLongBinget:
		return "long_binget"
	case opEmptyList:
		return "empty_list"
	case opEmptyTuple:
		return "empty_tuple"
	case opEmptyDict:
		return "empty_dict"
	case opObj:
		return "obj"
	case opBinput:
		return "binput"
	case opLongBinput:
		return "long_binput"
	case opSetitems:
		return "setitems"
	case opBinfloat:
		return "binfloat"
	case opProto:
		return "proto"
	case opNewobj:
		return "newobj"
	case opExt1:
		return "ext1"
	case opExt2:
		return "ext2"
	case opExt4:
		return "ext4"
	case opTuple1:
		return "tuple1"
	case opTuple2:
		return "tuple2"
	case opTuple3:
		return "tuple3"
	case opNewtrue:
		return "newtrue"
	case opNewfalse:
		return "newfalse"
	case opLong1:
		return "long1"
	case opLong4:
		return "long4"
	case opBinbytes:
		return "binbytes"
	case opShortBinbytes:
		return "short_binbytes"
	case opShortBinUnicode:
		return "short_binunicode"
	case opBinunicode8:
		return "binunicode8"
	case opBinbytes8:
		return "binbytes8"
	case opEmptySet:
		return "empty_set"
	case opAdditems:
		return "additems"
	case opFrozenset:
		return "frozenset"
	case opNewobjEx:
		return "newobj_ex"
	case opStackGlobal:
		return "stack_global"
	case opMemoize:
		return "memoize"
	case opFrame:
		return "frame"
	case opBytearray8:
		return "bytearray8"
	case opNextBuffer:
		return "next_buffer"
	case opReadonlyBuffer:
		return "readonly_buffer"
	default:
		return "unknown"
	}
}
