package pydec

import "fmt"

// Kind tags the variant a reconstructed Obj holds. See §3.1 of the design:
// bytearray, bytes, and unicode from the source pickle all collapse into
// KindStr; every integer width collapses into KindInt.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindTuple
	KindList
	KindSet
	KindFrozenSet
	KindDict
	KindFunc
	KindWhat
	KindSplit
)

func (k Kind) String() string {
	return typeToName(k)
}

// typeToName gives the diagnostic name for a Kind, used (via Kind.String)
// in the JSON "type" field, render error messages and RenderDiagnostic.
func typeToName(k Kind) string {
	switch k {
	case KindNone:
		return "NONE"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindStr:
		return "STR"
	case KindTuple:
		return "TUPLE"
	case KindList:
		return "LIST"
	case KindSet:
		return "SET"
	case KindFrozenSet:
		return "FROZEN_SET"
	case KindDict:
		return "DICT"
	case KindFunc:
		return "FUNC"
	case KindWhat:
		return "WHAT"
	case KindSplit:
		return "SPLIT"
	default:
		return "UNKNOWN"
	}
}

// hasDepth reports whether a Kind's objects can contain other objects, and
// so must be visited by the split pass and by cycle-breaking traversals.
func hasDepth(k Kind) bool {
	switch k {
	case KindTuple, KindList, KindSet, KindFrozenSet, KindDict, KindWhat, KindSplit:
		return true
	default:
		return false
	}
}

// noMemoID marks an Obj that has never been stored in the memo table.
const noMemoID int64 = -1

// Obj is a tagged reconstruction of a single Python value (or, for
// KindWhat, of a value whose construction is only partially understood).
//
// Obj is shared by reference: the same *Obj may be reachable from the main
// stack, the memo table, an enclosing container, and an enclosing What's
// operation history simultaneously, per §3.5. refcnt tracks exactly how
// many of those reachability paths exist; it exists for diagnostics and for
// the free passes in state.go, not for correctness — the Go garbage
// collector reclaims the graph regardless.
type Obj struct {
	Kind Kind

	Offset  int64  // byte offset in the source pickle this value came from
	MemoID  int64  // memo slot that last stored this object, or noMemoID
	Refcnt  int
	Varname string // cached once a renderer assigns one; sticky afterward
	recurse uint64 // generation counter for cycle-breaking traversals

	// scalars
	Bool  bool
	Int   int64
	Float float64
	Str   []byte // KindStr payload; also backs KindFunc's Module/Name

	// containers: Tuple/List/Set/FrozenSet hold elements in Items;
	// Dict holds a flat, even-length [k0, v0, k1, v1, ...] in Items.
	Items []*Obj

	// KindFunc
	FuncModule *Obj
	FuncName   *Obj

	// KindWhat
	Ops []*Oper

	// KindSplit: references the Oper whose argument tuple this split
	// sits inside of. Never user-visible; purely a rendering aid.
	SplitAt *Oper
}

// newObj allocates a bare Obj of the given kind at the current interpreter
// offset, with an unset memo id.
func newObj(kind Kind, offset int64) *Obj {
	return &Obj{Kind: kind, Offset: offset, MemoID: noMemoID, Refcnt: 1}
}

func newNone(offset int64) *Obj  { return newObj(KindNone, offset) }
func newSplit(offset int64, at *Oper) *Obj {
	o := newObj(KindSplit, offset)
	o.SplitAt = at
	return o
}

func newBool(offset int64, v bool) *Obj {
	o := newObj(KindBool, offset)
	o.Bool = v
	return o
}

func newInt(offset int64, v int64) *Obj {
	o := newObj(KindInt, offset)
	o.Int = v
	return o
}

func newFloat(offset int64, v float64) *Obj {
	o := newObj(KindFloat, offset)
	o.Float = v
	return o
}

func newStr(offset int64, v []byte) *Obj {
	o := newObj(KindStr, offset)
	o.Str = v
	return o
}

func newIter(kind Kind, offset int64) *Obj {
	if !hasDepth(kind) || kind == KindWhat || kind == KindSplit {
		panic(fmt.Sprintf("pydec: newIter called with non-iterable kind %v", kind))
	}
	o := newObj(kind, offset)
	o.Items = nil
	return o
}

func newFunc(offset int64, module, name *Obj) *Obj {
	o := newObj(KindFunc, offset)
	o.FuncModule = module
	o.FuncName = name
	return o
}

// incref records one more live reference to obj and returns it, mirroring
// the C source's obj_stack_peek(..., dup=true)/op_dup pattern of bumping
// the refcount at the point a reference is duplicated.
func incref(obj *Obj) *Obj {
	if obj != nil {
		obj.Refcnt++
	}
	return obj
}

// IsOpaque reports whether obj has already been upgraded to KindWhat.
func (o *Obj) IsOpaque() bool {
	return o != nil && o.Kind == KindWhat
}
