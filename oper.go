package pydec

// OpKind identifies which opcode an Oper records the effect of, per §3.2.
type OpKind uint8

const (
	OpFakeInit OpKind = iota
	OpReduce
	OpBuild
	OpNewobj
	OpNewobjEx
	OpAppend
	OpAppends
	OpSetitem
	OpSetitems
	OpAdditems
	OpInst
	OpObj
)

func opToName(op OpKind) string {
	switch op {
	case OpFakeInit:
		return "FAKE_INIT"
	case OpReduce:
		return "REDUCE"
	case OpBuild:
		return "BUILD"
	case OpNewobj:
		return "NEWOBJ"
	case OpNewobjEx:
		return "NEWOBJ_EX"
	case OpAppend:
		return "APPEND"
	case OpAppends:
		return "APPENDS"
	case OpSetitem:
		return "SETITEM"
	case OpSetitems:
		return "SETITEMS"
	case OpAdditems:
		return "ADDITEMS"
	case OpInst:
		return "INST"
	case OpObj:
		return "OBJ"
	default:
		return "UNKNOWN_OP"
	}
}

// Oper records one opcode's effect on a What, per §3.2: the opcode, the
// arguments it consumed (oldest first), and bookkeeping shared with Obj.
type Oper struct {
	Op     OpKind
	Stack  []*Obj
	Offset int64
	Refcnt int
}

func newOper(op OpKind, offset int64) *Oper {
	return &Oper{Op: op, Offset: offset, Refcnt: 1}
}

// upgradeToWhat wraps obj in a new KindWhat object if obj isn't one already,
// synthesizing the mandatory first FAKE_INIT operation (§3.3: "The first
// Oper is always synthesized as FAKE_INIT whose single argument is the
// pre-upgrade object"). The caller is responsible for replacing whatever
// slot held obj (stack top, container element, ...) with the returned
// value — any other reference to the pre-upgrade obj (e.g. an existing
// memo entry) intentionally keeps pointing at the un-upgraded value, the
// same way stack_top_to_what-style upgrades work.
func upgradeToWhat(offset int64, obj *Obj) *Obj {
	if obj.Kind == KindWhat {
		return obj
	}

	init := newOper(OpFakeInit, offset)
	init.Stack = []*Obj{obj}

	what := newObj(KindWhat, offset)
	what.Ops = []*Oper{init}
	return what
}
