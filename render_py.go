package pydec

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderOptions tunes RenderPseudocode. Verbose mirrors the anal.verbose
// config knob (§6.4): when set, RenderDiagnostic's banner is folded into
// the pseudocode output instead of needing a separate call.
type RenderOptions struct {
	Verbose bool
}

// printInfo is pydec's PrintInfo: the renderer's running state across one
// RenderPseudocode call. Object naming is lazy and sticky — nameFor
// never renames an object once it has printed once — and shared or
// cyclic values get hoisted out of the expression they'd otherwise sit
// inside into a preceding `var_N = ...` line, accumulated in pending and
// flushed in the depth-first order they were discovered (innermost
// dependency first).
type printInfo struct {
	state *State
	opts  RenderOptions

	pending  []string
	declared map[*Obj]bool
	cyclic   map[*Obj]bool
	varid    int
	gen      uint64

	operOwner map[*Oper]*Obj

	// deferred holds statements for items appended to a container after
	// a Split marker tagging op, queued here until renderWhat finishes
	// emitting op's own statement and flushes them immediately after it.
	deferred map[*Oper][]string

	// reservedVarIDs holds every memo slot in use at render time, so the
	// anonymous var_<varid++> counter can skip numbers a memoized object
	// is entitled to use as its var_<memo_id> name instead.
	reservedVarIDs map[int64]bool
}

// RenderPseudocode renders the machine's final stack as Python-like
// pseudocode, bottom to top, with the topmost stack element emitted as a
// `return` statement — the usual shape of a fully-reduced pickle, whose
// single remaining stack item is the unpickled value (§4.D).
func RenderPseudocode(state *State, opts RenderOptions) (string, error) {
	pi := &printInfo{
		state:     state,
		opts:      opts,
		declared:  make(map[*Obj]bool),
		cyclic:    make(map[*Obj]bool),
		operOwner: buildOperOwners(state),
		deferred:  make(map[*Oper][]string),
	}
	pi.gen = state.nextGeneration()
	pi.reservedVarIDs = make(map[int64]bool, len(state.Memo()))
	for slot := range state.Memo() {
		pi.reservedVarIDs[slot] = true
	}

	var body strings.Builder
	if opts.Verbose {
		body.WriteString(RenderDiagnostic(state))
	}

	stack := state.Stack()
	for i, obj := range stack {
		pi.pending = nil
		expr, err := pi.renderValue(obj)
		if err != nil {
			return "", err
		}
		for _, line := range pi.pending {
			body.WriteString(line)
		}
		switch {
		case i == len(stack)-1:
			body.WriteString("return " + expr + "\n")
		case obj == nil:
			// A bare nil slot has no identity to name; nothing in the
			// interpreter actually pushes one, this is a defensive fallback.
			body.WriteString("_ = " + expr + "\n")
		case obj.Varname == expr:
			// renderValue already resolved this to a name — either it was
			// hoisted just now (its `name = ...`/incremental-build lines
			// are already in pending, drained above) or it was named
			// earlier elsewhere in the graph. Either way there's nothing
			// left to assign here, just an optional verbose note.
			if opts.Verbose {
				fmt.Fprintf(&body, "# %s previously declared\n", expr)
			}
		default:
			name := pi.nameFor(obj)
			body.WriteString(name + " = " + expr + "\n")
		}
	}
	if len(stack) == 0 {
		body.WriteString("return None\n")
	}
	return body.String(), nil
}

// buildOperOwners indexes every What's Opers by pointer, so a stray
// KindSplit marker reached outside the split-aware container paths
// (renderList/renderDict/emitSplitAwareItems, which handle the normal
// case of a marker sitting inside a container's own Items) can still
// resolve back to the What whose Oper it tags instead of erroring blind.
func buildOperOwners(state *State) map[*Oper]*Obj {
	owners := make(map[*Oper]*Obj)
	gen := state.nextGeneration()
	var visit func(obj *Obj)
	visit = func(obj *Obj) {
		if obj == nil || obj.recurse == gen {
			return
		}
		obj.recurse = gen
		if obj.Kind == KindWhat {
			for _, op := range obj.Ops {
				owners[op] = obj
				for _, child := range op.Stack {
					visit(child)
				}
			}
			return
		}
		if !hasDepth(obj.Kind) {
			return
		}
		for _, child := range obj.Items {
			visit(child)
		}
	}
	for _, o := range state.stack {
		visit(o)
	}
	for _, o := range state.popstack {
		visit(o)
	}
	for _, o := range state.memo {
		visit(o)
	}
	return owners
}

func (pi *printInfo) nameFor(obj *Obj) string {
	if obj.Varname != "" {
		return obj.Varname
	}
	var name string
	if obj.MemoID != noMemoID {
		name = fmt.Sprintf("var_%d", obj.MemoID)
	} else {
		// Run empties the memo table at STOP, so every slot below
		// memoCount stays reserved for a var_<memo id> name here.
		if int64(pi.varid) < pi.state.memoCount {
			pi.varid = int(pi.state.memoCount)
		}
		for pi.reservedVarIDs[int64(pi.varid)] {
			pi.varid++
		}
		name = fmt.Sprintf("var_%d", pi.varid)
		pi.varid++
	}
	obj.Varname = name
	return name
}

// isShared reports whether obj has more than one surviving reference by
// the time rendering starts. MemoID alone isn't enough: Run's clean-STOP
// path already shallow-frees the memo, which undoes the refcount bump
// memoPut made, so a value that was memoized but never actually fetched
// back out (no GET ever ran) settles back to a refcount of 1 and prints
// inline rather than as a named variable.
func isShared(obj *Obj) bool {
	return obj.Refcnt > 1
}

// renderValue is the single entry point every recursive call goes
// through: it handles already-declared references, in-progress cycles,
// and the decision whether this particular object needs hoisting into
// its own `var_N = ...` line before returning a name rather than an
// inline expression.
func (pi *printInfo) renderValue(obj *Obj) (string, error) {
	if obj == nil {
		return "None", nil
	}
	if pi.declared[obj] {
		return obj.Varname, nil
	}
	if obj.recurse == pi.gen {
		// Still being constructed by an outer renderValue call on the Go
		// stack: this is a genuine cycle, not yet caught by the split
		// pass (which only covers REDUCE argtuples). Forward-
		// reference its name; the outer call completes the declaration,
		// which must now build obj incrementally rather than as a
		// literal containing its own not-yet-bound name.
		pi.cyclic[obj] = true
		return pi.nameFor(obj), nil
	}
	obj.recurse = pi.gen

	if obj.Kind == KindWhat {
		return pi.renderWhat(obj)
	}

	if isShared(obj) {
		name := pi.nameFor(obj)
		selfRef := obj.Kind != KindTuple && reachesItself(obj, obj, make(map[*Obj]bool))
		if pi.cyclic[obj] || containsSplit(obj) || selfRef {
			if err := pi.declareIncremental(obj, name); err != nil {
				return "", err
			}
		} else {
			expr, err := pi.renderConstruct(obj)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, name+" = "+expr+"\n")
		}
		pi.declared[obj] = true
		return name, nil
	}

	return pi.renderConstruct(obj)
}

// containsSplit reports whether any of obj's own Items is a Split marker.
// splitReduce inserts it as the trailing element at the moment a REDUCE
// consumes obj, but opcodes after that REDUCE (APPEND, SETITEM, ...) keep
// growing Items the normal way, so by render time the marker can sit
// anywhere short of the end — it's still the one place obj's post-call
// mutations would otherwise get flattened into the same literal as its
// state when the call happened.
func containsSplit(obj *Obj) bool {
	for _, item := range obj.Items {
		if item.Kind == KindSplit {
			return true
		}
	}
	return false
}

// reachesItself reports whether obj is reachable again from from's Items
// or, for a What, from its operations' arguments.
func reachesItself(obj, from *Obj, seen map[*Obj]bool) bool {
	if from == nil || seen[from] {
		return false
	}
	seen[from] = true
	kids := append([]*Obj(nil), from.Items...)
	for _, op := range from.Ops {
		kids = append(kids, op.Stack...)
	}
	for _, k := range kids {
		if k == obj || reachesItself(obj, k, seen) {
			return true
		}
	}
	return false
}

// declareIncremental is reached for a container that either references
// itself (directly or through other shared values) or carries a Split
// marker from splitReduce somewhere in its Items. A self-referential list
// or dict can't be written as a literal — Python evaluates a literal's
// elements before the assignment that would give it a name — so it's
// declared empty and then built up with the same mutating calls
// REDUCE/BUILD-style What chains use.
func (pi *printInfo) declareIncremental(obj *Obj, name string) error {
	switch obj.Kind {
	case KindList:
		pi.pending = append(pi.pending, name+" = []\n")
		return pi.emitSplitAwareItems(obj.Items, func(item *Obj) (string, error) {
			v, err := pi.renderValue(item)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s.append(%s)\n", name, v), nil
		})
	case KindSet, KindFrozenSet:
		pi.pending = append(pi.pending, name+" = set()\n")
		if err := pi.emitSplitAwareItems(obj.Items, func(item *Obj) (string, error) {
			v, err := pi.renderValue(item)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s.add(%s)\n", name, v), nil
		}); err != nil {
			return err
		}
		if obj.Kind == KindFrozenSet {
			pi.pending = append(pi.pending, fmt.Sprintf("%s = frozenset(%s)\n", name, name))
		}
		return nil
	case KindDict:
		pi.pending = append(pi.pending, name+" = {}\n")
		items, split := splitDictItems(obj.Items)
		if len(items)%2 != 0 {
			return &RenderError{Msg: "dict has odd item count at render time"}
		}
		for i := 0; i < len(items); i += 2 {
			k, err := pi.renderValue(items[i])
			if err != nil {
				return err
			}
			v, err := pi.renderValue(items[i+1])
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s[%s] = %s\n", name, k, v)
			if split != nil && i >= split.before {
				pi.deferred[split.op] = append(pi.deferred[split.op], line)
			} else {
				pi.pending = append(pi.pending, line)
			}
		}
		return nil
	default:
		return &RenderError{Msg: "cyclic reference through an immutable " + obj.Kind.String()}
	}
}

// emitSplitAwareItems walks items (a List/Set/FrozenSet's Items, which
// can hold several Split markers: split.go only replaces a trailing one,
// so a marker that later opcodes pushed back from the end stays when a
// further REDUCE appends its own) calling mk for each non-Split item.
// Statements for items before the first Split go straight to pi.pending;
// statements for items after a Split are queued onto pi.deferred, keyed
// by the Oper of the nearest Split before them, for renderWhat to flush
// right after it emits that Oper's own statement.
func (pi *printInfo) emitSplitAwareItems(items []*Obj, mk func(*Obj) (string, error)) error {
	var afterSplit *Oper
	for _, item := range items {
		if item.Kind == KindSplit {
			afterSplit = item.SplitAt
			continue
		}
		line, err := mk(item)
		if err != nil {
			return err
		}
		if afterSplit != nil {
			pi.deferred[afterSplit] = append(pi.deferred[afterSplit], line)
		} else {
			pi.pending = append(pi.pending, line)
		}
	}
	return nil
}

type dictSplit struct {
	op     *Oper
	before int // index into the split-stripped items slice
}

// splitDictItems strips the Split marker (if any) out of a Dict's flat
// [k, v, k, v, ...] Items, returning the remaining key/value pairs and
// where, in that stripped slice, the split landed.
func splitDictItems(items []*Obj) ([]*Obj, *dictSplit) {
	for i, item := range items {
		if item.Kind == KindSplit {
			rest := append(append([]*Obj(nil), items[:i]...), items[i+1:]...)
			return rest, &dictSplit{op: item.SplitAt, before: i}
		}
	}
	return items, nil
}

func (pi *printInfo) renderConstruct(obj *Obj) (string, error) {
	switch obj.Kind {
	case KindNone:
		return "None", nil
	case KindBool:
		if obj.Bool {
			return "True", nil
		}
		return "False", nil
	case KindInt:
		return strconv.FormatInt(obj.Int, 10), nil
	case KindFloat:
		return strconv.FormatFloat(obj.Float, 'g', -1, 64), nil
	case KindStr:
		return pyquote(string(obj.Str)), nil
	case KindFunc:
		return pi.renderFunc(obj), nil
	case KindTuple:
		return pi.renderTuple(obj)
	case KindList:
		items, err := pi.renderList(obj.Items)
		if err != nil {
			return "", err
		}
		return "[" + items + "]", nil
	case KindSet:
		if len(obj.Items) == 0 {
			return "set()", nil
		}
		items, err := pi.renderList(obj.Items)
		if err != nil {
			return "", err
		}
		return "{" + items + "}", nil
	case KindFrozenSet:
		if len(obj.Items) == 0 {
			return "frozenset()", nil
		}
		items, err := pi.renderList(obj.Items)
		if err != nil {
			return "", err
		}
		return "frozenset({" + items + "})", nil
	case KindDict:
		return pi.renderDict(obj)
	case KindSplit:
		owner := pi.operOwner[obj.SplitAt]
		if owner == nil {
			return "", &RenderError{Msg: "split marker has no owning What"}
		}
		return pi.nameFor(owner), nil
	default:
		return "", &RenderError{Msg: "no renderer for kind " + obj.Kind.String()}
	}
}

// renderFunc spells out a GLOBAL/STACK_GLOBAL reference the way it would
// actually have to be imported to run, rather than as a bare
// `module.name` that only makes sense if module happens to already be a
// bound local.
func (pi *printInfo) renderFunc(obj *Obj) string {
	module, name := "", ""
	if obj.FuncModule != nil {
		module = string(obj.FuncModule.Str)
	}
	if obj.FuncName != nil {
		name = string(obj.FuncName.Str)
	}
	return fmt.Sprintf("__import__(%s).%s", pyquote(module), name)
}

func (pi *printInfo) renderTuple(obj *Obj) (string, error) {
	items, err := pi.renderList(obj.Items)
	if err != nil {
		return "", err
	}
	if len(obj.Items) == 1 {
		return "(" + items + ",)", nil
	}
	return "(" + items + ")", nil
}

// renderDict renders a Dict as a literal. A Split marker present in Items
// is dropped rather than rendered: a Dict rendered here wasn't hoisted
// (it's not shared or cyclic per isShared/renderValue), so there's no
// other statement for the split to sequence against — every pair, pre-
// or post-split, belongs in the one literal.
func (pi *printInfo) renderDict(obj *Obj) (string, error) {
	items, _ := splitDictItems(obj.Items)
	if len(items)%2 != 0 {
		return "", &RenderError{Msg: "dict has odd item count at render time"}
	}
	var parts []string
	for i := 0; i < len(items); i += 2 {
		k, err := pi.renderValue(items[i])
		if err != nil {
			return "", err
		}
		v, err := pi.renderValue(items[i+1])
		if err != nil {
			return "", err
		}
		parts = append(parts, k+": "+v)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// renderList renders a List/Set/FrozenSet/Tuple/Oper-argument sequence as
// comma-joined elements, silently skipping any Split marker — the same
// "not hoisted, so nothing to sequence against" reasoning as renderDict.
func (pi *printInfo) renderList(items []*Obj) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind == KindSplit {
			continue
		}
		v, err := pi.renderValue(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ", "), nil
}

// renderCallArgs renders a REDUCE/NEWOBJ Oper's sole argument, which
// §3.3 requires to be a Tuple, as the tuple literal itself (so it can be
// splatted with `*` at the call site) rather than unpacked into bare
// positional arguments. Any other shape is an unrenderable graph (a
// RenderError, not a HandlerError — the interpreter itself never
// validates this at REDUCE/NEWOBJ time, only the renderer does).
func (pi *printInfo) renderCallArgs(op *Oper) (string, error) {
	if len(op.Stack) != 1 || op.Stack[0] == nil || op.Stack[0].Kind != KindTuple {
		return "", &RenderError{Msg: fmt.Sprintf("%s argument must be a tuple", opToName(op.Op))}
	}
	return pi.renderValue(op.Stack[0])
}

// renderWhat emits a What's operation history as a trace of statements
// against one variable. The first Oper is always FAKE_INIT, which seeds
// the variable; every op after it, whether call-shaped (REDUCE, NEWOBJ,
// INST, OBJ) or mutating (BUILD, APPEND(S), SETITEM(S), ADDITEMS),
// rebinds or mutates that same variable in turn, so the rendered code
// traces the exact sequence of operations the pickle applied.
func (pi *printInfo) renderWhat(obj *Obj) (string, error) {
	if len(obj.Ops) == 0 || obj.Ops[0].Op != OpFakeInit || len(obj.Ops[0].Stack) != 1 {
		return "", &RenderError{Msg: "malformed What: missing FAKE_INIT"}
	}

	base, err := pi.renderValue(obj.Ops[0].Stack[0])
	if err != nil {
		return "", err
	}
	name := pi.nameFor(obj)
	pi.pending = append(pi.pending, name+" = "+base+"\n")

	for _, op := range obj.Ops[1:] {
		switch op.Op {
		case OpReduce:
			args, err := pi.renderCallArgs(op)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s = %s(*%s)\n", name, name, args))
		case OpNewobj:
			args, err := pi.renderCallArgs(op)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s = %s.__new__(*%s)\n", name, name, args))
		case OpInst, OpObj:
			items, err := pi.renderList(op.Stack)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s = %s(%s)\n", name, name, items))
		case OpBuild:
			if len(op.Stack) != 1 {
				return "", &RenderError{Msg: "BUILD op with wrong arity"}
			}
			state, err := pi.renderValue(op.Stack[0])
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s.__setstate__(%s)\n", name, state))
		case OpAppend:
			if len(op.Stack) != 1 {
				return "", &RenderError{Msg: "APPEND op with wrong arity"}
			}
			v, err := pi.renderValue(op.Stack[0])
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s.append(%s)\n", name, v))
		case OpAppends:
			items, err := pi.renderList(op.Stack)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s.extend([%s])\n", name, items))
		case OpSetitem:
			if len(op.Stack) != 2 {
				return "", &RenderError{Msg: "SETITEM op with wrong arity"}
			}
			k, err := pi.renderValue(op.Stack[0])
			if err != nil {
				return "", err
			}
			v, err := pi.renderValue(op.Stack[1])
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s[%s] = %s\n", name, k, v))
		case OpSetitems:
			if len(op.Stack)%2 != 0 {
				return "", &RenderError{Msg: "SETITEMS op with odd argument count"}
			}
			var parts []string
			for i := 0; i < len(op.Stack); i += 2 {
				k, err := pi.renderValue(op.Stack[i])
				if err != nil {
					return "", err
				}
				v, err := pi.renderValue(op.Stack[i+1])
				if err != nil {
					return "", err
				}
				parts = append(parts, k+": "+v)
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s.update({%s})\n", name, strings.Join(parts, ", ")))
		case OpAdditems:
			items, err := pi.renderList(op.Stack)
			if err != nil {
				return "", err
			}
			pi.pending = append(pi.pending, fmt.Sprintf("%s.update({%s})\n", name, items))
		default:
			return "", &RenderError{Msg: "unrecognized op " + opToName(op.Op) + " in What chain"}
		}

		// Flush statements for items a shared container appended after
		// this op's Split marker (split.go), now that this op's own
		// statement is in place for them to follow.
		if lines := pi.deferred[op]; len(lines) > 0 {
			pi.pending = append(pi.pending, lines...)
			delete(pi.deferred, op)
		}
	}

	pi.declared[obj] = true
	return name, nil
}

// RenderDiagnostic renders the popstack and memo table as a leading
// comment block, the way og-rek-adjacent tools banner-print auxiliary VM
// state ahead of the reconstructed value. Supplements RenderPseudocode
// for callers who want POP/POP_MARK history and memo occupancy alongside
// the pseudocode, without re-deriving it from State themselves.
func RenderDiagnostic(state *State) string {
	var sb strings.Builder
	if pop := state.Popstack(); len(pop) > 0 {
		fmt.Fprintf(&sb, "# %d item(s) discarded via POP/POP_MARK:\n", len(pop))
		for _, obj := range pop {
			fmt.Fprintf(&sb, "#   offset=0x%x kind=%s\n", obj.Offset, obj.Kind)
		}
	}
	if memo := state.Memo(); len(memo) > 0 {
		fmt.Fprintf(&sb, "# memo table: %d entries\n", len(memo))
	}
	return sb.String()
}
