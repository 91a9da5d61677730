package pydec

// State is the pickle virtual machine's mutable state: the main evaluation
// stack, the mark meta-stack, the discard stack, and the memo table. It
// corresponds to PMState in §3.4.
type State struct {
	stack      []*Obj
	metastack  [][]*Obj
	popstack   []*Obj
	memo       map[int64]*Obj
	memoCount  int64 // next free memo slot, mirrors the pickle module's memo.count

	offset, start, end int64
	ver                int   // protocol version, if a PROTO opcode was observed
	protoSeen          bool
	recurse            uint64
}

// newState returns an empty machine state positioned at start.
func newState(start int64) *State {
	return &State{
		stack:     make([]*Obj, 0, 16),
		popstack:  make([]*Obj, 0),
		metastack: make([][]*Obj, 0),
		memo:      make(map[int64]*Obj),
		offset:    start,
		start:     start,
		end:       -1,
		memoCount: 0,
	}
}

// Stack returns the machine's final evaluation stack, bottom to top. It is
// the entry point both renderers walk (§4.D, §4.E).
func (s *State) Stack() []*Obj { return s.stack }

// Popstack returns objects discarded by POP/POP_MARK, kept for diagnostics.
func (s *State) Popstack() []*Obj { return s.popstack }

// Memo returns a snapshot of the memo table keyed by slot.
func (s *State) Memo() map[int64]*Obj {
	out := make(map[int64]*Obj, len(s.memo))
	for k, v := range s.memo {
		out[k] = v
	}
	return out
}

// Protocol returns the pickle protocol version observed via PROTO, and
// whether one was observed at all.
func (s *State) Protocol() (int, bool) { return s.ver, s.protoSeen }

func (s *State) push(obj *Obj) {
	s.stack = append(s.stack, obj)
}

func (s *State) pop() (*Obj, error) {
	n := len(s.stack)
	if n == 0 {
		return nil, errStackUnderflow
	}
	obj := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return obj, nil
}

func (s *State) top() (*Obj, error) {
	n := len(s.stack)
	if n == 0 {
		return nil, errStackUnderflow
	}
	return s.stack[n-1], nil
}

// popN pops the top n items off the stack, oldest first, mirroring
// list_pop_n in the original C source.
func (s *State) popN(n int) ([]*Obj, error) {
	if len(s.stack) < n {
		return nil, errStackUnderflow
	}
	k := len(s.stack) - n
	out := append([]*Obj(nil), s.stack[k:]...)
	s.stack = s.stack[:k]
	return out, nil
}

// mark pushes the current stack into the metastack and starts a fresh one.
func (s *State) mark() {
	s.metastack = append(s.metastack, s.stack)
	s.stack = make([]*Obj, 0, 8)
}

// popMark discards the current stack into popstack (for diagnostics) and
// restores the previous stack from the metastack.
func (s *State) popMark() error {
	prev, err := s.popMetastack()
	if err != nil {
		return err
	}
	s.popstack = append(s.popstack, s.stack...)
	s.stack = prev
	return nil
}

// closeMark drains the current stack into items (in original order),
// restoring the stack from before the matching MARK. Used to close
// TUPLE/LIST/DICT/FROZENSET/APPENDS/SETITEMS/ADDITEMS.
func (s *State) closeMark() (items []*Obj, err error) {
	prev, err := s.popMetastack()
	if err != nil {
		return nil, err
	}
	items = s.stack
	s.stack = prev
	return items, nil
}

func (s *State) popMetastack() ([]*Obj, error) {
	n := len(s.metastack)
	if n == 0 {
		return nil, errNoMarker
	}
	prev := s.metastack[n-1]
	s.metastack = s.metastack[:n-1]
	return prev, nil
}

// memoPut stores obj into the given slot, incrementing its refcount and, on
// the first memoization, recording the slot onto the object itself (§4.C:
// "records memo_id on the object the first time it is memoized").
func (s *State) memoPut(slot int64, obj *Obj) {
	obj.Refcnt++
	if obj.MemoID == noMemoID {
		obj.MemoID = slot
	}
	s.memo[slot] = obj
	if slot >= s.memoCount {
		s.memoCount = slot + 1
	}
}

// memoGet looks up a memo slot, bumping the refcount of what it finds, as
// BINGET/LONG_BINGET/GET all do when pushing the shared value back.
func (s *State) memoGet(slot int64) (*Obj, error) {
	obj, ok := s.memo[slot]
	if !ok {
		return nil, errMemoMiss
	}
	obj.Refcnt++
	return obj, nil
}

// shallowFree drops the memo table without touching the objects it
// references beyond decrementing their refcount — per §3.5, any object the
// memo still needs alive is also reachable via a stack. Used before
// rendering (§4.C STOP) and as the first step of failure containment (§5).
func (s *State) shallowFree() {
	for _, obj := range s.memo {
		decref(obj)
	}
	s.memo = make(map[int64]*Obj)
}

// deepFree tears down the stacks themselves, nulling each object's outgoing
// pointers before recursing so that self-referential containers don't
// double-free or infinite-loop (§3.5, §5: "memo first, then stacks").
func (s *State) deepFree() {
	for _, obj := range s.stack {
		deepDecref(obj, s.nextGeneration())
	}
	for _, layer := range s.metastack {
		for _, obj := range layer {
			deepDecref(obj, s.nextGeneration())
		}
	}
	for _, obj := range s.popstack {
		deepDecref(obj, s.nextGeneration())
	}
	s.stack, s.metastack, s.popstack = nil, nil, nil
}

func (s *State) nextGeneration() uint64 {
	s.recurse++
	return s.recurse
}

// decref mirrors py_obj_free's shallow decrement: only the refcount moves.
func decref(obj *Obj) {
	if obj != nil {
		obj.Refcnt--
	}
}

// deepDecref nulls obj's outgoing edges before recursing into them, then
// decrements obj's own refcount, exactly mirroring py_obj_deep_free's
// null-before-recurse ordering so cycles can't cause a double visit.
func deepDecref(obj *Obj, gen uint64) {
	if obj == nil || obj.recurse == gen {
		return
	}
	obj.recurse = gen

	switch obj.Kind {
	case KindTuple, KindList, KindSet, KindFrozenSet, KindDict:
		items := obj.Items
		obj.Items = nil
		for _, child := range items {
			deepDecref(child, gen)
		}
	case KindWhat:
		ops := obj.Ops
		obj.Ops = nil
		for _, op := range ops {
			args := op.Stack
			op.Stack = nil
			for _, child := range args {
				deepDecref(child, gen)
			}
			op.Refcnt--
		}
	case KindFunc:
		mod, name := obj.FuncModule, obj.FuncName
		obj.FuncModule, obj.FuncName = nil, nil
		deepDecref(mod, gen)
		deepDecref(name, gen)
	case KindSplit:
		obj.SplitAt = nil
	}

	obj.Refcnt--
}
