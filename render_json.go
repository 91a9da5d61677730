package pydec

import "encoding/json"

// RenderJSON renders the machine's final state as a JSON tree per §4.E:
// top-level stack/popstack/memo, each entry a node of {"type","offset",
// "memo_id"?,"id"?,"value"}. A shared or cyclic object is expanded in
// full only the first time it's reached; every later reference becomes
// {"ref": id} instead of re-walking it, using the same generation-counter
// cycle detection the pseudocode renderer and the free passes use.
func RenderJSON(state *State) ([]byte, error) {
	jw := &jsonWriter{
		state:     state,
		emitted:   make(map[*Obj]bool),
		refID:     make(map[*Obj]int64),
		operOwner: buildOperOwners(state),
	}
	jw.gen = state.nextGeneration()

	stackNodes, err := jw.nodes(state.Stack())
	if err != nil {
		return nil, err
	}
	popNodes, err := jw.nodes(state.Popstack())
	if err != nil {
		return nil, err
	}

	memoNodes := make(map[string]interface{}, len(state.memo))
	for slot, obj := range state.Memo() {
		node, err := jw.node(obj)
		if err != nil {
			return nil, err
		}
		memoNodes[memoKey(slot)] = node
	}

	root := map[string]interface{}{
		"stack":    stackNodes,
		"popstack": popNodes,
		"memo":     memoNodes,
	}
	return json.MarshalIndent(root, "", "  ")
}

type jsonWriter struct {
	state *State

	emitted map[*Obj]bool
	refID   map[*Obj]int64
	nextRef int64

	operOwner map[*Oper]*Obj
	gen       uint64
}

func (jw *jsonWriter) assignRef(obj *Obj) int64 {
	if id, ok := jw.refID[obj]; ok {
		return id
	}
	var id int64
	if obj.MemoID != noMemoID {
		id = obj.MemoID
	} else {
		id = jw.nextRef
		jw.nextRef++
	}
	jw.refID[obj] = id
	return id
}

func (jw *jsonWriter) nodes(objs []*Obj) ([]interface{}, error) {
	out := make([]interface{}, 0, len(objs))
	for _, obj := range objs {
		node, err := jw.node(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func (jw *jsonWriter) node(obj *Obj) (interface{}, error) {
	if obj == nil {
		return nil, nil
	}
	if jw.emitted[obj] || obj.recurse == jw.gen {
		return map[string]interface{}{"ref": jw.assignRef(obj)}, nil
	}
	obj.recurse = jw.gen

	node := map[string]interface{}{
		"type":   obj.Kind.String(),
		"offset": obj.Offset,
	}
	if obj.MemoID != noMemoID {
		node["memo_id"] = obj.MemoID
	}

	value, err := jw.value(obj)
	if err != nil {
		return nil, err
	}
	node["value"] = value

	if isShared(obj) {
		node["id"] = jw.assignRef(obj)
	}
	jw.emitted[obj] = true
	return node, nil
}

func (jw *jsonWriter) value(obj *Obj) (interface{}, error) {
	if scalar, ok := obj.ScalarValue(); ok {
		return scalar, nil
	}

	switch obj.Kind {
	case KindTuple, KindList, KindSet, KindFrozenSet:
		return jw.nodes(obj.Items)
	case KindDict:
		return jw.dictValue(obj)
	case KindFunc:
		module, name := "", ""
		if obj.FuncModule != nil {
			module = string(obj.FuncModule.Str)
		}
		if obj.FuncName != nil {
			name = string(obj.FuncName.Str)
		}
		return map[string]interface{}{"module": module, "name": name}, nil
	case KindWhat:
		return jw.whatValue(obj)
	case KindSplit:
		owner := jw.operOwner[obj.SplitAt]
		if owner == nil {
			return nil, &RenderError{Msg: "split marker has no owning What"}
		}
		return map[string]interface{}{"ref": jw.assignRef(owner)}, nil
	default:
		return nil, &RenderError{Msg: "no JSON renderer for kind " + obj.Kind.String()}
	}
}

func (jw *jsonWriter) dictValue(obj *Obj) (interface{}, error) {
	if len(obj.Items)%2 != 0 {
		return nil, &RenderError{Msg: "dict has odd item count at render time"}
	}
	pairs := make([]interface{}, 0, len(obj.Items)/2)
	for i := 0; i < len(obj.Items); i += 2 {
		key, err := jw.node(obj.Items[i])
		if err != nil {
			return nil, err
		}
		val, err := jw.node(obj.Items[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, map[string]interface{}{"key": key, "value": val})
	}
	return pairs, nil
}

func (jw *jsonWriter) whatValue(obj *Obj) (interface{}, error) {
	if len(obj.Ops) == 0 || obj.Ops[0].Op != OpFakeInit || len(obj.Ops[0].Stack) != 1 {
		return nil, &RenderError{Msg: "malformed What: missing FAKE_INIT"}
	}
	base, err := jw.node(obj.Ops[0].Stack[0])
	if err != nil {
		return nil, err
	}

	ops := make([]interface{}, 0, len(obj.Ops)-1)
	for _, op := range obj.Ops[1:] {
		args, err := jw.nodes(op.Stack)
		if err != nil {
			return nil, err
		}
		ops = append(ops, map[string]interface{}{
			"op":   opToName(op.Op),
			"args": args,
		})
	}

	return map[string]interface{}{"base": base, "ops": ops}, nil
}
