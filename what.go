package pydec

import "strings"

// This file implements §4.C's collection constructors, item-addition
// opcodes, and opaque ("What") construction opcodes. Every item-addition
// handler follows the same shape: try the natively-typed container first,
// and fall back to recording an Oper against an upgraded What when the
// receiver isn't the type the opcode expects — mirroring op_append/
// op_setitem/op_additems in the original C source, which do the same
// dispatch on the receiver's tag before deciding whether to mutate in
// place or grow an opcode history.

func (vm *Interpreter) buildIterN(n int, kind Kind) error {
	items, err := vm.state.popN(n)
	if err != nil {
		return err
	}
	obj := newIter(kind, vm.state.offset)
	obj.Items = items
	vm.state.push(obj)
	return nil
}

func (vm *Interpreter) buildIterFromMark(kind Kind) error {
	items, err := vm.state.closeMark()
	if err != nil {
		return err
	}
	if kind == KindDict && len(items)%2 != 0 {
		return errOddDict
	}
	obj := newIter(kind, vm.state.offset)
	obj.Items = items
	vm.state.push(obj)
	return nil
}

func (vm *Interpreter) opAppend() error {
	value, err := vm.state.pop()
	if err != nil {
		return err
	}
	receiver, err := vm.state.pop()
	if err != nil {
		return err
	}

	if receiver.Kind == KindList {
		receiver.Items = append(receiver.Items, value)
		vm.state.push(receiver)
		return nil
	}

	what := upgradeToWhat(vm.state.offset, receiver)
	op := newOper(OpAppend, vm.state.offset)
	op.Stack = []*Obj{value}
	what.Ops = append(what.Ops, op)
	vm.state.push(what)
	return nil
}

// opAppendsOrSetitems implements APPENDS/SETITEMS/ADDITEMS: each closes a
// mark-bounded run of stack items and either extends a natively-typed
// receiver (List/Dict/Set respectively) or falls back to a What op holding
// the run as-is.
func (vm *Interpreter) opAppendsOrSetitems(op OpKind, wantKind Kind) error {
	items, err := vm.state.closeMark()
	if err != nil {
		return err
	}
	if wantKind == KindDict && len(items)%2 != 0 {
		return errOddDict
	}
	receiver, err := vm.state.pop()
	if err != nil {
		return err
	}

	if receiver.Kind == wantKind {
		receiver.Items = append(receiver.Items, items...)
		vm.state.push(receiver)
		return nil
	}

	what := upgradeToWhat(vm.state.offset, receiver)
	oper := newOper(op, vm.state.offset)
	oper.Stack = items
	what.Ops = append(what.Ops, oper)
	vm.state.push(what)
	return nil
}

func (vm *Interpreter) opSetitem() error {
	value, err := vm.state.pop()
	if err != nil {
		return err
	}
	key, err := vm.state.pop()
	if err != nil {
		return err
	}
	receiver, err := vm.state.pop()
	if err != nil {
		return err
	}

	if receiver.Kind == KindDict {
		receiver.Items = append(receiver.Items, key, value)
		vm.state.push(receiver)
		return nil
	}

	what := upgradeToWhat(vm.state.offset, receiver)
	op := newOper(OpSetitem, vm.state.offset)
	op.Stack = []*Obj{key, value}
	what.Ops = append(what.Ops, op)
	vm.state.push(what)
	return nil
}

// opAddop implements REDUCE/BUILD/NEWOBJ: pop one argument, pop the
// receiver the argument applies to (the callable for REDUCE/NEWOBJ, the
// instance for BUILD), upgrade the receiver to What if needed, and record
// the opcode against it. upgradeToWhat's synthesized FAKE_INIT naturally
// becomes "the callable/instance as it stood before this operation",
// matching §3.3.
func (vm *Interpreter) opAddop(argc int, op OpKind) error {
	args, err := vm.state.popN(argc)
	if err != nil {
		return err
	}
	receiver, err := vm.state.pop()
	if err != nil {
		return err
	}

	what := upgradeToWhat(vm.state.offset, receiver)
	oper := newOper(op, vm.state.offset)
	oper.Stack = args
	what.Ops = append(what.Ops, oper)
	if op == OpReduce {
		splitReduce(vm.state, oper)
	}
	vm.state.push(what)
	return nil
}

// opInst implements the protocol-0 INST opcode: a mark-bounded run of
// constructor arguments on the stack, with the target class named in the
// ASCII mnemonic argument (module and class name space-separated), exactly
// like GLOBAL's non-stack form.
func (vm *Interpreter) opInst(op DecodedOp) error {
	args, err := vm.state.closeMark()
	if err != nil {
		return err
	}

	payload, ok := extractQuotedPayload(op.Mnemonic)
	if !ok {
		payload = strings.TrimSpace(strings.TrimPrefix(op.Mnemonic, "inst"))
	}
	parts := strings.SplitN(strings.TrimSpace(payload), " ", 2)
	if len(parts) != 2 {
		return &RenderError{Msg: "malformed INST argument " + op.Mnemonic}
	}

	cls := newFunc(vm.state.offset, newStr(vm.state.offset, []byte(parts[0])), newStr(vm.state.offset, []byte(parts[1])))
	what := upgradeToWhat(vm.state.offset, cls)
	oper := newOper(OpInst, vm.state.offset)
	oper.Stack = args
	what.Ops = append(what.Ops, oper)
	vm.state.push(what)
	return nil
}

// opObjFromMark implements OBJ: a mark-bounded run with the callable as the
// first item and constructor arguments following, all already on the
// stack (no ASCII argument, unlike INST).
func (vm *Interpreter) opObjFromMark() error {
	items, err := vm.state.closeMark()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errStackUnderflow
	}

	what := upgradeToWhat(vm.state.offset, items[0])
	oper := newOper(OpObj, vm.state.offset)
	oper.Stack = items[1:]
	what.Ops = append(what.Ops, oper)
	vm.state.push(what)
	return nil
}
