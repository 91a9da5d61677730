package pydec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildReduceWhat wires up a minimal What whose sole REDUCE Oper argues a
// one-element tuple wrapping arg, the shape opAddop leaves behind right
// before calling splitReduce.
func buildReduceWhat(arg *Obj) (what *Obj, reduceOp *Oper, argTuple *Obj) {
	fn := newFunc(0, newStr(0, []byte("mod")), newStr(0, []byte("Cls")))

	what = newObj(KindWhat, 0)
	init := newOper(OpFakeInit, 0)
	init.Stack = []*Obj{fn}
	what.Ops = []*Oper{init}

	argTuple = newIter(KindTuple, 0)
	argTuple.Items = []*Obj{arg}
	reduceOp = newOper(OpReduce, 0)
	reduceOp.Stack = []*Obj{argTuple}
	what.Ops = append(what.Ops, reduceOp)
	return what, reduceOp, argTuple
}

// TestSplitReduceThreadsIntoList checks the marker lands inside the List
// itself (as a trailing element of its own Items), not as a replacement
// for the Tuple slot that reaches it — the breadth the narrower
// self-reference-only version of this pass used to miss.
func TestSplitReduceThreadsIntoList(t *testing.T) {
	shared := newIter(KindList, 0)
	shared.Items = []*Obj{newInt(0, 1), newInt(0, 2)}

	_, reduceOp, argTuple := buildReduceWhat(shared)
	state := newState(0)

	splitReduce(state, reduceOp)

	require.Len(t, argTuple.Items, 1)
	require.Same(t, shared, argTuple.Items[0], "the tuple slot itself is untouched, only recursed through")

	require.Len(t, shared.Items, 3)
	require.Equal(t, KindSplit, shared.Items[2].Kind)
	require.Same(t, reduceOp, shared.Items[2].SplitAt)
}

// TestSplitReduceThreadsIntoNestedContainers checks the walk recurses
// through an intervening Tuple to reach a List/Set/Dict nested inside it,
// marking each of those but never the Tuple itself (a Tuple can't be
// mutated after construction, so there's nothing for a marker to
// separate there).
func TestSplitReduceThreadsIntoNestedContainers(t *testing.T) {
	innerList := newIter(KindList, 0)
	innerList.Items = []*Obj{newInt(0, 1)}

	innerDict := newIter(KindDict, 0)
	innerDict.Items = []*Obj{newStr(0, []byte("k")), newInt(0, 2)}

	innerSet := newIter(KindSet, 0)
	innerSet.Items = []*Obj{newInt(0, 3)}

	nestedTuple := newIter(KindTuple, 0)
	nestedTuple.Items = []*Obj{innerList, innerDict, innerSet}

	_, reduceOp, _ := buildReduceWhat(nestedTuple)
	state := newState(0)

	splitReduce(state, reduceOp)

	for _, c := range nestedTuple.Items {
		require.NotEqual(t, KindSplit, c.Kind, "a Tuple element keeps its own kind, it's never replaced")
	}

	require.Equal(t, KindSplit, innerList.Items[len(innerList.Items)-1].Kind)
	require.Equal(t, KindSplit, innerDict.Items[len(innerDict.Items)-1].Kind)
	require.Equal(t, KindSplit, innerSet.Items[len(innerSet.Items)-1].Kind)
}

// TestSplitReduceDedupesTrailingMarker checks that a second REDUCE
// against a container already carrying a trailing Split from an earlier
// one replaces it instead of stacking two in a row, and that a Split no
// longer trailing (a later item was appended past it) is left in place.
func TestSplitReduceDedupesTrailingMarker(t *testing.T) {
	shared := newIter(KindList, 0)
	shared.Items = []*Obj{newInt(0, 1)}

	_, firstReduce, _ := buildReduceWhat(shared)
	state := newState(0)
	splitReduce(state, firstReduce)
	require.Len(t, shared.Items, 2)
	require.Equal(t, KindSplit, shared.Items[1].Kind)
	require.Same(t, firstReduce, shared.Items[1].SplitAt)

	_, secondReduce, _ := buildReduceWhat(shared)
	splitReduce(state, secondReduce)

	require.Len(t, shared.Items, 2, "the new split replaces the old trailing one, it doesn't stack")
	require.Equal(t, KindSplit, shared.Items[1].Kind)
	require.Same(t, secondReduce, shared.Items[1].SplitAt)

	// A later mutation appends past the split, same as APPEND would.
	shared.Items = append(shared.Items, newInt(0, 4))

	_, thirdReduce, _ := buildReduceWhat(shared)
	splitReduce(state, thirdReduce)

	require.Len(t, shared.Items, 4, "a split that is no longer trailing stays; the new one is appended")
	require.Same(t, secondReduce, shared.Items[1].SplitAt)
	require.Equal(t, KindSplit, shared.Items[3].Kind)
	require.Same(t, thirdReduce, shared.Items[3].SplitAt)
}

// TestSplitReduceSkipsEmptyOrNilArg exercises the two defensive early
// returns: an Oper with no recorded arguments at all, and one whose sole
// argument is a nil slot.
func TestSplitReduceSkipsEmptyOrNilArg(t *testing.T) {
	state := newState(0)

	noArgs := newOper(OpReduce, 0)
	require.NotPanics(t, func() { splitReduce(state, noArgs) })

	nilArg := newOper(OpReduce, 0)
	nilArg.Stack = []*Obj{nil}
	require.NotPanics(t, func() { splitReduce(state, nilArg) })
}

// TestAddSplitMarkersStopsAtCycles checks the generation guard: a List
// that contains itself must not send the walk into infinite recursion,
// and still gets exactly one trailing marker out of it.
func TestAddSplitMarkersStopsAtCycles(t *testing.T) {
	cyclic := newIter(KindList, 0)
	cyclic.Items = []*Obj{cyclic}

	_, reduceOp, _ := buildReduceWhat(cyclic)
	state := newState(0)

	require.NotPanics(t, func() { splitReduce(state, reduceOp) })
	require.Len(t, cyclic.Items, 2)
	require.Same(t, cyclic, cyclic.Items[0])
	require.Equal(t, KindSplit, cyclic.Items[1].Kind)
}
