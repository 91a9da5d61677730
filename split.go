package pydec

// Every time a REDUCE op is recorded against a What (what.go's opAddop),
// splitReduce threads a Split marker — tagging that Oper — into every
// List/Set/FrozenSet/Dict reachable through the REDUCE's argument tuple
// as it stands at that exact moment, appending (or, if the container's
// last element is already a Split from an earlier REDUCE, replacing) a
// trailing marker in that container's own Items. Tuples are only
// recursed through, never marked themselves, since a Tuple can't later
// be mutated in place — any attempt upgrades its holder to a What
// instead.
//
// Running this at REDUCE time, not as a later pass over the finished
// graph, is what makes the marker meaningful: a container's Items grow
// by plain append as later opcodes run, so whatever is already in a
// container when its REDUCE fires ends up before the marker, and
// anything added afterward lands after it — letting the renderer later
// split "argument state when the call happened" from "mutations applied
// afterward" for a container that's shared beyond this one argument
// tuple. Ported from the original add_splits/itter_add_split/
// split_reduce trio, generalized to Go's explicit generation counters
// instead of a visited-bit on the C struct.

// splitReduce threads a fresh Split marker, tagging op, into every
// container reachable from op's sole argument (the REDUCE argtuple).
func splitReduce(state *State, op *Oper) {
	if len(op.Stack) == 0 {
		return
	}
	arg := op.Stack[len(op.Stack)-1] // likely a Tuple
	if arg == nil {
		return
	}
	gen := state.nextGeneration()
	addSplitMarkers(arg, op, gen)
}

// addSplitMarkers recurses through node, appending a trailing Split
// marker to every List/Set/FrozenSet/Dict it finds, after first
// recursing into that container's existing elements. Tuples and Whats
// are walked through but never themselves marked — a Tuple can't be
// mutated after construction, and a What records its own history
// directly rather than through an Items slice.
func addSplitMarkers(node *Obj, op *Oper, gen uint64) {
	if node == nil || node.recurse == gen {
		return
	}
	node.recurse = gen

	switch node.Kind {
	case KindTuple, KindList, KindSet, KindFrozenSet, KindDict:
		for _, child := range node.Items {
			addSplitMarkers(child, op, gen)
		}
		if node.Kind != KindTuple {
			appendSplit(node, op)
		}
	case KindWhat:
		for _, inner := range node.Ops {
			for _, child := range inner.Stack {
				addSplitMarkers(child, op, gen)
			}
		}
	}
}

// appendSplit appends a Split marker tagging op onto container's Items,
// replacing one already left there by an earlier REDUCE pass rather
// than stacking two splits back to back ("no reason to put two splits
// next to each other").
func appendSplit(container *Obj, op *Oper) {
	n := len(container.Items)
	if n > 0 && container.Items[n-1].Kind == KindSplit {
		container.Items = container.Items[:n-1]
	}
	container.Items = append(container.Items, newSplit(container.Offset, op))
}
