package lachesis

import "fmt"

// checkFrameConsistency enforces I7: for any two views that both list a
// frame-f root from the same producer, the recorded event must match
// (spec.md §4.4). It is invoked immediately after a root is recorded,
// scanning every view, the recording view included, exactly as the
// original's check_frame does unconditionally over all processors.
func (e *Engine) checkFrameConsistency(f Frame, newEvent Event) {
	for _, other := range e.views {
		for _, root := range other.frameRootsAt(f) {
			if root.Proc == newEvent.Proc && root.Seq != newEvent.Seq {
				e.logger.Error().
					Int("frame", int(f)).
					Str("new_root", newEvent.String()).
					Int("diverges_from_proc", int(other.pid)).
					Str("existing_root", root.String()).
					Msg("root selection diverges across processors")
				e.DumpDOT(newEvent.Proc, "failure")
				panic(fmt.Sprintf(
					"new root selection %s of frame %d diverges from processor %d (and may others): already selected root %s",
					newEvent, f, other.pid, root,
				))
			}
		}
	}
}

// checkFirstAtropos enforces the network-wide FirstAtropos write-once rule
// (spec.md §4.7, I8): the first processor to find the first atropos sets
// it; every subsequent claim must agree.
func (e *Engine) checkFirstAtropos(atropos Event) bool {
	if !e.firstAtropos.IsNil() {
		return e.firstAtropos == atropos
	}
	e.firstAtropos = atropos
	return true
}

// checkSubsequentAtropos enforces the AtroposChain write-once rule (spec.md
// §4.7, I8): if prevAtropos already maps to a successor, current must
// match it; otherwise the mapping is recorded.
func (e *Engine) checkSubsequentAtropos(prevAtropos, current Event) bool {
	if existing, ok := e.atroposChain[prevAtropos]; ok {
		return existing == current
	}
	e.atroposChain[prevAtropos] = current
	return true
}

// checkAtropos validates a newly chosen atropos for view pid against the
// global FirstAtropos/AtroposChain facts, aborting the run on mismatch
// (spec.md §4.7).
func (e *Engine) checkAtropos(pid ProcId, atropos Event) {
	v := e.views[pid]

	var correct bool
	if v.headAtropos.IsNil() {
		correct = e.checkFirstAtropos(atropos)
	} else {
		correct = e.checkSubsequentAtropos(v.headAtropos, atropos)
	}

	if !correct {
		e.dumpHeadState()
		e.logger.Error().
			Int("proc", int(pid)).
			Str("event", atropos.String()).
			Msg("consensus is inconsistent for processor")
		panic(fmt.Sprintf("consensus is inconsistent for processor %d and event %s", pid, atropos))
	}

	v.headAtropos = atropos
}
