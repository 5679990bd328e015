package lachesis

// updateAtropos runs voting, aggregation, and atropos selection for view
// pid after newRoot has just been recorded as a new frame root (spec.md
// §4.5–§4.6). It mirrors the original's update_atropos: voting/aggregation
// only make sense once newRoot's frame has advanced past the last decided
// frame.
func (e *Engine) updateAtropos(v *View, newRoot Event) {
	round := int64(v.FrameOf(newRoot)) - int64(v.lastDecidedFrame)
	if round <= 0 {
		return
	}
	e.performVoting(v, newRoot)
	e.performAggregation(v, newRoot)
	e.chooseAtropos(v)
}

// performVoting casts newRoot's direct vote on every root of the
// immediately preceding frame: true iff newRoot forklessly causes that
// root (spec.md §4.5).
func (e *Engine) performVoting(v *View, newRoot Event) {
	frame := v.FrameOf(newRoot) - 1
	if frame < 0 || int(frame) >= len(v.frameRoots) {
		return
	}
	for _, root := range v.frameRootsAt(frame) {
		vote := e.store.ForklessCause(newRoot, root)
		v.voteTable(frame, newRoot)[root.Proc] = vote
	}
}

// performAggregation tallies stake-weighted votes across every
// not-yet-decided frame strictly between the last decided frame and
// newRoot's preceding frame, applying the yes-ties-win tie policy (spec.md
// §4.5).
func (e *Engine) performAggregation(v *View, newRoot Event) {
	newRootFrame := v.FrameOf(newRoot)
	quorum := e.validators.Quorum()

	for frame := v.lastDecidedFrame + 1; frame < newRootFrame-1; frame++ {
		decided := v.decisionTable(frame)
		priorFrameRoots := v.frameRootsAt(newRootFrame - 1)

		for i := 0; i < e.validators.Len(); i++ {
			voter := ProcId(i)
			if _, ok := decided[voter]; ok {
				continue
			}

			var numYes, numNo Stake
			for _, root := range priorFrameRoots {
				if !e.store.ForklessCause(newRoot, root) {
					continue
				}
				if v.voteTable(frame, root)[voter] {
					numYes += e.validators.Stake(root.Proc)
				} else {
					numNo += e.validators.Stake(root.Proc)
				}
			}

			v.voteTable(frame, newRoot)[voter] = numYes >= numNo
			if numYes >= quorum || numNo >= quorum {
				decided[voter] = numYes >= numNo
			}
		}
	}
}

// chooseAtropos walks participants in stake-descending order and, as soon
// as it finds the first undecided candidate, stops; if it finds a decided
// "yes" candidate, that candidate's frame root becomes the new atropos for
// view pid (spec.md §4.6).
func (e *Engine) chooseAtropos(v *View) {
	frame := v.lastDecidedFrame + 1
	decided := v.rootDecision[frame]

	for _, j := range e.validators.SortedProcs() {
		eligible, ok := decided[j]
		if !ok {
			// A higher-stake candidate must be decided before lower-stake
			// ones can be considered.
			return
		}
		if !eligible {
			continue
		}

		atropos := findRootByProc(v.frameRootsAt(frame), j)
		assertf(!atropos.IsNil(), "atropos decided but not found in frame %d for proc %d", frame, j)

		e.checkAtropos(v.pid, atropos)
		e.emitSettingAtropos(v.pid, atropos)

		delete(v.rootDecision, frame)
		delete(v.votes, frame)
		v.lastDecidedFrame++
		return
	}
}

func findRootByProc(roots []Event, p ProcId) Event {
	for _, r := range roots {
		if r.Proc == p {
			return r
		}
	}
	return NilEvent
}
