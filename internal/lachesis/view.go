package lachesis

// View is the slice of global state observed by one participant: its
// knowledge of other participants' heads, the frame it has assigned to
// every event it has seen, the roots it has recorded per frame, the
// in-flight votes and decisions over those roots, and the last atropos it
// has delivered (spec.md §3, "LocalView(p)").
//
// Grounded on the teacher's per-engine state structs (FameVoting,
// FinalityEngine, RoundAssignment in src/fame_voting.go, src/finality.go,
// src/round_assignment.go all wrap a *DAG and keep their own maps keyed by
// round/EventID) generalized to the dense-array-per-participant layout the
// design notes call for (spec.md §9): HeadSeq is a flat array and
// FrameRoots a slice indexed by frame, while FrameIdx, Votes and
// RootDecision are maps at every layer.
type View struct {
	pid ProcId

	headSeq []Seq // HeadSeq[pid][q], flat over q

	frameIdx map[Event]Frame
	// frameRoots[f] is the set of root events recorded for frame f. A map
	// is used for O(1) membership; frameRootsAt returns a frame's roots in
	// unspecified (map iteration) order.
	frameRoots []map[Event]struct{}

	// votes[f][voter][p] is the boolean vote that root event `voter` (of a
	// later frame) casts, directly or by aggregation, on whether
	// participant p's frame-f root is decided yes.
	votes map[Frame]map[Event]map[ProcId]bool

	// rootDecision[f][p] is set once the vote on participant p's frame-f
	// root has been decided (stake >= quorum either way); true means that
	// root is eligible as frame f's atropos.
	rootDecision map[Frame]map[ProcId]bool

	lastDecidedFrame Frame
	headAtropos      Event
}

func newView(pid ProcId, n int) *View {
	headSeq := make([]Seq, n)
	for i := range headSeq {
		headSeq[i] = NilSeq
	}
	return &View{
		pid:              pid,
		headSeq:          headSeq,
		frameIdx:         make(map[Event]Frame),
		votes:            make(map[Frame]map[Event]map[ProcId]bool),
		rootDecision:     make(map[Frame]map[ProcId]bool),
		lastDecidedFrame: -1,
		headAtropos:      NilEvent,
	}
}

// HeadSeq returns the highest sequence number this view has observed from
// participant q (NilSeq if none yet).
func (v *View) HeadSeq(q ProcId) Seq { return v.headSeq[q] }

// FrameOf returns the frame this view has assigned to e. Callers must only
// call this for events the view has already processed.
func (v *View) FrameOf(e Event) Frame {
	f, ok := v.frameIdx[e]
	assertf(ok, "frame requested for unknown event in view %d: %s", v.pid, e)
	return f
}

// IsRoot reports whether e is recorded as a root of any frame in this view.
func (v *View) IsRoot(e Event) bool {
	for _, roots := range v.frameRoots {
		if _, ok := roots[e]; ok {
			return true
		}
	}
	return false
}

func (v *View) frameRootsAt(f Frame) []Event {
	if f < 0 || int(f) >= len(v.frameRoots) {
		return nil
	}
	set := v.frameRoots[f]
	out := make([]Event, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}

// recordRoot appends e to frame f's root set, extending FrameRoots by
// exactly one slot as required (roots are only ever appended at the
// current highest frame + 1).
func (v *View) recordRoot(f Frame, e Event) {
	assertf(int(f) <= len(v.frameRoots), "frame root recorded out of order: frame=%d have=%d", f, len(v.frameRoots))
	if int(f) == len(v.frameRoots) {
		v.frameRoots = append(v.frameRoots, make(map[Event]struct{}))
	}
	v.frameRoots[f][e] = struct{}{}
}

func (v *View) voteTable(f Frame, root Event) map[ProcId]bool {
	byFrame, ok := v.votes[f]
	if !ok {
		byFrame = make(map[Event]map[ProcId]bool)
		v.votes[f] = byFrame
	}
	table, ok := byFrame[root]
	if !ok {
		table = make(map[ProcId]bool)
		byFrame[root] = table
	}
	return table
}

func (v *View) decisionTable(f Frame) map[ProcId]bool {
	table, ok := v.rootDecision[f]
	if !ok {
		table = make(map[ProcId]bool)
		v.rootDecision[f] = table
	}
	return table
}
