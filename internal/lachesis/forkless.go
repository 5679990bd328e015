package lachesis

// ForklessCause reports whether a forklessly causes b: the stake-weighted
// sum, over participants q for which upset(b) records sb = upset(b)[q] and
// downset(a) records sa = downset(a)[q] with sb <= sa, meets or exceeds
// quorum. Intuitively, "a sees b via at least a quorum of distinct
// producers' chains" (spec.md §4.2).
func (s *Store) ForklessCause(a, b Event) bool {
	up := s.upset[b]
	down := s.downset[a]

	var seenStake Stake
	for q, sb := range up {
		if sb == NilSeq {
			continue
		}
		sa := down[q]
		if sa != NilSeq && sb <= sa {
			seenStake += s.validators.Stake(ProcId(q))
		}
	}
	return seenStake >= s.validators.Quorum()
}

// forklessCauseOnQuorum accumulates the stake of frame-f roots in view pid
// that are forklessly caused by newEvent, and reports whether that stake
// meets or exceeds quorum. Used by the frame assigner to decide whether a
// new event advances past frame f (spec.md §4.4).
func (v *View) forklessCauseOnQuorum(store *Store, frame Frame, newEvent Event) bool {
	roots := v.frameRootsAt(frame)
	if roots == nil {
		return false
	}
	var stake Stake
	for _, root := range roots {
		if store.ForklessCause(newEvent, root) {
			stake += store.validators.Stake(root.Proc)
		}
	}
	return stake >= store.validators.Quorum()
}
