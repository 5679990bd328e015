package lachesis

// legacyFrameCeiling bounds the legacy frame-advancement loop. The
// original C++ prototype (tools/conf_tester/lachesis.cpp,
// update_frame_legacy) hard-codes this as selfparent_frame+100 with no
// documented rationale; spec.md §9 directs implementations to preserve it
// as an opaque configuration constant rather than guess at its intent.
const legacyFrameCeiling = 100

// updateFrame assigns a frame to newEvent in view pid using the standard
// algorithm (spec.md §4.4) and reports whether newEvent is a new root.
func (e *Engine) updateFrame(v *View, newEvent Event) bool {
	if newEvent.IsGenesis() {
		v.frameIdx[newEvent] = 0
		e.insertFrameRoot(v, 0, newEvent)
		return true
	}

	maxFrame := e.maxParentFrame(v, newEvent)
	resultFrame := maxFrame
	if v.forklessCauseOnQuorum(e.store, maxFrame, newEvent) {
		resultFrame++
	}
	v.frameIdx[newEvent] = resultFrame

	selfParentFrame := v.FrameOf(newEvent.SelfParent())
	if resultFrame != selfParentFrame {
		e.insertFrameRoot(v, resultFrame, newEvent)
		return true
	}

	// Preserved exactly as the original's assertion (spec.md §9, Open
	// Questions). The self-parent is always among the parents (checkEvent
	// enforces I1 before this runs), so maxFrame >= selfParentFrame and the
	// assertion holds whenever this path is reached.
	assertf(maxFrame == resultFrame, "no-promotion frame mismatch for %s: max=%d result=%d", newEvent, maxFrame, resultFrame)
	return false
}

// updateFrameLegacy assigns a frame to newEvent using the legacy algorithm
// (spec.md §4.4, "Legacy mode"): starting from the self-parent's frame, it
// keeps advancing as long as a quorum of that frame's roots is forklessly
// caused, up to legacyFrameCeiling advances.
func (e *Engine) updateFrameLegacy(v *View, newEvent Event) bool {
	if newEvent.IsGenesis() {
		v.frameIdx[newEvent] = 0
		e.insertFrameRoot(v, 0, newEvent)
		return true
	}

	selfParentFrame := v.FrameOf(newEvent.SelfParent())
	maxBound := selfParentFrame + legacyFrameCeiling
	frame := selfParentFrame

	for frame < maxBound && v.forklessCauseOnQuorum(e.store, frame, newEvent) {
		frame++
	}
	v.frameIdx[newEvent] = frame

	if frame > selfParentFrame {
		e.insertFrameRoot(v, frame, newEvent)
		return true
	}

	assertf(frame == selfParentFrame, "legacy frame must match self-parent's when no promotion occurs")
	return false
}

// maxParentFrame returns the maximum frame assigned (in view v) to any
// parent of newEvent. newEvent must be non-genesis.
func (e *Engine) maxParentFrame(v *View, newEvent Event) Frame {
	parents := e.store.Parents(newEvent)
	assertf(len(parents) > 0, "non-genesis event must have parents: %s", newEvent)

	var frame Frame
	for _, p := range parents {
		if f := v.FrameOf(p); f > frame {
			frame = f
		}
	}
	return frame
}

// insertFrameRoot records newEvent as a root of frame f in view v,
// extending FrameRoots as needed, emits the ";FR" protocol record, and
// immediately checks cross-view root consistency (I7).
func (e *Engine) insertFrameRoot(v *View, f Frame, newEvent Event) {
	v.recordRoot(f, newEvent)
	e.emitFrameRoot(v.pid, f, newEvent)
	e.checkFrameConsistency(f, newEvent)
}
