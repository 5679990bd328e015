package lachesis

import (
	"fmt"
)

// Engine is the ingress facade: the single consensus instance owned by one
// caller that create_event/receive_event mutate coherently (spec.md §4.9,
// §6.1). It owns the shared Store and every participant's View, plus the
// network-wide atropos facts.
//
// Matches the teacher's convention of a top-level engine struct wrapping
// shared state (src/consensus.go's ConsensusEngine, src/fame_voting.go's
// FameVoting) but drops their sync.RWMutex: spec.md §5 mandates a single-
// threaded, strictly sequential state machine with no concurrent callers.
type Engine struct {
	validators *Validators
	store      *Store
	views      []*View
	legacy     bool

	firstAtropos Event
	atroposChain map[Event]Event

	logger eventLogger
}

// Construct initializes a new Engine for n participants with the given
// per-participant stake, selecting the legacy or standard frame-assignment
// algorithm. Emits the "N ..." init record (spec.md §6.1, §6.4).
func Construct(stake []Stake, legacy bool) *Engine {
	validators := NewValidators(stake)
	n := validators.Len()

	e := &Engine{
		validators:   validators,
		store:        NewStore(validators),
		views:        make([]*View, n),
		legacy:       legacy,
		firstAtropos: NilEvent,
		atroposChain: make(map[Event]Event),
		logger:       newEventLogger(),
	}
	for i := 0; i < n; i++ {
		e.views[i] = newView(ProcId(i), n)
	}

	e.emitInit(stake)
	e.logger.log.Info().Int("participants", n).Bool("legacy", legacy).
		Uint64("quorum", uint64(validators.Quorum())).Msg("consensus instance constructed")
	return e
}

// Validators exposes the immutable stake registry.
func (e *Engine) Validators() *Validators { return e.validators }

// checkProc panics if pid is out of range — mirrors the original's
// check_procid assertion (an internal invariant, not a recoverable user
// error: callers are expected to validate pid against Validators.Len()
// themselves before calling into the engine).
func (e *Engine) checkProc(pid ProcId) {
	assertf(e.validators.Valid(pid), "%v: %d", ErrBadProcId, pid)
}

// checkEvent validates that a is within the producer's known range and
// that, if non-genesis, its self-parent is in its recorded parent set (I1).
func (e *Engine) checkEvent(a Event) {
	e.checkProc(a.Proc)
	head := e.views[a.Proc].HeadSeq(a.Proc)
	assertf(a.Seq >= 0 && a.Seq <= head, "%v: %s (head=%d)", ErrBadEvent, a, head)

	if a.Seq > 0 {
		sp := a.SelfParent()
		found := false
		for _, p := range e.store.Parents(a) {
			if p == sp {
				found = true
				break
			}
		}
		assertf(found, "%v: self-parent missing for %s", ErrBadEvent, a)
	}
}

// CreateEvent creates a new event for producer whose parent set holds, for
// each pid in parentProcessors, pid's head as seen in producer's view
// (spec.md §4.3). The self-parent is a parent only if producer itself is
// listed; checkEvent panics if a non-genesis event lacks it.
func (e *Engine) CreateEvent(producer ProcId, parentProcessors []ProcId) Event {
	e.checkProc(producer)
	v := e.views[producer]

	newEvent := Event{Proc: producer, Seq: v.headSeq[producer] + 1}

	parentSet := make([]Event, 0, len(parentProcessors))
	for _, pid := range parentProcessors {
		e.checkProc(pid)
		headSeq := v.headSeq[pid]
		assertf(headSeq >= 0, "%v: proc=%d", ErrMissingParent, pid)
		parentSet = append(parentSet, Event{Proc: pid, Seq: headSeq})
	}

	e.store.put(newEvent, parentSet)
	v.headSeq[producer]++

	e.emitCreate(producer, parentProcessors)
	e.checkEvent(newEvent)

	e.runFrameAtropos(v, newEvent)
	return newEvent
}

// ReceiveEvent delivers the single next unreceived event from sender into
// receiver's view, recursively pulling in any of its parents receiver
// hasn't observed yet (spec.md §4.3). A no-op if receiver has nothing new
// to receive from sender. Panics if receiver == sender (a precondition
// violation, not a recoverable runtime condition).
func (e *Engine) ReceiveEvent(receiver, sender ProcId) {
	e.checkProc(receiver)
	e.checkProc(sender)
	assertf(receiver != sender, "receive_event requires receiver != sender")

	v := e.views[receiver]
	if v.headSeq[sender] == e.views[sender].headSeq[sender] {
		return
	}

	next := v.headSeq[sender] + 1
	newEvent := Event{Proc: sender, Seq: next}

	for _, parent := range e.store.Parents(newEvent) {
		for v.headSeq[parent.Proc] < parent.Seq {
			e.ReceiveEvent(receiver, parent.Proc)
		}
	}

	v.headSeq[sender]++
	e.checkEvent(newEvent)

	e.emitReceive(receiver, sender)
	e.runFrameAtropos(v, newEvent)
}

// ReceiveEventUntil repeatedly receives from sender into receiver until
// receiver's recorded head for sender reaches targetSeq. Panics if sender
// has nothing further to give before targetSeq is reached (spec.md §4.3:
// "fail if sender has nothing further to give before reaching target").
//
// Note: the original C++ prototype types this third parameter as a
// processor id (t_proc) but uses it throughout as a sequence number
// (spec.md §9, Open Questions); this Go signature names it Seq for clarity
// while preserving that exact semantics.
func (e *Engine) ReceiveEventUntil(receiver, sender ProcId, targetSeq Seq) {
	e.checkProc(receiver)
	e.checkProc(sender)
	if receiver == sender {
		return
	}

	v := e.views[receiver]
	for v.headSeq[sender] < e.views[sender].headSeq[sender] && v.headSeq[sender] < targetSeq {
		e.ReceiveEvent(receiver, sender)
	}

	if v.headSeq[sender] != targetSeq {
		panic(fmt.Sprintf("%v: receiver=%d sender=%d want=%d have=%d", ErrReceiveTarget, receiver, sender, targetSeq, v.headSeq[sender]))
	}
}

// runFrameAtropos assigns a frame to newEvent and, if it becomes a new
// root, runs the voting/aggregation/election pipeline (spec.md §4.4, the
// "frame-atropos pipeline").
func (e *Engine) runFrameAtropos(v *View, newEvent Event) {
	var isNewRoot bool
	if e.legacy {
		isNewRoot = e.updateFrameLegacy(v, newEvent)
	} else {
		isNewRoot = e.updateFrame(v, newEvent)
	}

	if isNewRoot {
		e.updateAtropos(v, newEvent)
	}
}

// IsFrameRoot reports whether event is recorded as a root of any frame in
// view pid.
func (e *Engine) IsFrameRoot(pid ProcId, event Event) bool {
	return e.views[pid].IsRoot(event)
}

// GetFrame returns the frame view pid has assigned to event.
func (e *Engine) GetFrame(pid ProcId, event Event) Frame {
	return e.views[pid].FrameOf(event)
}

// IsAtropos reports whether event is the network's FirstAtropos or appears
// as a key or value in the AtroposChain.
func (e *Engine) IsAtropos(pid ProcId, event Event) bool {
	if e.firstAtropos == event {
		return true
	}
	if _, ok := e.atroposChain[event]; ok {
		return true
	}
	for _, succ := range e.atroposChain {
		if succ == event {
			return true
		}
	}
	return false
}

// CheckFirstAtropos exposes the first-atropos write-once check for
// external conformance drivers (e.g. the event-DB reader, spec.md §6.3).
func (e *Engine) CheckFirstAtropos(atropos Event) bool {
	return e.checkFirstAtropos(atropos)
}

// CheckSubsequentAtropos exposes the atropos-chain write-once check for
// external conformance drivers.
func (e *Engine) CheckSubsequentAtropos(prev, current Event) bool {
	return e.checkSubsequentAtropos(prev, current)
}
