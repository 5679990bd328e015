package lachesis

import (
	"fmt"
	"os"
)

// minDumpFrame is the frame threshold below which dump.go's DOT renderer
// omits nodes, matching the original prototype's hard-coded `frame_idx >=
// 4` filter in Lachesis::dump (tools/conf_tester/lachesis.cpp) that keeps
// early genesis noise out of the rendered graph.
const minDumpFrame = 4

// DumpDOT writes a Graphviz DOT rendering of view pid's DAG to
// <path>.g, annotating roots and atropos events distinctly (spec.md §6.1,
// "dump"). Output formatting and DOT dumps are an external-collaborator
// concern (spec.md §1); this is the thin adapter the core exposes for it.
func (e *Engine) DumpDOT(pid ProcId, path string) error {
	f, err := os.Create(path + ".g")
	if err != nil {
		return fmt.Errorf("dump dot: %w", err)
	}
	defer f.Close()

	v := e.views[pid]
	n := e.validators.Len()

	fmt.Fprintln(f, "digraph G {")
	for i := 0; i < n; i++ {
		for j := Seq(0); j <= v.headSeq[ProcId(i)]; j++ {
			ev := Event{Proc: ProcId(i), Seq: j}
			if v.FrameOf(ev) < minDumpFrame {
				continue
			}
			fmt.Fprintf(f, "node_%d_%d [pos=\"%d,%d\", label=\"%d,%d\"", i, j, i, j, i, j)
			if v.IsRoot(ev) {
				if e.IsAtropos(pid, ev) {
					fmt.Fprint(f, ", color=green")
				} else {
					fmt.Fprint(f, ", color=red")
				}
			}
			fmt.Fprintln(f, "]")
		}
	}
	for i := 0; i < n; i++ {
		for j := Seq(0); j <= v.headSeq[ProcId(i)]; j++ {
			ev := Event{Proc: ProcId(i), Seq: j}
			if v.FrameOf(ev) < minDumpFrame {
				continue
			}
			for _, parent := range e.store.Parents(ev) {
				if v.FrameOf(parent) < minDumpFrame {
					continue
				}
				fmt.Fprintf(f, "node_%d_%d -> node_%d_%d\n", i, j, parent.Proc, parent.Seq)
			}
		}
	}
	fmt.Fprintln(f, "}")
	return nil
}

// DumpVectors writes a human-readable downset/upset dump of every event in
// view pid to <path>.txt, supplementing the DOT dump with the raw
// reachability frontiers (ported from Lachesis::dump_vectors in the
// original prototype, which the distilled spec.md omits but
// SPEC_FULL.md §4 restores as a diagnostic aid).
func (e *Engine) DumpVectors(pid ProcId, path string) error {
	f, err := os.Create(path + ".txt")
	if err != nil {
		return fmt.Errorf("dump vectors: %w", err)
	}
	defer f.Close()

	v := e.views[pid]
	n := e.validators.Len()

	for i := 0; i < n; i++ {
		for j := Seq(0); j <= v.headSeq[ProcId(i)]; j++ {
			ev := Event{Proc: ProcId(i), Seq: j}
			fmt.Fprintf(f, "Event (%d,%d):\n", i, j)

			fmt.Fprint(f, "\t downset:")
			for k := 0; k < n; k++ {
				if s := e.store.Downset(ev)[k]; s != NilSeq {
					fmt.Fprintf(f, "(%d,%d) ", k, s)
				}
			}
			fmt.Fprintln(f)

			fmt.Fprint(f, "\t upset:")
			for k := 0; k < n; k++ {
				if s := e.store.Upset(ev)[k]; s != NilSeq {
					fmt.Fprintf(f, "(%d,%d) ", k, s)
				}
			}
			fmt.Fprintln(f)
		}
	}
	return nil
}

// dumpHeadState writes each view's head-sequence matrix to stdout as
// ";View i" comment blocks, matching Lachesis::dump_state, invoked right
// before a fatal cross-view atropos abort so the operator has the last
// known-good state on hand.
func (e *Engine) dumpHeadState() {
	n := e.validators.Len()
	for i := 0; i < n; i++ {
		fmt.Fprintf(os.Stdout, ";View %d\n\t", i)
		for j := 0; j < n; j++ {
			fmt.Fprintf(os.Stdout, "%d (%d) ", e.views[i].HeadSeq(ProcId(j)), e.views[j].HeadSeq(ProcId(j)))
		}
		fmt.Fprintln(os.Stdout)
	}
}
