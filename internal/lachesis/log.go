package lachesis

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// eventLogger separates two output channels that must never mix:
//
//   - the normative protocol records of spec.md §6.4 ("N ...", "C ...",
//     "R ...", ";FR ...", ";Setting atropos ...") written verbatim to
//     stdout because external tooling parses them line-for-line, and
//   - structured diagnostic logging (construction banners, fatal aborts)
//     via zerolog, the logging library the wider retrieval pack's closest
//     sibling (insolar-assured-ledger) uses, in place of the teacher's
//     bare fmt/log calls (src/api_server.go, src/main.go).
type eventLogger struct {
	log zerolog.Logger
}

func newEventLogger() eventLogger {
	return eventLogger{
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger(),
	}
}

// Error exposes the diagnostic logger's Error-level event builder so
// other files in this package don't need to reach into e.logger.log
// directly.
func (l eventLogger) Error() *zerolog.Event {
	return l.log.Error()
}

// emitInit writes the "N n s0 s1 ... s(n-1)" init echo.
func (e *Engine) emitInit(stake []Stake) {
	var b strings.Builder
	fmt.Fprintf(&b, "N %d", len(stake))
	for _, s := range stake {
		fmt.Fprintf(&b, " %d", s)
	}
	fmt.Fprintln(os.Stdout, b.String())
}

// emitCreate writes the "C producer p0 p1 ..." record.
func (e *Engine) emitCreate(producer ProcId, parentProcessors []ProcId) {
	var b strings.Builder
	fmt.Fprintf(&b, "C %d", producer)
	for _, p := range parentProcessors {
		fmt.Fprintf(&b, " %d", p)
	}
	fmt.Fprintln(os.Stdout, b.String())
}

// emitReceive writes the "R receiver sender" record.
func (e *Engine) emitReceive(receiver, sender ProcId) {
	fmt.Fprintf(os.Stdout, "R %d %d\n", receiver, sender)
}

// emitFrameRoot writes the ";FR pid frame producer seq" record.
func (e *Engine) emitFrameRoot(pid ProcId, frame Frame, root Event) {
	fmt.Fprintf(os.Stdout, ";FR %d %d %d %d\n", pid, frame, root.Proc, root.Seq)
}

// emitSettingAtropos writes the ";Setting atropos (p,s) in processor pid"
// record.
func (e *Engine) emitSettingAtropos(pid ProcId, atropos Event) {
	fmt.Fprintf(os.Stdout, ";Setting atropos %s in processor %d\n", atropos, pid)
}
