// Package console implements the line-based command protocol of spec.md
// §6.2 (InputGenerator): read N/C/R commands from an io.Reader and drive a
// lachesis.Engine. Grounded on the original C++ InputGenerator::process
// (_examples/original_source/tools/conf_tester/gen_input.cpp), which reads
// whitespace-separated tokens per line from stdin.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lachesis-conformance/internal/lachesis"
)

// Run reads commands from r until EOF and drives a freshly constructed
// engine, returning it for callers that want to inspect final state (tests
// do; cmd/lachesis-sim discards it). An "N" line must precede any "C"/"R"
// line. Any other non-comment line is a protocol error.
func Run(r io.Reader) (*lachesis.Engine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var engine *lachesis.Engine
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "N":
			e, err := parseInit(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("console: line %d: %w", lineNo, err)
			}
			engine = e
		case "C":
			if engine == nil {
				return nil, fmt.Errorf("console: line %d: C before N", lineNo)
			}
			if err := applyCreate(engine, fields[1:]); err != nil {
				return nil, fmt.Errorf("console: line %d: %w", lineNo, err)
			}
		case "R":
			if engine == nil {
				return nil, fmt.Errorf("console: line %d: R before N", lineNo)
			}
			if err := applyReceive(engine, fields[1:]); err != nil {
				return nil, fmt.Errorf("console: line %d: %w", lineNo, err)
			}
		default:
			return nil, fmt.Errorf("console: line %d: unknown command %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("console: read: %w", err)
	}
	return engine, nil
}

func parseInit(fields []string) (*lachesis.Engine, error) {
	if len(fields) < 1 {
		return nil, fmt.Errorf("N requires a participant count")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("N: bad participant count %q: %w", fields[0], err)
	}
	if len(fields) != n+1 {
		return nil, fmt.Errorf("N: expected %d stake values, got %d", n, len(fields)-1)
	}

	stake := make([]lachesis.Stake, n)
	for i := 0; i < n; i++ {
		s, err := strconv.ParseUint(fields[i+1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("N: bad stake %q: %w", fields[i+1], err)
		}
		stake[i] = lachesis.Stake(s)
	}
	return lachesis.Construct(stake, legacyFromArg), nil
}

// legacyFromArg is set by cmd/lachesis-sim before calling Run, selecting
// the legacy or standard frame-assignment algorithm for the "N" command
// about to be parsed (spec.md §6.2: legacy-ness is a CLI-level switch, not
// part of the "N" line itself).
var legacyFromArg bool

// SetLegacy configures whether the next "N" command constructs an engine
// in legacy frame-assignment mode.
func SetLegacy(legacy bool) { legacyFromArg = legacy }

func applyCreate(e *lachesis.Engine, fields []string) error {
	if len(fields) < 1 {
		return fmt.Errorf("C requires a producer id")
	}
	producer, err := parseProcId(fields[0])
	if err != nil {
		return fmt.Errorf("C: bad producer: %w", err)
	}
	parents := make([]lachesis.ProcId, 0, len(fields)-1)
	for _, f := range fields[1:] {
		p, err := parseProcId(f)
		if err != nil {
			return fmt.Errorf("C: bad parent processor: %w", err)
		}
		parents = append(parents, p)
	}
	e.CreateEvent(producer, parents)
	return nil
}

func applyReceive(e *lachesis.Engine, fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("R requires exactly receiver and sender")
	}
	receiver, err := parseProcId(fields[0])
	if err != nil {
		return fmt.Errorf("R: bad receiver: %w", err)
	}
	sender, err := parseProcId(fields[1])
	if err != nil {
		return fmt.Errorf("R: bad sender: %w", err)
	}
	e.ReceiveEvent(receiver, sender)
	return nil
}

func parseProcId(s string) (lachesis.ProcId, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return lachesis.ProcId(n), nil
}
