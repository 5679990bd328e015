// Package eventdb implements the SQLite-backed conformance driver of
// spec.md §6.3 (EventDbGenerator): replay a recorded epoch of events
// against a lachesis.Engine and cross-check frame numbers, root
// classification, and atropos selection against what the database already
// recorded. Grounded on the original C++ EventDbGenerator::process
// (_examples/original_source/tools/conf_tester/gen_eventdb.cpp) and on the
// teacher pack's own database/sql usage in
// _examples/original_source/consensus/consensusengine/check_against_db.go.
package eventdb

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"lachesis-conformance/internal/lachesis"
)

// diagLog carries the event-DB reader's own diagnostic channel (validator
// mapping echoes, per-event trace lines, missing-parent retry notices) —
// never the normative stdout protocol records of spec.md §6.4, which belong
// solely to lachesis.Engine. Grounded on the same zerolog adoption as
// internal/lachesis/log.go.
var diagLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

// dbEvent mirrors one row of the Event table joined against its parent set,
// with the validator id already normalized to a dense processor id.
type dbEvent struct {
	eventID  int64
	hash     string
	frame    lachesis.Frame
	producer lachesis.ProcId
	seq      lachesis.Seq
	parents  []dbParent
}

type dbParent struct {
	parentID int64
	producer lachesis.ProcId
	seq      lachesis.Seq
}

// Result captures a completed replay for callers that want the final
// engine state (tests) without re-deriving it.
type Result struct {
	Engine *lachesis.Engine
}

// Run opens the event-db at path and replays every event of epoch against a
// fresh engine, returning an error the first time replay diverges from the
// database's own frame, root, or atropos classification (spec.md §6.3).
func Run(path string, epoch int, legacy bool) (*Result, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventdb: open %s: %w", path, err)
	}
	defer db.Close()

	stake, procMap, err := getValidatorStake(db, epoch)
	if err != nil {
		return nil, err
	}
	if len(stake) == 0 {
		return nil, fmt.Errorf("eventdb: no validators for epoch %d", epoch)
	}
	for validatorID, proc := range procMap {
		diagLog.Debug().Msgf("validator: %d (%d) stake: %d", proc, validatorID, stake[proc])
	}

	engine := lachesis.Construct(stake, legacy)

	eventIDs, err := getEventList(db, epoch)
	if err != nil {
		return nil, err
	}

	unprocessed := make(map[int64]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		unprocessed[id] = struct{}{}
	}
	processed := make(map[int64]struct{}, len(eventIDs))

	frameVector := make([]lachesis.Frame, len(stake))
	for i := range frameVector {
		frameVector[i] = 1
	}

	var prevAtropos lachesis.Event
	firstAtropos := true

	for len(unprocessed) > 0 {
		progressed := false

		for id := range unprocessed {
			ev, err := getEvent(db, id, procMap)
			if err != nil {
				return nil, err
			}

			ev.parents, err = getParents(db, id, procMap)
			if err != nil {
				return nil, err
			}

			missing := false
			for _, p := range ev.parents {
				if _, ok := processed[p.parentID]; !ok {
					missing = true
					break
				}
			}
			if missing {
				diagLog.Debug().Msg("Missing parent(s); skip event and find next processable event")
				continue
			}

			diagLog.Debug().Msgf("event: %d hash: %s frame: %d validator: %d sequence-number:%d",
				ev.eventID, ev.hash, ev.frame, ev.producer, ev.seq)

			if err := replayOne(engine, ev, frameVector, db, procMap, &firstAtropos, &prevAtropos); err != nil {
				return nil, err
			}

			delete(unprocessed, id)
			processed[id] = struct{}{}
			progressed = true
			break
		}

		if !progressed {
			return nil, fmt.Errorf("eventdb: %d event(s) can never be processed (missing parents outside the recorded set)", len(unprocessed))
		}
	}

	return &Result{Engine: engine}, nil
}

// replayOne ingests a single already-parent-resolved event into the engine
// and performs the three cross-checks the original tool runs per event.
func replayOne(engine *lachesis.Engine, ev dbEvent, frameVector []lachesis.Frame, db *sql.DB, procMap map[int]lachesis.ProcId, firstAtropos *bool, prevAtropos *lachesis.Event) error {
	parentProcessors := make([]lachesis.ProcId, 0, len(ev.parents))
	for _, p := range ev.parents {
		parentProcessors = append(parentProcessors, p.producer)
		engine.ReceiveEventUntil(ev.producer, p.producer, p.seq)
	}

	engine.CreateEvent(ev.producer, parentProcessors)

	got := engine.GetFrame(ev.producer, lachesis.Event{Proc: ev.producer, Seq: ev.seq})
	if got != ev.frame {
		engine.DumpDOT(ev.producer, "root_failure")
		return fmt.Errorf("eventdb: event (%d,%d): frame mismatch: algorithm=%d db=%d", ev.producer, ev.seq, got, ev.frame)
	}

	if err := checkRootClassification(engine, ev, frameVector); err != nil {
		return err
	}

	atroposValidator, atroposSeq, ok, err := getAtroposRow(db, ev.eventID)
	if err != nil {
		return err
	}
	if ok {
		atroposProc, known := procMap[atroposValidator]
		if !known {
			return fmt.Errorf("eventdb: atropos references unknown validator %d", atroposValidator)
		}
		current := lachesis.Event{Proc: atroposProc, Seq: atroposSeq - 1}

		if *firstAtropos {
			*firstAtropos = false
			if !engine.CheckFirstAtropos(current) {
				return fmt.Errorf("eventdb: algorithm fails to classify %s as the first atropos", current)
			}
		} else {
			// The original tool tolerates disagreement when the candidate's
			// sequence number is 1 or 3 — an acknowledged quirk of the C++
			// reference tool's own test fixtures, preserved verbatim rather
			// than "fixed" so replay stays byte-for-byte conformant with it.
			if !engine.CheckSubsequentAtropos(*prevAtropos, current) && current.Seq != 1 && current.Seq != 3 {
				return fmt.Errorf("eventdb: algorithm fails to classify %s as the next atropos after %s", current, *prevAtropos)
			}
		}
		*prevAtropos = current
	}

	return nil
}

// checkRootClassification compares whether the database considers ev a new
// frame root for its producer (a change in frameVector[ev.producer] since
// the producer's last event) against whether the algorithm does — a
// strictly stronger check than frame numbers matching alone, ported from
// the original's frame_vector diffing in EventDbGenerator::process.
func checkRootClassification(engine *lachesis.Engine, ev dbEvent, frameVector []lachesis.Frame) error {
	isRoot := engine.IsFrameRoot(ev.producer, lachesis.Event{Proc: ev.producer, Seq: ev.seq})
	if frameVector[ev.producer] != ev.frame {
		frameVector[ev.producer] = ev.frame
		if !isRoot {
			engine.DumpDOT(ev.producer, "root_failure")
			return fmt.Errorf("eventdb: event (%d,%d): db classifies as frame root of frame %d, algorithm disagrees", ev.producer, ev.seq, ev.frame)
		}
		return nil
	}
	if isRoot {
		engine.DumpDOT(ev.producer, "root_failure")
		return fmt.Errorf("eventdb: event (%d,%d): algorithm classifies as frame root of frame %d, db disagrees", ev.producer, ev.seq, ev.frame)
	}
	return nil
}

func getValidatorStake(db *sql.DB, epoch int) ([]lachesis.Stake, map[int]lachesis.ProcId, error) {
	rows, err := db.Query(`SELECT ValidatorId, Weight FROM Validator WHERE EpochId = ? ORDER BY ValidatorId`, epoch)
	if err != nil {
		return nil, nil, fmt.Errorf("eventdb: query validators: %w", err)
	}
	defer rows.Close()

	var stake []lachesis.Stake
	procMap := make(map[int]lachesis.ProcId)
	for rows.Next() {
		var validatorID int
		var weight uint64
		if err := rows.Scan(&validatorID, &weight); err != nil {
			return nil, nil, fmt.Errorf("eventdb: scan validator: %w", err)
		}
		procMap[validatorID] = lachesis.ProcId(len(stake))
		stake = append(stake, lachesis.Stake(weight))
	}
	return stake, procMap, rows.Err()
}

func getEventList(db *sql.DB, epoch int) ([]int64, error) {
	rows, err := db.Query(`SELECT EventId FROM Event WHERE EpochId = ? ORDER BY EventId`, epoch)
	if err != nil {
		return nil, fmt.Errorf("eventdb: query events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("eventdb: scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getEvent(db *sql.DB, eventID int64, procMap map[int]lachesis.ProcId) (dbEvent, error) {
	row := db.QueryRow(`SELECT EventHash, FrameId, ValidatorId, SequenceNumber FROM Event WHERE EventId = ?`, eventID)

	var hash string
	var frame int
	var validatorID int
	var seq int
	if err := row.Scan(&hash, &frame, &validatorID, &seq); err != nil {
		return dbEvent{}, fmt.Errorf("eventdb: scan event %d: %w", eventID, err)
	}

	proc, ok := procMap[validatorID]
	if !ok {
		return dbEvent{}, fmt.Errorf("eventdb: event %d: unknown validator %d", eventID, validatorID)
	}

	return dbEvent{
		eventID:  eventID,
		hash:     hash,
		frame:    lachesis.Frame(frame - 1),
		producer: proc,
		seq:      lachesis.Seq(seq - 1),
	}, nil
}

func getParents(db *sql.DB, eventID int64, procMap map[int]lachesis.ProcId) ([]dbParent, error) {
	rows, err := db.Query(`SELECT p.ParentId, e.ValidatorId, e.SequenceNumber
		FROM Parent AS p, Event AS e
		WHERE p.EventId = ? AND p.ParentId = e.EventId`, eventID)
	if err != nil {
		return nil, fmt.Errorf("eventdb: query parents of %d: %w", eventID, err)
	}
	defer rows.Close()

	var parents []dbParent
	for rows.Next() {
		var parentID int64
		var validatorID int
		var seq int
		if err := rows.Scan(&parentID, &validatorID, &seq); err != nil {
			return nil, fmt.Errorf("eventdb: scan parent of %d: %w", eventID, err)
		}
		proc, ok := procMap[validatorID]
		if !ok {
			return nil, fmt.Errorf("eventdb: parent of %d: unknown validator %d", eventID, validatorID)
		}
		parents = append(parents, dbParent{
			parentID: parentID,
			producer: proc,
			seq:      lachesis.Seq(seq - 1),
		})
	}
	return parents, rows.Err()
}

func getAtroposRow(db *sql.DB, eventID int64) (validatorID int, seq lachesis.Seq, ok bool, err error) {
	row := db.QueryRow(`SELECT Event.ValidatorId, Event.SequenceNumber FROM Atropos, Event
		WHERE Atropos.AtroposId = ? AND Event.EventId = Atropos.AtroposId`, eventID)

	var v, s int
	switch scanErr := row.Scan(&v, &s); scanErr {
	case nil:
		return v, lachesis.Seq(s), true, nil
	case sql.ErrNoRows:
		return 0, 0, false, nil
	default:
		return 0, 0, false, fmt.Errorf("eventdb: scan atropos row for %d: %w", eventID, scanErr)
	}
}
