package eventdb

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"lachesis-conformance/internal/lachesis"
)

// openFixtureDB creates a named, shared-cache in-memory event-db with the
// schema spec.md §6.3 names (Validator, Event, Parent, Atropos). The
// connection returned must stay open for the test's duration: Run opens
// its own *sql.DB against the same DSN, and a shared-cache memory database
// is torn down the instant its last connection closes.
func openFixtureDB(t *testing.T, name string) (*sql.DB, string) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE Validator (EpochId INTEGER, ValidatorId INTEGER, Weight INTEGER)`,
		`CREATE TABLE Event (EventId INTEGER PRIMARY KEY, EpochId INTEGER, EventHash TEXT, FrameId INTEGER, ValidatorId INTEGER, SequenceNumber INTEGER)`,
		`CREATE TABLE Parent (EventId INTEGER, ParentId INTEGER)`,
		`CREATE TABLE Atropos (AtroposId INTEGER)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db, dsn
}

// TestRunGenesisOnlyEpoch covers the base conformance path: three equal
// stake validators, three genesis events with no parents, each correctly
// filed under frame 1 (1-based) in the fixture — the simplest case the
// database driver (spec.md §6.3) must accept without divergence.
func TestRunGenesisOnlyEpoch(t *testing.T) {
	db, dsn := openFixtureDB(t, "genesis_only")

	const epoch = 1
	for v := 0; v < 3; v++ {
		if _, err := db.Exec(`INSERT INTO Validator (EpochId, ValidatorId, Weight) VALUES (?, ?, ?)`, epoch, v, 1); err != nil {
			t.Fatalf("insert validator: %v", err)
		}
	}

	for v := 0; v < 3; v++ {
		eventID := int64(v + 1)
		hash := SyntheticHash(lachesis.ProcId(v), 0)
		if _, err := db.Exec(`INSERT INTO Event (EventId, EpochId, EventHash, FrameId, ValidatorId, SequenceNumber) VALUES (?, ?, ?, ?, ?, ?)`,
			eventID, epoch, hash, 1, v, 1); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	result, err := Run(dsn, epoch, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Engine.Validators().Len() != 3 {
		t.Errorf("Validators().Len() = %d, want 3", result.Engine.Validators().Len())
	}
}

// TestRunSecondRoundWithParents extends the genesis fixture with a fourth
// event that cites all three genesis events as parents, reaching quorum and
// advancing to a second frame root. Its EventHash is derived with
// SyntheticHashWithParents so the fixture's hash actually depends on
// ancestry, the way a real wire event's hash would.
func TestRunSecondRoundWithParents(t *testing.T) {
	db, dsn := openFixtureDB(t, "second_round")

	const epoch = 1
	for v := 0; v < 3; v++ {
		if _, err := db.Exec(`INSERT INTO Validator (EpochId, ValidatorId, Weight) VALUES (?, ?, ?)`, epoch, v, 1); err != nil {
			t.Fatalf("insert validator: %v", err)
		}
	}

	genesis := make([]lachesis.Event, 3)
	for v := 0; v < 3; v++ {
		eventID := int64(v + 1)
		genesis[v] = lachesis.Event{Proc: lachesis.ProcId(v), Seq: 0}
		hash := SyntheticHash(lachesis.ProcId(v), 0)
		if _, err := db.Exec(`INSERT INTO Event (EventId, EpochId, EventHash, FrameId, ValidatorId, SequenceNumber) VALUES (?, ?, ?, ?, ?, ?)`,
			eventID, epoch, hash, 1, v, 1); err != nil {
			t.Fatalf("insert genesis event: %v", err)
		}
	}

	secondHash := SyntheticHashWithParents(0, 1, genesis)
	if _, err := db.Exec(`INSERT INTO Event (EventId, EpochId, EventHash, FrameId, ValidatorId, SequenceNumber) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(4), epoch, secondHash, 2, 0, 2); err != nil {
		t.Fatalf("insert second-round event: %v", err)
	}
	for parentID := int64(1); parentID <= 3; parentID++ {
		if _, err := db.Exec(`INSERT INTO Parent (EventId, ParentId) VALUES (?, ?)`, int64(4), parentID); err != nil {
			t.Fatalf("insert parent row: %v", err)
		}
	}

	result, err := Run(dsn, epoch, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Engine.Validators().Len() != 3 {
		t.Errorf("Validators().Len() = %d, want 3", result.Engine.Validators().Len())
	}
}

func TestRunUnknownEpochFails(t *testing.T) {
	_, dsn := openFixtureDB(t, "unknown_epoch")

	_, err := Run(dsn, 42, false)
	if err == nil {
		t.Fatal("expected error for an epoch with no validators")
	}
}
