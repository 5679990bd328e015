package lachesis

import "testing"

// TestQuorumFormula covers P8: Quorum = floor(2*TotalStake/3)+1.
func TestQuorumFormula(t *testing.T) {
	cases := []struct {
		stake []Stake
		want  Stake
	}{
		{[]Stake{1, 1, 1}, 3},      // total 3: floor(2)=2, +1=3
		{[]Stake{1, 1, 1, 2}, 4},   // total 5: floor(10/3)=3, +1=4
		{[]Stake{10}, 7},           // total 10: floor(20/3)=6, +1=7
		{[]Stake{1, 1}, 2},         // total 2: floor(4/3)=1, +1=2
	}
	for _, c := range cases {
		v := NewValidators(c.stake)
		if got := v.Quorum(); got != c.want {
			t.Errorf("NewValidators(%v).Quorum() = %d, want %d", c.stake, got, c.want)
		}
	}
}

func TestSortedProcsTieBreak(t *testing.T) {
	v := NewValidators([]Stake{1, 1, 1, 2})
	got := v.SortedProcs()
	want := []ProcId{3, 0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("SortedProcs length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SortedProcs()[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestValidatorsValid(t *testing.T) {
	v := NewValidators([]Stake{1, 1, 1})
	if !v.Valid(0) || !v.Valid(2) {
		t.Error("in-range processor ids rejected")
	}
	if v.Valid(-1) || v.Valid(3) {
		t.Error("out-of-range processor ids accepted")
	}
}

func TestNewValidatorsPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic constructing Validators with no participants")
		}
	}()
	NewValidators(nil)
}
