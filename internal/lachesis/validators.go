package lachesis

import "sort"

// Validators is the immutable, per-instance stake registry: weights fixed
// at construction, total stake, quorum threshold, and the deterministic
// stake-descending tie-break order used by the atropos elector.
//
// The teacher repo's ValidatorSet (src/validator.go) guards a mutable,
// string-keyed registry with a sync.RWMutex because validators can join,
// leave, or be slashed at runtime. Lachesis's local decision procedure runs
// single-threaded against a fixed participant count (spec.md §5), so this
// is a plain dense-array registry with no locking and no mutation API.
type Validators struct {
	stake       []Stake
	totalStake  Stake
	quorum      Stake
	sortedProcs []ProcId
}

// NewValidators builds a registry for n participants with the given
// per-participant stake. Panics if n <= 0 or the stakes don't sum to a
// positive total, matching construct()'s precondition in spec.md §6.1.
func NewValidators(stake []Stake) *Validators {
	assertf(len(stake) > 0, "participant count must be positive")

	var total Stake
	for _, s := range stake {
		total += s
	}
	assertf(total > 0, "total stake must be positive")

	sorted := make([]ProcId, len(stake))
	for i := range sorted {
		sorted[i] = ProcId(i)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if stake[a] != stake[b] {
			return stake[a] > stake[b]
		}
		return a < b
	})

	return &Validators{
		stake:       append([]Stake(nil), stake...),
		totalStake:  total,
		quorum:      Stake(2*total/3) + 1,
		sortedProcs: sorted,
	}
}

// Len returns the number of participants, N.
func (v *Validators) Len() int { return len(v.stake) }

// Stake returns the immutable weight of p.
func (v *Validators) Stake(p ProcId) Stake { return v.stake[p] }

// TotalStake returns the sum of all participant weights.
func (v *Validators) TotalStake() Stake { return v.totalStake }

// Quorum returns floor(2*TotalStake/3) + 1.
func (v *Validators) Quorum() Stake { return v.quorum }

// SortedProcs returns participants in descending-stake order, ties broken
// by ascending ProcId — the order choose_atropos() walks.
func (v *Validators) SortedProcs() []ProcId { return v.sortedProcs }

// Valid reports whether p is within [0, N).
func (v *Validators) Valid(p ProcId) bool { return p >= 0 && int(p) < len(v.stake) }
