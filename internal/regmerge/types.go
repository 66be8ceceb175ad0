package regmerge

// OptimizerOptions controls what Optimize does to an edit list.
//
// The optimizer operates on []types.EditOp (from one or more parsed .reg
// files) and produces an execution-ready list with the same final effect.
type OptimizerOptions struct {
	// Dedup keeps only the last write to each (key, value) pair.
	// Example: Two SetValue ops on the same value → keep only the last one.
	Dedup bool

	// DeleteShadowing removes operations under a key that a later
	// DeleteKey removes anyway.
	DeleteShadowing bool

	// Ordering groups operations by key, parents before children. Within a
	// key: DeleteKey, CreateKey, DeleteValue, SetValue.
	Ordering bool

	// SubtreeDeletes drops DeleteKey ops covered by a later delete of the
	// same key or an ancestor.
	SubtreeDeletes bool
}

// DefaultOptimizerOptions enables every optimization.
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		Dedup:           true,
		DeleteShadowing: true,
		Ordering:        true,
		SubtreeDeletes:  true,
	}
}

// Stats tracks what the optimizer did.
type Stats struct {
	// InputOps is the number of operations before optimization.
	InputOps int

	// OutputOps is the number of operations after optimization.
	OutputOps int

	// DedupedSetValue counts value writes and deletes overwritten by a later
	// op on the same (key, value) pair.
	DedupedSetValue int

	// ShadowedByDelete counts ops removed because a later DeleteKey covers
	// their key.
	// Example: SetValue(HKLM\Software\Test\Child, ...) removed when
	// DeleteKey(HKLM\Software\Test) follows it.
	ShadowedByDelete int

	// SubtreeOptimized counts DeleteKey ops made redundant by a later one.
	SubtreeOptimized int

	// ParentsKept counts CreateKey ops added so the ancestors a shadowed op
	// would have created still exist.
	ParentsKept int
}

// ReductionPercent returns the percentage of operations eliminated.
func (s Stats) ReductionPercent() float64 {
	if s.InputOps == 0 {
		return 0
	}
	return float64(s.InputOps-s.OutputOps) / float64(s.InputOps) * 100
}
