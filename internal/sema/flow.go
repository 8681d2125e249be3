package sema

// Reachability is the ternary flow-analysis value from spec.md §4.2:
// "Reachability uses ternary logic." Always/Never are the definite
// extremes; Maybe covers control flow the analysis can't collapse
// further (e.g. an `if` with only one branch terminating).
type Reachability int

const (
	Always Reachability = iota
	Never
	Maybe
)

// and is reachability through sequential composition: if the first part
// never completes, nothing after it is reachable via that path.
func (r Reachability) and(next Reachability) Reachability {
	if r == Never {
		return Never
	}
	if r == Always {
		return next
	}
	// r == Maybe: the tail is reached only on the paths where r did
	// complete. If next never completes on any of those paths, nothing
	// after it is reachable; otherwise the result stays Maybe.
	if next == Never {
		return Never
	}
	return Maybe
}

// mergeBranches combines the reachability of two alternative paths (e.g.
// an if/else's Then and Else arms) into the reachability of code that
// follows the construct: reachable if at least one branch can fall
// through.
func mergeBranches(a, b Reachability) Reachability {
	if a == Never && b == Never {
		return Never
	}
	if a == Always && b == Always {
		return Always
	}
	return Maybe
}

// loopReachability is the reachability after a loop construct. An
// unconditional `loop` with no `break` never falls through; any other
// loop form's continuation reachability is Maybe (the condition may be
// false immediately, or a break may fire), unless it's statically
// provable always-false (constant-folded `while (false)`), which this
// analysis does not attempt — it stays conservative and reports Maybe.
func loopReachability(hasBreak bool, isUnconditional bool) Reachability {
	if isUnconditional && !hasBreak {
		return Never
	}
	return Maybe
}
