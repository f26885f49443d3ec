// Package pairing contains the pure business logic for linking field maps to
// functional runs. Guards are pure functions that evaluate preconditions
// without side effects; the planner turns a resolved session into effects.
package pairing

import "fmt"

// Session-level reasons reported for unresolved sessions.
const (
	ReasonNoFmapData      = "No fmap data"
	ReasonNoFuncData      = "No fmri data"
	ReasonExtraFmapPairs  = "Extra fmap pairs"
	ReasonExtraFuncOrFmap = "Extra func or too few fmaps"
	ReasonMissingRuns     = "missing run numbers"
)

// ReportScope selects which acquisitions are reported for an unresolved session.
type ReportScope int

const (
	// ScopeSession emits a single summary row for the session.
	ScopeSession ReportScope = iota
	// ScopeFunc emits one row per functional image.
	ScopeFunc
	// ScopeRest emits one row per resting-state image.
	ScopeRest
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Scope   ReportScope
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// Rule is one entry of the session cascade.
type Rule struct {
	Reason  string
	Scope   ReportScope
	Matches func(facts SessionFacts, conv Conventions) bool
}

// Rules returns the session cascade in evaluation order. The first matching
// rule decides the outcome.
func Rules() []Rule {
	return []Rule{
		{
			Reason: ReasonNoFmapData,
			Scope:  ScopeSession,
			Matches: func(f SessionFacts, _ Conventions) bool {
				return f.FmapCount == 0
			},
		},
		{
			Reason: ReasonNoFuncData,
			Scope:  ScopeSession,
			Matches: func(f SessionFacts, _ Conventions) bool {
				return len(f.RestImages) == 0 && len(f.TaskImages) == 0
			},
		},
		{
			// Task scans reserve the top field-map run; more runs than that
			// need a human to pick the right pairs.
			Reason: ReasonExtraFmapPairs,
			Scope:  ScopeFunc,
			Matches: func(f SessionFacts, c Conventions) bool {
				return len(f.FmapRuns) > c.MaxFmapRuns
			},
		},
		{
			// Usually a re-acquired resting run; partial scans must be removed first.
			Reason: ReasonExtraFuncOrFmap,
			Scope:  ScopeRest,
			Matches: func(f SessionFacts, c Conventions) bool {
				return len(f.RestRuns) > c.MaxRestRuns || len(f.FmapRuns) < len(f.RestRuns)
			},
		},
		{
			Reason: ReasonMissingRuns,
			Scope:  ScopeFunc,
			Matches: func(f SessionFacts, _ Conventions) bool {
				return len(f.MixedRunTasks) > 0
			},
		},
	}
}

// ClassifySession evaluates the cascade against the session facts.
// Allowed means pairing may proceed.
func ClassifySession(facts SessionFacts, conv Conventions) GuardResult {
	for _, rule := range Rules() {
		if rule.Matches(facts, conv) {
			return GuardResult{
				Allowed: false,
				Reason:  rule.Reason,
				Scope:   rule.Scope,
			}
		}
	}
	return GuardResult{Allowed: true}
}

// CanPairRestRun evaluates whether a resting run number has its own
// field-map pair. Resting pairs are numbered 1..MaxRestRuns and never share
// the run reserved for task scans.
func CanPairRestRun(run int, conv Conventions) GuardResult {
	if run == conv.TaskFmapRun {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rest run %d collides with task fmap run %d", run, conv.TaskFmapRun),
		}
	}

	if run < 1 || run > conv.MaxRestRuns {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rest run %d outside fmap runs 1-%d", run, conv.MaxRestRuns),
		}
	}

	return GuardResult{Allowed: true}
}

// CanLink evaluates whether a set of field-map sidecars can be linked to the
// given functional paths.
// Rules:
// - There must be functional data to link
// - There must be exactly one reversed-polarity pair of field maps
func CanLink(fmapSidecars, intendedFor []string, pairSize int) GuardResult {
	if len(intendedFor) == 0 {
		return GuardResult{
			Allowed: false,
			Reason:  "no functional data to link",
		}
	}

	if len(fmapSidecars) != pairSize {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("expected %d fmap sidecars, found %d", pairSize, len(fmapSidecars)),
		}
	}

	return GuardResult{Allowed: true}
}
