package pairing

import (
	"fmt"

	"github.com/example/bidsfix/internal/core/effects"
)

// Row is one line of the assignment report.
type Row struct {
	Subject   string
	Session   string
	Task      string
	Run       string
	Direction string
	Suffix    string
	RelPath   string
	Linked    bool
	Error     string
}

// Link is one attempt to pair field maps with functional images.
type Link struct {
	Label        string // e.g., "rest run-1", "task"
	FmapSidecars []string
	IntendedFor  []string
	Result       GuardResult
}

// AssignPlan represents the planned effects and report for one session.
type AssignPlan struct {
	Subject        string
	Session        string
	Classification GuardResult
	Links          []Link
	Rows           []Row
	SidecarOps     []effects.SidecarEffect
	Notices        []effects.LogEffect
}

// Effects returns all effects as a flat slice for execution.
// Notices come first so a failed write is logged after them.
func (p AssignPlan) Effects() []effects.Effect {
	result := make([]effects.Effect, 0, len(p.Notices)+len(p.SidecarOps))
	for _, e := range p.Notices {
		result = append(result, e)
	}
	for _, e := range p.SidecarOps {
		result = append(result, e)
	}
	return result
}

// NoticeEffects returns only the log effects, for runs that must not write.
func (p AssignPlan) NoticeEffects() []effects.Effect {
	result := make([]effects.Effect, 0, len(p.Notices))
	for _, e := range p.Notices {
		result = append(result, e)
	}
	return result
}

// LinkedCount returns the number of successful links in the plan.
func (p AssignPlan) LinkedCount() int {
	n := 0
	for _, l := range p.Links {
		if l.Result.Allowed {
			n++
		}
	}
	return n
}

// GenerateAssignPlan creates the linkage plan for one session.
// This is a pure function - the inventory must be pre-fetched.
func GenerateAssignPlan(inv Inventory, conv Conventions) AssignPlan {
	facts := inv.Facts(conv)
	plan := AssignPlan{
		Subject:        inv.Subject,
		Session:        inv.Session,
		Classification: ClassifySession(facts, conv),
	}

	if !plan.Classification.Allowed {
		plan.Rows = unresolvedRows(inv, facts, plan.Classification)
		plan.Notices = append(plan.Notices, effects.LogEffect{
			Level:   "info",
			Message: "session not resolved",
			Fields:  map[string]any{"subject": inv.Subject, "session": inv.Session, "reason": plan.Classification.Reason},
		})
		return plan
	}

	// 1. Resting-state runs without run numbers: a single run, paired with
	// field-map run 1 or, when field maps carry no runs either, all of them.
	if len(facts.RestRuns) == 0 && len(facts.RestImages) > 0 {
		keep := anyRun
		if len(facts.FmapRuns) > 0 {
			keep = runIs(1)
		}
		plan.link(inv, conv, "rest", inv.fmapSidecars(conv, keep), facts.RestImages)
	}

	// 2. One field-map pair per resting run number.
	for _, run := range facts.RestRuns {
		var images []Acquisition
		for _, im := range facts.RestImages {
			if n, ok := im.RunNumber(); ok && n == run {
				images = append(images, im)
			}
		}
		label := fmt.Sprintf("rest run-%d", run)
		if check := CanPairRestRun(run, conv); !check.Allowed {
			plan.Links = append(plan.Links, Link{Label: label, Result: check})
			plan.reject(inv, label, check, images)
			continue
		}
		plan.link(inv, conv, label, inv.fmapSidecars(conv, runIs(run)), images)
	}

	// 3. Task scans all share the reserved field-map run.
	if len(facts.TaskImages) > 0 {
		plan.link(inv, conv, "task", inv.fmapSidecars(conv, runIs(conv.TaskFmapRun)), facts.TaskImages)
	}

	return plan
}

// link records a pairing attempt, its sidecar effects and its report rows.
func (p *AssignPlan) link(inv Inventory, conv Conventions, label string, sidecars []string, images []Acquisition) {
	intended := intendedForPaths(inv.Subject, images)
	result := CanLink(sidecars, intended, conv.PairSize)
	p.Links = append(p.Links, Link{
		Label:        label,
		FmapSidecars: sidecars,
		IntendedFor:  intended,
		Result:       result,
	})

	if !result.Allowed {
		p.reject(inv, label, result, images)
		return
	}

	for _, path := range sidecars {
		p.SidecarOps = append(p.SidecarOps, effects.SidecarEffect{
			Operation: effects.SidecarSetField,
			Path:      path,
			Field:     conv.LinkageField,
			Values:    intended,
		})
	}
	for _, im := range images {
		p.Rows = append(p.Rows, imageRow(im, true, ""))
	}
}

// reject reports images whose field maps could not be linked.
func (p *AssignPlan) reject(inv Inventory, label string, result GuardResult, images []Acquisition) {
	p.Notices = append(p.Notices, effects.LogEffect{
		Level:   "warn",
		Message: "field maps not linked",
		Fields:  map[string]any{"subject": inv.Subject, "session": inv.Session, "link": label, "reason": result.Reason},
	})
	for _, im := range images {
		p.Rows = append(p.Rows, imageRow(im, false, result.Reason))
	}
}

func unresolvedRows(inv Inventory, facts SessionFacts, result GuardResult) []Row {
	var images []Acquisition
	switch result.Scope {
	case ScopeFunc:
		images = facts.FuncImages
	case ScopeRest:
		images = facts.RestImages
	}

	if len(images) == 0 {
		return []Row{{
			Subject:   inv.Subject,
			Session:   inv.Session,
			Task:      NotApplicable,
			Run:       NotApplicable,
			Direction: NotApplicable,
			Suffix:    NotApplicable,
			RelPath:   NotApplicable,
			Linked:    false,
			Error:     result.Reason,
		}}
	}

	rows := make([]Row, 0, len(images))
	for _, im := range images {
		rows = append(rows, imageRow(im, false, result.Reason))
	}
	return rows
}

func imageRow(im Acquisition, linked bool, reason string) Row {
	return Row{
		Subject:   im.Subject,
		Session:   im.Session,
		Task:      orNA(im.Task),
		Run:       im.ReportRun(),
		Direction: orNA(im.Direction),
		Suffix:    orNA(im.Suffix),
		RelPath:   im.RelPath,
		Linked:    linked,
		Error:     reason,
	}
}

func orNA(s string) string {
	if s == "" {
		return NotApplicable
	}
	return s
}
