package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/bidsfix/internal/core/pairing"
	"github.com/example/bidsfix/internal/ports/primary"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// AssignServiceImpl implements the AssignService interface.
type AssignServiceImpl struct {
	index    secondary.DatasetIndex
	executor EffectExecutor
	conv     pairing.Conventions
	logger   *zap.Logger
}

// NewAssignService creates a new AssignService with injected dependencies.
func NewAssignService(index secondary.DatasetIndex, executor EffectExecutor, conv pairing.Conventions, logger *zap.Logger) *AssignServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignServiceImpl{
		index:    index,
		executor: executor,
		conv:     conv,
		logger:   logger,
	}
}

// AssignSessions links field maps to functional runs for each requested session.
func (s *AssignServiceImpl) AssignSessions(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
	sessions := req.Sessions
	if len(sessions) == 0 {
		discovered, err := s.DiscoverSessions(ctx)
		if err != nil {
			return nil, err
		}
		sessions = discovered
	}
	sessions = s.uniqueSessions(sessions)

	results := make([]*primary.SessionAssignment, len(sessions))

	if req.Jobs < 2 {
		for i, ref := range sessions {
			res, err := s.assignSession(ctx, ref, req.DryRun)
			if err != nil {
				return &primary.AssignResponse{Sessions: results[:i]}, err
			}
			results[i] = res
		}
		return &primary.AssignResponse{Sessions: results}, nil
	}

	// Each session owns its own sidecars, so sessions can run in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Jobs)
	for i, ref := range sessions {
		g.Go(func() error {
			res, err := s.assignSession(gctx, ref, req.DryRun)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &primary.AssignResponse{Sessions: completedPrefix(results)}, err
	}
	return &primary.AssignResponse{Sessions: results}, nil
}

// DiscoverSessions lists every (subject, session) pair in the dataset,
// sorted by subject then session. Subjects without session directories are
// not listed.
func (s *AssignServiceImpl) DiscoverSessions(ctx context.Context) ([]primary.SessionRef, error) {
	records, err := s.index.Query(ctx, secondary.AcquisitionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset: %w", err)
	}

	seen := make(map[primary.SessionRef]bool)
	var sessions []primary.SessionRef
	for _, r := range records {
		if r.Session == "" {
			continue
		}
		ref := primary.SessionRef{Subject: r.Subject, Session: r.Session}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		sessions = append(sessions, ref)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Subject != sessions[j].Subject {
			return sessions[i].Subject < sessions[j].Subject
		}
		return sessions[i].Session < sessions[j].Session
	})
	return sessions, nil
}

func (s *AssignServiceImpl) assignSession(ctx context.Context, ref primary.SessionRef, dryRun bool) (*primary.SessionAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv, err := s.loadInventory(ctx, ref)
	if err != nil {
		return nil, err
	}

	plan := pairing.GenerateAssignPlan(inv, s.conv)

	effs := plan.Effects()
	if dryRun {
		effs = plan.NoticeEffects()
	}
	exec, err := s.executor.Execute(ctx, effs)
	if err != nil {
		return nil, fmt.Errorf("sub-%s/ses-%s: %w", ref.Subject, ref.Session, err)
	}

	out := &primary.SessionAssignment{
		Subject:         ref.Subject,
		Session:         ref.Session,
		Resolved:        plan.Classification.Allowed,
		Reason:          plan.Classification.Reason,
		Links:           plan.LinkedCount(),
		SidecarsWritten: exec.Written,
		SidecarsChanged: exec.Changed,
		Rows:            make([]primary.ReportRow, 0, len(plan.Rows)),
	}
	for _, row := range plan.Rows {
		out.Rows = append(out.Rows, toReportRow(row))
	}

	s.logger.Info("session processed",
		zap.String("subject", ref.Subject),
		zap.String("session", ref.Session),
		zap.Bool("resolved", out.Resolved),
		zap.Int("links", out.Links),
		zap.Int("sidecars_written", out.SidecarsWritten),
		zap.Int("sidecars_changed", out.SidecarsChanged),
		zap.Bool("dry_run", dryRun),
	)
	return out, nil
}

// loadInventory fetches the functional and field-map files of one session.
func (s *AssignServiceImpl) loadInventory(ctx context.Context, ref primary.SessionRef) (pairing.Inventory, error) {
	inv := pairing.Inventory{Subject: ref.Subject, Session: ref.Session}

	records, err := s.index.Query(ctx, secondary.AcquisitionFilter{
		Subject: ref.Subject,
		Session: ref.Session,
	})
	if err != nil {
		return inv, fmt.Errorf("failed to query sub-%s/ses-%s: %w", ref.Subject, ref.Session, err)
	}

	for _, r := range records {
		switch r.Datatype {
		case "func":
			inv.Func = append(inv.Func, toAcquisition(r))
		case "fmap":
			inv.Fmaps = append(inv.Fmaps, toAcquisition(r))
		}
	}
	return inv, nil
}

// uniqueSessions drops repeated sessions, keeping the first occurrence.
func (s *AssignServiceImpl) uniqueSessions(in []primary.SessionRef) []primary.SessionRef {
	seen := make(map[primary.SessionRef]bool, len(in))
	out := make([]primary.SessionRef, 0, len(in))
	for _, ref := range in {
		if seen[ref] {
			s.logger.Warn("session listed more than once",
				zap.String("subject", ref.Subject),
				zap.String("session", ref.Session),
			)
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// completedPrefix returns the results up to the first session that did not finish.
func completedPrefix(results []*primary.SessionAssignment) []*primary.SessionAssignment {
	for i, r := range results {
		if r == nil {
			return results[:i]
		}
	}
	return results
}

// Helper methods

func toAcquisition(r *secondary.AcquisitionRecord) pairing.Acquisition {
	return pairing.Acquisition{
		Subject:   r.Subject,
		Session:   r.Session,
		Datatype:  r.Datatype,
		Task:      r.Task,
		Run:       r.Run,
		Direction: r.Direction,
		Suffix:    r.Suffix,
		Extension: r.Extension,
		RelPath:   r.RelPath,
		Path:      r.Path,
	}
}

func toReportRow(r pairing.Row) primary.ReportRow {
	return primary.ReportRow{
		Subject:   r.Subject,
		Session:   r.Session,
		Task:      r.Task,
		Run:       r.Run,
		Direction: r.Direction,
		Suffix:    r.Suffix,
		RelPath:   r.RelPath,
		Linked:    r.Linked,
		Error:     r.Error,
	}
}

// Ensure AssignServiceImpl implements the interface
var _ primary.AssignService = (*AssignServiceImpl)(nil)
