package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/example/bidsfix/internal/core/removal"
	"github.com/example/bidsfix/internal/ports/primary"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// UnassignServiceImpl implements the UnassignService interface.
type UnassignServiceImpl struct {
	root      string
	store     secondary.SidecarStore
	executor  EffectExecutor
	field     string
	extension string
	logger    *zap.Logger
}

// NewUnassignService creates a new UnassignService for the dataset at root.
// field is the linkage field to strip; extension selects the sidecars.
func NewUnassignService(root string, store secondary.SidecarStore, executor EffectExecutor, field, extension string, logger *zap.Logger) *UnassignServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnassignServiceImpl{
		root:      root,
		store:     store,
		executor:  executor,
		field:     field,
		extension: extension,
		logger:    logger,
	}
}

// UnassignSessions strips the linkage field from the listed sessions' field-map sidecars.
func (s *UnassignServiceImpl) UnassignSessions(ctx context.Context, req primary.UnassignRequest) (*primary.UnassignResponse, error) {
	resp := &primary.UnassignResponse{}

	for _, ref := range req.Sessions {
		key := removal.SessionKey{Subject: ref.Subject, Session: ref.Session}
		if err := removal.ValidateSessionKey(key); err != nil {
			return resp, err
		}

		dir := filepath.Join(s.root, filepath.FromSlash(key.FmapDir()))
		sidecars, err := s.store.List(ctx, dir, s.extension)
		if err != nil {
			return resp, err
		}

		plan := removal.GenerateRemovalPlan(removal.RemovalPlanInput{
			Session:   key,
			Sidecars:  sidecars,
			Field:     s.field,
			Extension: s.extension,
		})

		out := &primary.SessionUnassignment{
			Subject:  ref.Subject,
			Session:  ref.Session,
			Sidecars: len(plan.SidecarOps),
		}

		if req.DryRun {
			removed, err := s.countLinked(ctx, plan)
			if err != nil {
				return resp, err
			}
			out.Removed = removed
		} else {
			exec, err := s.executor.Execute(ctx, plan.Effects())
			if err != nil {
				return resp, fmt.Errorf("%s: %w", key, err)
			}
			out.Removed = exec.Removed
		}

		if out.Sidecars == 0 {
			s.logger.Warn("no field-map sidecars found", zap.String("session", key.String()))
		}
		s.logger.Info("session unassigned",
			zap.String("session", key.String()),
			zap.Int("sidecars", out.Sidecars),
			zap.Int("removed", out.Removed),
			zap.Bool("dry_run", req.DryRun),
		)
		resp.Sessions = append(resp.Sessions, out)
	}

	return resp, nil
}

// countLinked counts the planned sidecars that carry the linkage field.
func (s *UnassignServiceImpl) countLinked(ctx context.Context, plan removal.RemovalPlan) (int, error) {
	n := 0
	for _, op := range plan.SidecarOps {
		doc, err := s.store.Load(ctx, op.Path)
		if err != nil {
			return n, err
		}
		if doc.Has(op.Field) {
			n++
		}
	}
	return n, nil
}

// Ensure UnassignServiceImpl implements the interface
var _ primary.UnassignService = (*UnassignServiceImpl)(nil)
