// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/bidsfix/internal/core/effects"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place sidecars are written.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) (ExecutionResult, error)
}

// ExecutionResult counts what the executed effects did to the dataset.
type ExecutionResult struct {
	Written int // sidecars rewritten
	Changed int // rewritten sidecars whose canonical content differs
	Removed int // sidecars that lost a field
}

func (r *ExecutionResult) add(o ExecutionResult) {
	r.Written += o.Written
	r.Changed += o.Changed
	r.Removed += o.Removed
}

// DefaultEffectExecutor implements EffectExecutor against a sidecar store.
type DefaultEffectExecutor struct {
	store  secondary.SidecarStore
	logger *zap.Logger
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(store secondary.SidecarStore, logger *zap.Logger) *DefaultEffectExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultEffectExecutor{store: store, logger: logger}
}

// Execute processes a slice of effects, executing each in sequence.
// Execution stops at the first failure; the result covers the effects
// applied before it.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) (ExecutionResult, error) {
	var total ExecutionResult
	for _, eff := range effs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := e.executeOne(ctx, eff)
		total.add(res)
		if err != nil {
			return total, fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return total, nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) (ExecutionResult, error) {
	switch typed := eff.(type) {
	case effects.SidecarEffect:
		return e.executeSidecar(ctx, typed)
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return ExecutionResult{}, nil
	case effects.LogEffect:
		e.executeLog(typed)
		return ExecutionResult{}, nil
	default:
		return ExecutionResult{}, fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeSidecar(ctx context.Context, eff effects.SidecarEffect) (ExecutionResult, error) {
	var res ExecutionResult

	doc, err := e.store.Load(ctx, eff.Path)
	if err != nil {
		return res, err
	}
	before, err := doc.Digest()
	if err != nil {
		return res, fmt.Errorf("%s: %w", eff.Path, err)
	}

	switch eff.Operation {
	case effects.SidecarSetField:
		doc.SetStrings(eff.Field, eff.Values)
	case effects.SidecarRemoveField:
		if doc.Remove(eff.Field) {
			res.Removed = 1
		}
	default:
		return res, fmt.Errorf("unknown sidecar operation: %s", eff.Operation)
	}

	if err := doc.ValidateField(eff.Field); err != nil {
		return res, fmt.Errorf("%s: %w", eff.Path, err)
	}
	if err := e.store.Save(ctx, eff.Path, doc); err != nil {
		return res, err
	}
	res.Written = 1

	after, err := doc.Digest()
	if err != nil {
		return res, fmt.Errorf("%s: %w", eff.Path, err)
	}
	if after != before {
		res.Changed = 1
	}

	e.logger.Debug("sidecar rewritten",
		zap.String("path", eff.Path),
		zap.String("operation", eff.Operation),
		zap.String("field", eff.Field),
		zap.Bool("changed", res.Changed == 1),
	)
	return res, nil
}

func (e *DefaultEffectExecutor) executeLog(eff effects.LogEffect) {
	fields := make([]zap.Field, 0, len(eff.Fields))
	for k, v := range eff.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch eff.Level {
	case "debug":
		e.logger.Debug(eff.Message, fields...)
	case "warn":
		e.logger.Warn(eff.Message, fields...)
	case "error":
		e.logger.Error(eff.Message, fields...)
	default:
		e.logger.Info(eff.Message, fields...)
	}
}
