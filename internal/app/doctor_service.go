package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/bidsfix/internal/ports/primary"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// DoctorServiceImpl implements the DoctorService interface.
type DoctorServiceImpl struct {
	index     secondary.DatasetIndex
	store     secondary.SidecarStore
	field     string
	extension string
	logger    *zap.Logger
}

// NewDoctorService creates a new DoctorService with injected dependencies.
func NewDoctorService(index secondary.DatasetIndex, store secondary.SidecarStore, field, extension string, logger *zap.Logger) *DoctorServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorServiceImpl{
		index:     index,
		store:     store,
		field:     field,
		extension: extension,
		logger:    logger,
	}
}

// CheckSidecars validates every field-map sidecar against the sidecar schema
// and checks that each linkage target exists in the dataset.
// Unreadable sidecars are findings, not errors.
func (s *DoctorServiceImpl) CheckSidecars(ctx context.Context) (*primary.DoctorReport, error) {
	all, err := s.index.Query(ctx, secondary.AcquisitionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset: %w", err)
	}

	present := make(map[string]bool, len(all))
	var sidecars []*secondary.AcquisitionRecord
	for _, r := range all {
		present[r.RelPath] = true
		if r.Datatype == "fmap" && r.Extension == secondary.NormalizeExtension(s.extension) {
			sidecars = append(sidecars, r)
		}
	}

	report := &primary.DoctorReport{}
	for _, r := range sidecars {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		report.Findings = append(report.Findings, s.checkSidecar(ctx, r, present)...)
	}

	s.logger.Info("sidecars checked",
		zap.Int("checked", report.Checked),
		zap.Int("findings", len(report.Findings)),
	)
	return report, nil
}

func (s *DoctorServiceImpl) checkSidecar(ctx context.Context, r *secondary.AcquisitionRecord, present map[string]bool) []primary.Finding {
	doc, err := s.store.Load(ctx, r.Path)
	if err != nil {
		return []primary.Finding{{RelPath: r.RelPath, Problem: err.Error()}}
	}

	var findings []primary.Finding
	if err := doc.Validate(); err != nil {
		findings = append(findings, primary.Finding{RelPath: r.RelPath, Problem: err.Error()})
	}

	targets, ok := doc.Strings(s.field)
	if !ok {
		return findings
	}
	for _, target := range targets {
		// Linkage targets are relative to the subject directory.
		if !present["sub-"+r.Subject+"/"+target] {
			findings = append(findings, primary.Finding{
				RelPath: r.RelPath,
				Problem: fmt.Sprintf("%s target not found: %s", s.field, target),
			})
		}
	}
	return findings
}

// Ensure DoctorServiceImpl implements the interface
var _ primary.DoctorService = (*DoctorServiceImpl)(nil)
