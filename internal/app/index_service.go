package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/bidsfix/internal/ports/primary"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// IndexServiceImpl implements the IndexService interface.
type IndexServiceImpl struct {
	scanner secondary.DatasetScanner
	store   secondary.IndexStore
	logger  *zap.Logger
}

// NewIndexService creates a new IndexService with injected dependencies.
func NewIndexService(scanner secondary.DatasetScanner, store secondary.IndexStore, logger *zap.Logger) *IndexServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexServiceImpl{
		scanner: scanner,
		store:   store,
		logger:  logger,
	}
}

// BuildIndex scans the dataset and replaces the stored index.
func (s *IndexServiceImpl) BuildIndex(ctx context.Context) (*primary.BuildIndexResponse, error) {
	records, err := s.scanner.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if err := s.store.Replace(ctx, s.scanner.Root(), records); err != nil {
		return nil, fmt.Errorf("failed to store index: %w", err)
	}

	subjects := make(map[string]bool)
	sessions := make(map[primary.SessionRef]bool)
	for _, r := range records {
		subjects[r.Subject] = true
		if r.Session != "" {
			sessions[primary.SessionRef{Subject: r.Subject, Session: r.Session}] = true
		}
	}

	resp := &primary.BuildIndexResponse{
		Root:     s.scanner.Root(),
		Records:  len(records),
		Subjects: len(subjects),
		Sessions: len(sessions),
	}
	s.logger.Info("index built",
		zap.String("root", resp.Root),
		zap.Int("records", resp.Records),
		zap.Int("subjects", resp.Subjects),
		zap.Int("sessions", resp.Sessions),
	)
	return resp, nil
}

// Ensure IndexServiceImpl implements the interface
var _ primary.IndexService = (*IndexServiceImpl)(nil)
