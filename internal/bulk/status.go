package bulk

import (
	"context"
	"fmt"
	"strings"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/metrics"
)

// StatusSync reads job progress and records the terminal state chosen by
// the driver.
type StatusSync struct {
	jobs      domain.JobRepository
	artifacts domain.ArtifactRepository
	metrics   *metrics.Metrics
	log       infra.Logger
}

func NewStatusSync(jobs domain.JobRepository, artifacts domain.ArtifactRepository, m *metrics.Metrics, log infra.Logger) *StatusSync {
	return &StatusSync{jobs: jobs, artifacts: artifacts, metrics: m, log: log}
}

// GetStatus returns the job when it belongs to userID.
func (s *StatusSync) GetStatus(ctx context.Context, userID, jobID string) (*domain.Job, error) {
	return s.jobs.GetForUser(ctx, jobID, userID)
}

// SetFinalStatus moves the job to completed or failed. Repeating the call
// with the same arguments leaves the job unchanged.
func (s *StatusSync) SetFinalStatus(ctx context.Context, userID, jobID string, status domain.JobStatus, errorMessage *string) error {
	if !status.IsFinal() {
		return domain.InvalidArgument("Invalid status")
	}
	if errorMessage != nil {
		trimmed := strings.TrimSpace(*errorMessage)
		if trimmed == "" {
			errorMessage = nil
		} else {
			errorMessage = &trimmed
		}
	}
	if err := s.jobs.Finalize(ctx, jobID, userID, status, errorMessage); err != nil {
		return err
	}
	s.metrics.JobFinalized(string(status))
	s.log.Info().Str("job_id", jobID).Str("status", string(status)).Msg("bulk job finalized")
	return nil
}

// ListDescriptions returns the artifacts produced for a job owned by userID.
func (s *StatusSync) ListDescriptions(ctx context.Context, userID, jobID string) ([]domain.Artifact, error) {
	if _, err := s.jobs.GetForUser(ctx, jobID, userID); err != nil {
		return nil, err
	}
	items, err := s.artifacts.ListByJob(ctx, jobID, userID)
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	if items == nil {
		items = []domain.Artifact{}
	}
	return items, nil
}
