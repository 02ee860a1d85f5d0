package repo

import (
	"context"
	"fmt"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/sqlinline"
)

// ArtifactRepositoryPG stores generated descriptions.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

func (r *ArtifactRepositoryPG) Save(ctx context.Context, a *domain.Artifact) error {
	var jobID *string
	if a.JobID != "" {
		jobID = &a.JobID
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertDescription,
		a.UserID,
		jobID,
		a.ItemIndex,
		a.Item.ProductName,
		a.Item.Category,
		a.Item.Features,
		a.Item.Audience,
		a.Item.StoredTone(),
		a.Descriptions.SEO,
		a.Descriptions.Emotional,
		a.Descriptions.Short,
		a.SourceImageKey,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert description: %w", err)
	}
	return nil
}

func (r *ArtifactRepositoryPG) ListByJob(ctx context.Context, jobID, userID string) ([]domain.Artifact, error) {
	if !validUUID(jobID) || !validUUID(userID) {
		return nil, domain.ErrNotFound
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectJobDescriptions, jobID, userID)
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.JobID,
			&a.ItemIndex,
			&a.Item.ProductName,
			&a.Item.Category,
			&a.Item.Features,
			&a.Item.Audience,
			&a.Item.Tone,
			&a.Descriptions.SEO,
			&a.Descriptions.Emotional,
			&a.Descriptions.Short,
			&a.SourceImageKey,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan description: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
