package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/sqlinline"
)

// BrandVoiceRepositoryPG stores brand_voices.
type BrandVoiceRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewBrandVoiceRepository(sql infra.SQLExecutor) *BrandVoiceRepositoryPG {
	return &BrandVoiceRepositoryPG{sql: sql}
}

func (r *BrandVoiceRepositoryPG) GetForUser(ctx context.Context, voiceID, userID string) (*domain.BrandVoice, error) {
	if !validUUID(voiceID) || !validUUID(userID) {
		return nil, domain.ErrNotFound
	}
	var v domain.BrandVoice
	row := r.sql.QueryRow(ctx, sqlinline.QSelectBrandVoiceForUser, voiceID, userID)
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.ToneAdjectives, &v.WritingSamples, &v.IsDefault, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *BrandVoiceRepositoryPG) ListForUser(ctx context.Context, userID string) ([]domain.BrandVoice, error) {
	if !validUUID(userID) {
		return nil, domain.ErrUnauthorized
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListBrandVoices, userID)
	if err != nil {
		return nil, fmt.Errorf("list brand voices: %w", err)
	}
	defer rows.Close()

	out := []domain.BrandVoice{}
	for rows.Next() {
		var v domain.BrandVoice
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.ToneAdjectives, &v.WritingSamples, &v.IsDefault, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan brand voice: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Create assigns a new id to voice.
func (r *BrandVoiceRepositoryPG) Create(ctx context.Context, voice *domain.BrandVoice) error {
	if !validUUID(voice.UserID) {
		return domain.ErrUnauthorized
	}
	voice.ID = uuid.NewString()
	row := r.sql.QueryRow(ctx, sqlinline.QInsertBrandVoice,
		voice.ID, voice.UserID, voice.Name, nonNil(voice.ToneAdjectives), nonNil(voice.WritingSamples), voice.IsDefault)
	if err := row.Scan(&voice.CreatedAt, &voice.UpdatedAt); err != nil {
		return fmt.Errorf("insert brand voice: %w", err)
	}
	return nil
}

func (r *BrandVoiceRepositoryPG) Update(ctx context.Context, voice *domain.BrandVoice) error {
	if !validUUID(voice.ID) || !validUUID(voice.UserID) {
		return domain.ErrNotFound
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateBrandVoice,
		voice.ID, voice.UserID, voice.Name, nonNil(voice.ToneAdjectives), nonNil(voice.WritingSamples), voice.IsDefault)
	if err := row.Scan(&voice.CreatedAt, &voice.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update brand voice: %w", err)
	}
	return nil
}

// Delete leaves jobs that used the voice in place; their voice_id is nulled
// by the foreign key.
func (r *BrandVoiceRepositoryPG) Delete(ctx context.Context, voiceID, userID string) error {
	if !validUUID(voiceID) || !validUUID(userID) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteBrandVoice, voiceID, userID)
	if err != nil {
		return fmt.Errorf("delete brand voice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ domain.BrandVoiceRepository = (*BrandVoiceRepositoryPG)(nil)
