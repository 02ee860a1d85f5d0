package bulk

import (
	"context"
	"strings"

	"descriptai/internal/domain"
)

const (
	maxVoiceAdjectives = 10
	maxVoiceSamples    = 5
	maxAdjectiveLen    = 40
	maxSampleLen       = 2000
)

// VoiceInput is the editable part of a brand voice.
type VoiceInput struct {
	Name           string   `json:"name" validate:"required,max=100"`
	ToneAdjectives []string `json:"tone_adjectives"`
	WritingSamples []string `json:"writing_samples"`
	IsDefault      bool     `json:"is_default"`
}

// normalized trims every field and drops blank list entries.
func (in VoiceInput) normalized() VoiceInput {
	in.Name = strings.TrimSpace(in.Name)
	in.ToneAdjectives = compact(in.ToneAdjectives)
	in.WritingSamples = compact(in.WritingSamples)
	return in
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (in VoiceInput) validate() error {
	fields := validateStruct(in, "")
	if len(in.ToneAdjectives) > maxVoiceAdjectives {
		fields["tone_adjectives"] = "At most 10 tone adjectives are allowed."
	}
	for _, a := range in.ToneAdjectives {
		if len(a) > maxAdjectiveLen {
			fields["tone_adjectives"] = "Each tone adjective must be no longer than 40 characters."
		}
	}
	if len(in.WritingSamples) > maxVoiceSamples {
		fields["writing_samples"] = "At most 5 writing samples are allowed."
	}
	for _, s := range in.WritingSamples {
		if len(s) > maxSampleLen {
			fields["writing_samples"] = "Each writing sample must be no longer than 2000 characters."
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: firstMessage(fields), Fields: fields}
}

// Voices manages the caller's brand voices.
type Voices struct {
	repo domain.BrandVoiceRepository
}

func NewVoices(repo domain.BrandVoiceRepository) *Voices {
	return &Voices{repo: repo}
}

func (v *Voices) List(ctx context.Context, userID string) ([]domain.BrandVoice, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return v.repo.ListForUser(ctx, userID)
}

func (v *Voices) Get(ctx context.Context, userID, voiceID string) (*domain.BrandVoice, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return v.repo.GetForUser(ctx, voiceID, userID)
}

func (v *Voices) Create(ctx context.Context, userID string, in VoiceInput) (*domain.BrandVoice, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	in = in.normalized()
	if err := in.validate(); err != nil {
		return nil, err
	}
	voice := in.voice(userID, "")
	if err := v.repo.Create(ctx, voice); err != nil {
		return nil, err
	}
	return voice, nil
}

// Update replaces every editable field of the voice.
func (v *Voices) Update(ctx context.Context, userID, voiceID string, in VoiceInput) (*domain.BrandVoice, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, domain.InvalidArgument("Voice ID is required")
	}
	in = in.normalized()
	if err := in.validate(); err != nil {
		return nil, err
	}
	voice := in.voice(userID, voiceID)
	if err := v.repo.Update(ctx, voice); err != nil {
		return nil, err
	}
	return voice, nil
}

func (v *Voices) Delete(ctx context.Context, userID, voiceID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUnauthorized
	}
	if strings.TrimSpace(voiceID) == "" {
		return domain.InvalidArgument("Voice ID is required")
	}
	return v.repo.Delete(ctx, voiceID, userID)
}

func (in VoiceInput) voice(userID, voiceID string) *domain.BrandVoice {
	return &domain.BrandVoice{
		ID:             voiceID,
		UserID:         userID,
		Name:           in.Name,
		ToneAdjectives: in.ToneAdjectives,
		WritingSamples: in.WritingSamples,
		IsDefault:      in.IsDefault,
	}
}
