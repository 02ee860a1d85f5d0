package domain

import "context"

// JobRepository persists bulk jobs.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetForUser(ctx context.Context, jobID, userID string) (*Job, error)
	// RecordItem advances the job counters by one processed item, and one
	// failed item when failed is true. Jobs already at total are left unchanged.
	RecordItem(ctx context.Context, jobID string, failed bool) (*Job, error)
	Finalize(ctx context.Context, jobID, userID string, status JobStatus, errMsg *string) error
}

// ArtifactRepository persists generated descriptions.
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *Artifact) error
	ListByJob(ctx context.Context, jobID, userID string) ([]Artifact, error)
}

// CreditRepository manages credit balances and usage records.
type CreditRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*Profile, error)
	// Debit subtracts amount when the balance covers it and returns the new
	// balance. It returns ErrInsufficientCredits otherwise.
	Debit(ctx context.Context, userID string, amount int) (int, error)
	SetPlan(ctx context.Context, userID string, plan UserPlan, credits *int) (*Profile, error)
	LogUsage(ctx context.Context, event UsageEvent) error
}

// BrandVoiceRepository persists brand voices. Every method is scoped to the
// owning user; voices of other users read as ErrNotFound.
type BrandVoiceRepository interface {
	GetForUser(ctx context.Context, voiceID, userID string) (*BrandVoice, error)
	// ListForUser returns the newest voice first.
	ListForUser(ctx context.Context, userID string) ([]BrandVoice, error)
	// Create and Update clear IsDefault on the user's other voices when the
	// saved voice is the default.
	Create(ctx context.Context, voice *BrandVoice) error
	Update(ctx context.Context, voice *BrandVoice) error
	Delete(ctx context.Context, voiceID, userID string) error
}
