package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/metrics"
)

// Limits caps the size of a single upload.
type Limits struct {
	MaxTextItems  int
	MaxImageItems int
}

// DefaultLimits are the per-upload caps used when none are configured.
var DefaultLimits = Limits{MaxTextItems: 100, MaxImageItems: 5}

func (l Limits) max(kind domain.JobKind) int {
	if kind == domain.JobKindImage {
		return l.MaxImageItems
	}
	return l.MaxTextItems
}

// JobRequest asks for a new job. Text uploads send Items; image uploads
// announce ItemCount and stream the images later.
type JobRequest struct {
	Kind      domain.JobKind
	ItemCount int
	Items     []domain.WorkItem
	VoiceID   string
}

func (r JobRequest) count() int {
	if len(r.Items) > 0 {
		return len(r.Items)
	}
	return r.ItemCount
}

// UploadGate admits jobs that fit the upload caps and the caller's balance.
type UploadGate struct {
	jobs    domain.JobRepository
	credits domain.CreditRepository
	voices  domain.BrandVoiceRepository
	limits  Limits
	metrics *metrics.Metrics
	log     infra.Logger
}

// GateDeps wires an UploadGate.
type GateDeps struct {
	Jobs    domain.JobRepository
	Credits domain.CreditRepository
	Voices  domain.BrandVoiceRepository
	Limits  Limits
	Metrics *metrics.Metrics
	Logger  infra.Logger
}

func NewUploadGate(d GateDeps) *UploadGate {
	limits := d.Limits
	if limits.MaxTextItems <= 0 {
		limits.MaxTextItems = DefaultLimits.MaxTextItems
	}
	if limits.MaxImageItems <= 0 {
		limits.MaxImageItems = DefaultLimits.MaxImageItems
	}
	return &UploadGate{
		jobs:    d.Jobs,
		credits: d.Credits,
		voices:  d.Voices,
		limits:  limits,
		metrics: d.Metrics,
		log:     d.Logger,
	}
}

// CreateJob validates the request and opens a job in processing with zero
// counters. No credits are consumed here.
func (g *UploadGate) CreateJob(ctx context.Context, userID string, req JobRequest) (*domain.Job, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if req.Kind == "" {
		req.Kind = domain.JobKindText
	}
	if !req.Kind.Valid() {
		return nil, domain.InvalidArgument("unsupported job kind %q", req.Kind)
	}

	count := req.count()
	if count <= 0 {
		if req.Kind == domain.JobKindImage {
			return nil, domain.InvalidArgument("Invalid item count")
		}
		return nil, domain.InvalidArgument("No items provided")
	}
	if limit := g.limits.max(req.Kind); count > limit {
		return nil, &domain.QuotaError{Kind: req.Kind, Max: limit}
	}
	if req.Kind == domain.JobKindText && len(req.Items) > 0 {
		if err := ValidateItems(req.Items); err != nil {
			return nil, err
		}
	}

	profile, err := g.credits.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	if profile.CreditsRemaining < count {
		return nil, &domain.CreditShortfall{Balance: profile.CreditsRemaining, Required: count}
	}

	job := &domain.Job{
		UserID:     userID,
		Kind:       req.Kind,
		TotalItems: count,
	}
	if voiceID := strings.TrimSpace(req.VoiceID); voiceID != "" {
		voice, err := g.voices.GetForUser(ctx, voiceID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("brand voice: %w", domain.ErrNotFound)
			}
			return nil, fmt.Errorf("load brand voice: %w", err)
		}
		job.VoiceID = &voice.ID
	}

	if err := g.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	g.metrics.JobCreated(string(job.Kind))
	g.log.Info().
		Str("job_id", job.ID).
		Str("user_id", userID).
		Str("kind", string(job.Kind)).
		Int("total_items", job.TotalItems).
		Msg("bulk job created")
	return job, nil
}
