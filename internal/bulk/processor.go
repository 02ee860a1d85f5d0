package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"descriptai/internal/domain"
	"descriptai/internal/generation"
	"descriptai/internal/infra"
	"descriptai/internal/metrics"
	"descriptai/internal/providers/textgen"
	"descriptai/internal/storage"
)

// DefaultMaxImageBytes caps a single image upload.
const DefaultMaxImageBytes = 10 << 20

// ChunkProcessor handles one item of a job per call. It keeps no state
// between calls; the job row is the only shared record.
type ChunkProcessor struct {
	jobs          domain.JobRepository
	artifacts     domain.ArtifactRepository
	credits       domain.CreditRepository
	voices        domain.BrandVoiceRepository
	text          TextGenerator
	vision        ImageAnalyzer
	images        storage.ObjectStore
	maxImageBytes int64
	metrics       *metrics.Metrics
	log           infra.Logger
	now           func() time.Time
}

// ProcessorDeps wires a ChunkProcessor. Vision and Images are only needed
// for image jobs.
type ProcessorDeps struct {
	Jobs          domain.JobRepository
	Artifacts     domain.ArtifactRepository
	Credits       domain.CreditRepository
	Voices        domain.BrandVoiceRepository
	Text          TextGenerator
	Vision        ImageAnalyzer
	Images        storage.ObjectStore
	MaxImageBytes int64
	Metrics       *metrics.Metrics
	Logger        infra.Logger
}

func NewChunkProcessor(d ProcessorDeps) *ChunkProcessor {
	maxBytes := d.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ChunkProcessor{
		jobs:          d.Jobs,
		artifacts:     d.Artifacts,
		credits:       d.Credits,
		voices:        d.Voices,
		text:          d.Text,
		vision:        d.Vision,
		images:        d.Images,
		maxImageBytes: maxBytes,
		metrics:       d.Metrics,
		log:           d.Logger,
		now:           time.Now,
	}
}

// ProcessItem generates descriptions for one text item.
//
// Errors are returned only when the call did not count against the job:
// unknown job, bad index, a dropped request or a storage failure. Every
// other outcome, an upstream rate limit included, advances processed_items
// and is reported in the result.
func (p *ChunkProcessor) ProcessItem(ctx context.Context, userID, jobID string, index int, item domain.WorkItem) (*ChunkResult, error) {
	start := p.now()
	job, err := p.loadJob(ctx, userID, jobID, index, domain.JobKindText)
	if err != nil {
		return nil, err
	}
	item = item.Normalized()
	log := p.log.With().Str("job_id", job.ID).Int("index", index).Logger()

	if err := ValidateItem(item); err != nil {
		log.Warn().Err(err).Msg("invalid bulk item")
		return p.fail(ctx, job, index, domain.JobKindText, err.Error(), start)
	}

	descriptions, reason, err := p.generate(ctx, job, item)
	if err != nil {
		return nil, p.abort(domain.JobKindText, start, err)
	}
	if reason != "" {
		log.Warn().Str("reason", reason).Msg("bulk item generation failed")
		return p.fail(ctx, job, index, domain.JobKindText, reason, start)
	}

	artifact := &domain.Artifact{
		UserID:       userID,
		JobID:        job.ID,
		ItemIndex:    index,
		Item:         item,
		Descriptions: descriptions,
	}
	return p.succeed(ctx, job, artifact, nil, domain.UsageBulkItem, start)
}

// ProcessImageItem analyses the image, then generates descriptions from the
// extracted attributes with the professional tone.
func (p *ChunkProcessor) ProcessImageItem(ctx context.Context, userID, jobID string, index int, img domain.ImageInput) (*ChunkResult, error) {
	start := p.now()
	if err := p.checkImage(img); err != nil {
		p.metrics.ObserveChunk(string(domain.JobKindImage), metrics.OutcomeRejected, p.now().Sub(start))
		return nil, err
	}
	job, err := p.loadJob(ctx, userID, jobID, index, domain.JobKindImage)
	if err != nil {
		return nil, err
	}
	log := p.log.With().Str("job_id", job.ID).Int("index", index).Logger()
	if p.vision == nil {
		return nil, fmt.Errorf("image analysis: %w", domain.ErrProviderFailure)
	}

	raw, err := p.vision.AnalyzeImage(ctx, img.MimeType, img.Data, generation.AnalysisPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, p.abort(domain.JobKindImage, start, err)
		}
		p.upstreamLimited(err)
		log.Warn().Err(err).Msg("image analysis failed")
		return p.fail(ctx, job, index, domain.JobKindImage, MsgAnalysisFailed, start)
	}
	parsed := generation.ParseAttributes(raw)
	if !parsed.OK() {
		log.Warn().Str("reason", parsed.Reason).Msg("image analysis unparseable")
		return p.fail(ctx, job, index, domain.JobKindImage, MsgAnalysisFailed, start)
	}
	extracted := parsed.Value.WithDefaults()
	item := extracted.WorkItem()

	descriptions, reason, err := p.generate(ctx, job, item)
	if err != nil {
		return nil, p.abort(domain.JobKindImage, start, err)
	}
	if reason != "" {
		if reason == MsgParseFailed {
			reason = MsgGenerationFailed
		}
		log.Warn().Str("reason", reason).Msg("image item generation failed")
		return p.fail(ctx, job, index, domain.JobKindImage, reason, start)
	}

	// Image artifacts keep the lowercase default tone.
	stored := item
	stored.Tone = ""
	artifact := &domain.Artifact{
		UserID:       userID,
		JobID:        job.ID,
		ItemIndex:    index,
		Item:         stored,
		Descriptions: descriptions,
	}
	if p.images != nil {
		key, err := p.images.Put(ctx, storage.SourceImageKey(job.ID, index, img.MimeType), img.MimeType, img.Data)
		if err != nil {
			log.Warn().Err(err).Msg("source image not stored")
		} else {
			artifact.SourceImageKey = key
		}
	}
	return p.succeed(ctx, job, artifact, &extracted, domain.UsageBulkImageItem, start)
}

func (p *ChunkProcessor) checkImage(img domain.ImageInput) error {
	if len(img.Data) == 0 {
		return domain.InvalidArgument(MsgMissingImageRequest)
	}
	if _, ok := AllowedImageTypes[img.MimeType]; !ok {
		return domain.InvalidArgument(MsgUnsupportedImage)
	}
	if int64(len(img.Data)) > p.maxImageBytes {
		return domain.InvalidArgument("Image must be under %dMB", p.maxImageBytes>>20)
	}
	return nil
}

func (p *ChunkProcessor) loadJob(ctx context.Context, userID, jobID string, index int, kind domain.JobKind) (*domain.Job, error) {
	job, err := p.jobs.GetForUser(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if job.Kind != kind {
		return nil, domain.InvalidArgument("job %s is not a %s job", job.ID, kind)
	}
	if job.Status.IsFinal() {
		return nil, domain.InvalidArgument("job is already %s", job.Status)
	}
	if !job.IndexInRange(index) {
		return nil, domain.InvalidArgument("index %d out of range [0,%d)", index, job.TotalItems)
	}
	return job, nil
}

// generate returns the parsed descriptions, or a non-empty failure reason for
// item level failures. err is set only when the request itself is gone or the
// brand voice could not be loaded; those must not be counted.
func (p *ChunkProcessor) generate(ctx context.Context, job *domain.Job, item domain.WorkItem) (domain.Descriptions, string, error) {
	opts := generation.PromptOptions{Locale: LocaleFromContext(ctx)}
	if job.VoiceID != nil {
		voice, err := p.voices.GetForUser(ctx, *job.VoiceID, job.UserID)
		switch {
		case err == nil:
			opts.Voice = voice
		case errors.Is(err, domain.ErrNotFound):
			p.log.Warn().Str("job_id", job.ID).Str("voice_id", *job.VoiceID).Msg("brand voice missing, generating without it")
		default:
			return domain.Descriptions{}, "", fmt.Errorf("load brand voice: %w", err)
		}
	}

	raw, err := p.text.Complete(ctx, textgen.Request{
		Prompt:      generation.BuildDescriptionPrompt(item, opts),
		Temperature: generation.Temperature,
		MaxTokens:   generation.MaxTokens,
		JSONOutput:  true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Descriptions{}, "", err
		}
		p.upstreamLimited(err)
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("text generation failed")
		return domain.Descriptions{}, MsgGenerationFailed, nil
	}
	parsed := generation.ParseDescriptions(raw)
	if !parsed.OK() {
		p.log.Debug().Str("job_id", job.ID).Str("reason", parsed.Reason).Msg("generation output rejected")
		return domain.Descriptions{}, MsgParseFailed, nil
	}
	return parsed.Value, "", nil
}

func (p *ChunkProcessor) succeed(ctx context.Context, job *domain.Job, artifact *domain.Artifact, extracted *domain.ExtractedAttributes, action string, start time.Time) (*ChunkResult, error) {
	kind := string(job.Kind)
	if err := p.artifacts.Save(ctx, artifact); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Int("index", artifact.ItemIndex).Msg("save description")
		return p.fail(ctx, job, artifact.ItemIndex, job.Kind, MsgSaveFailed, start)
	}

	// The artifact is already stored, so a debit problem never turns the
	// item into a failure. The upload gate is the only hard stop.
	_, err := p.credits.Debit(ctx, job.UserID, 1)
	switch {
	case err == nil:
		p.metrics.CreditDebited()
	case errors.Is(err, domain.ErrInsufficientCredits):
		p.metrics.CreditExhausted()
		p.log.Warn().Str("job_id", job.ID).Str("user_id", job.UserID).Int("index", artifact.ItemIndex).Msg("credits exhausted mid-job")
	default:
		p.log.Error().Err(err).Str("job_id", job.ID).Str("user_id", job.UserID).Msg("debit credit")
	}

	if err := p.credits.LogUsage(ctx, domain.UsageEvent{
		UserID:       job.UserID,
		ActionType:   action,
		ProductCount: 1,
		Metadata:     map[string]any{"job_id": job.ID, "index": artifact.ItemIndex},
	}); err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("usage log")
	}

	updated, err := p.jobs.RecordItem(ctx, job.ID, false)
	if err != nil {
		return nil, fmt.Errorf("record item: %w", err)
	}
	p.metrics.ObserveChunk(kind, metrics.OutcomeSuccess, p.now().Sub(start))
	descriptions := artifact.Descriptions
	return &ChunkResult{
		Success:      true,
		Index:        artifact.ItemIndex,
		Descriptions: &descriptions,
		Extracted:    extracted,
		Job:          updated,
	}, nil
}

func (p *ChunkProcessor) fail(ctx context.Context, job *domain.Job, index int, kind domain.JobKind, reason string, start time.Time) (*ChunkResult, error) {
	updated, err := p.jobs.RecordItem(ctx, job.ID, true)
	if err != nil {
		return nil, fmt.Errorf("record failed item: %w", err)
	}
	p.metrics.ObserveChunk(string(kind), metrics.OutcomeFailed, p.now().Sub(start))
	return &ChunkResult{Success: false, Index: index, Error: reason, Job: updated}, nil
}

// abort reports a call that left the job untouched.
func (p *ChunkProcessor) abort(kind domain.JobKind, start time.Time, err error) error {
	p.metrics.ObserveChunk(string(kind), metrics.OutcomeRejected, p.now().Sub(start))
	return err
}

// upstreamLimited counts a provider 429 or overload. The item itself is
// recorded as a failure by the caller, like any other provider error.
func (p *ChunkProcessor) upstreamLimited(err error) {
	if errors.Is(err, domain.ErrRateLimited) {
		p.metrics.RateLimited("upstream")
	}
}
