// Package driver runs a bulk job from the client side: one item at a time,
// with pacing between items, retry on rate limits and transport errors, and
// cooperative pause and cancel.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"descriptai/internal/apiclient"
	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/notify"
)

// Config holds the pacing and retry settings. Zero fields take the defaults.
type Config struct {
	MaxAttempts     int
	BaseBackoff     time.Duration
	RateLimitDelay  time.Duration
	TextItemDelay   time.Duration
	ImageItemDelay  time.Duration
	PausePoll       time.Duration
	FinalizeTimeout time.Duration
}

// DefaultConfig returns the pacing used against the hosted API.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		BaseBackoff:     time.Second,
		RateLimitDelay:  5 * time.Second,
		TextItemDelay:   time.Second,
		ImageItemDelay:  7 * time.Second,
		PausePoll:       500 * time.Millisecond,
		FinalizeTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = def.BaseBackoff
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = def.RateLimitDelay
	}
	if c.TextItemDelay <= 0 {
		c.TextItemDelay = def.TextItemDelay
	}
	if c.ImageItemDelay <= 0 {
		c.ImageItemDelay = def.ImageItemDelay
	}
	if c.PausePoll <= 0 {
		c.PausePoll = def.PausePoll
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = def.FinalizeTimeout
	}
	return c
}

// API is the part of the server the driver talks to.
type API interface {
	ProcessChunk(ctx context.Context, jobID string, index int, item domain.WorkItem) (*apiclient.ChunkResponse, error)
	ProcessImageChunk(ctx context.Context, jobID string, index int, img apiclient.Image) (*apiclient.ChunkResponse, error)
	SetStatus(ctx context.Context, jobID string, status domain.JobStatus, errorMessage *string) error
}

// Job identifies the server-side job being driven.
type Job struct {
	ID   string
	Kind domain.JobKind
}

// Item is one unit of work. Text jobs set Text, image jobs set Image.
type Item struct {
	Label string
	Text  *domain.WorkItem
	Image *apiclient.Image
}

// TextItems wraps rows of a text job.
func TextItems(items []domain.WorkItem) []Item {
	out := make([]Item, len(items))
	for i := range items {
		item := items[i]
		out[i] = Item{Label: item.ProductName, Text: &item}
	}
	return out
}

// ImageItems wraps the uploads of an image job.
func ImageItems(images []apiclient.Image) []Item {
	out := make([]Item, len(images))
	for i := range images {
		img := images[i]
		out[i] = Item{Label: img.Filename, Image: &img}
	}
	return out
}

// ItemStatus is the local view of one item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemSuccess    ItemStatus = "success"
	ItemFailed     ItemStatus = "failed"
)

// State is the run state published to subscribers.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Event types published on the notifier.
const (
	EventState          notify.Type = "state"
	EventItemStarted    notify.Type = "item_started"
	EventItemRetry      notify.Type = "item_retry"
	EventItemSucceeded  notify.Type = "item_succeeded"
	EventItemFailed     notify.Type = "item_failed"
	EventFinalizeFailed notify.Type = "finalize_failed"
)

// ItemOutcome is the final local state of one item.
type ItemOutcome struct {
	Index        int
	Label        string
	Status       ItemStatus
	Attempts     int
	Error        string
	Descriptions *domain.Descriptions
	Extracted    *domain.ExtractedAttributes
}

// Summary is the result of a run.
type Summary struct {
	JobID        string
	Status       domain.JobStatus
	Total        int
	Processed    int
	Failed       int
	Cancelled    bool
	ErrorMessage *string
	Outcomes     []ItemOutcome
}

// Deps wires a Driver. Sleeper and Notifier are optional.
type Deps struct {
	API      API
	Config   Config
	Sleeper  Sleeper
	Notifier *notify.Notifier
	Logger   infra.Logger
}

type Driver struct {
	api    API
	cfg    Config
	sleep  Sleeper
	events *notify.Notifier
	log    infra.Logger
}

// New builds a Driver with defaults filled in for zero Config fields.
func New(d Deps) *Driver {
	sleeper := d.Sleeper
	if sleeper == nil {
		sleeper = timerSleeper{}
	}
	return &Driver{
		api:    d.API,
		cfg:    d.Config.withDefaults(),
		sleep:  sleeper,
		events: d.Notifier,
		log:    d.Logger,
	}
}

// Run processes items in index order and finalizes the job. ctrl may be nil.
// A done ctx is treated like Cancel at the next boundary.
func (d *Driver) Run(ctx context.Context, job Job, items []Item, ctrl *Control) Summary {
	if ctrl == nil {
		ctrl = &Control{}
	}
	sum := Summary{JobID: job.ID, Total: len(items), Outcomes: make([]ItemOutcome, len(items))}
	for i, item := range items {
		sum.Outcomes[i] = ItemOutcome{Index: i, Label: item.Label, Status: ItemPending}
	}
	log := d.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Logger()
	d.state(job.ID, StateRunning)

	for i, item := range items {
		if d.stopped(ctx, ctrl) {
			sum.Cancelled = true
			break
		}
		if ctrl.Paused() {
			d.state(job.ID, StatePaused)
			if !d.waitWhilePaused(ctx, ctrl) {
				sum.Cancelled = true
				break
			}
			d.state(job.ID, StateRunning)
		}

		out := &sum.Outcomes[i]
		out.Status = ItemProcessing
		d.publish(notify.Event{Type: EventItemStarted, JobID: job.ID, Index: i, Message: item.Label})

		res, attempts, err := d.dispatchWithRetry(ctx, job, i, item)
		out.Attempts = attempts
		switch {
		case err != nil:
			out.Status = ItemFailed
			out.Error = err.Error()
		case !res.Success:
			out.Status = ItemFailed
			out.Error = res.Error
		default:
			out.Status = ItemSuccess
			out.Descriptions = res.Descriptions
			out.Extracted = res.Extracted
		}
		sum.Processed++
		if out.Status == ItemFailed {
			sum.Failed++
			log.Warn().Int("index", i).Int("attempts", attempts).Str("error", out.Error).Msg("item failed")
			d.publish(notify.Event{Type: EventItemFailed, Level: notify.LevelError, JobID: job.ID, Index: i, Message: out.Error})
		} else {
			log.Debug().Int("index", i).Int("attempts", attempts).Msg("item processed")
			d.publish(notify.Event{Type: EventItemSucceeded, Level: notify.LevelSuccess, JobID: job.ID, Index: i, Message: item.Label})
		}

		if i == len(items)-1 {
			break
		}
		if d.stopped(ctx, ctrl) {
			sum.Cancelled = true
			break
		}
		if err := d.sleep.Sleep(ctx, d.itemDelay(job.Kind)); err != nil {
			sum.Cancelled = true
			break
		}
	}

	// A cancel that lands during the last dispatch still counts.
	sum.Cancelled = sum.Cancelled || d.stopped(ctx, ctrl)
	sum.Status = domain.FinalStatus(sum.Cancelled, sum.Total, sum.Failed)
	sum.ErrorMessage = errorMessage(sum)
	d.finalize(ctx, log, sum)

	if sum.Status == domain.JobStatusCompleted {
		d.state(job.ID, StateCompleted)
	} else {
		d.state(job.ID, StateFailed)
	}
	log.Info().
		Str("status", string(sum.Status)).
		Int("processed", sum.Processed).
		Int("failed", sum.Failed).
		Bool("cancelled", sum.Cancelled).
		Msg("bulk run finished")
	return sum
}

func (d *Driver) stopped(ctx context.Context, ctrl *Control) bool {
	return ctrl.Cancelled() || ctx.Err() != nil
}

// waitWhilePaused polls until the run is resumed. It returns false when the
// run was cancelled instead.
func (d *Driver) waitWhilePaused(ctx context.Context, ctrl *Control) bool {
	for ctrl.Paused() {
		if d.stopped(ctx, ctrl) {
			return false
		}
		if err := d.sleep.Sleep(ctx, d.cfg.PausePoll); err != nil {
			return false
		}
	}
	return !d.stopped(ctx, ctrl)
}

func (d *Driver) dispatchWithRetry(ctx context.Context, job Job, index int, item Item) (*apiclient.ChunkResponse, int, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		res, err := d.dispatch(ctx, job, index, item)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err
		if attempt == d.cfg.MaxAttempts || ctx.Err() != nil {
			return nil, attempt, err
		}
		wait, retry := d.backoff(err, attempt)
		if !retry {
			return nil, attempt, err
		}
		d.publish(notify.Event{
			Type:    EventItemRetry,
			Level:   notify.LevelWarning,
			JobID:   job.ID,
			Index:   index,
			Message: err.Error(),
			Fields:  map[string]any{"attempt": attempt, "wait_ms": wait.Milliseconds()},
		})
		if err := d.sleep.Sleep(ctx, wait); err != nil {
			return nil, attempt, lastErr
		}
	}
	return nil, d.cfg.MaxAttempts, lastErr
}

// backoff decides whether err is worth another attempt and how long to wait
// first. attempt is the number of attempts made so far.
func (d *Driver) backoff(err error, attempt int) (time.Duration, bool) {
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		if se.RateLimited() {
			return d.cfg.RateLimitDelay, true
		}
		return 0, false
	}
	return d.cfg.BaseBackoff << attempt, true
}

func (d *Driver) dispatch(ctx context.Context, job Job, index int, item Item) (*apiclient.ChunkResponse, error) {
	switch {
	case job.Kind == domain.JobKindImage && item.Image != nil:
		return d.api.ProcessImageChunk(ctx, job.ID, index, *item.Image)
	case job.Kind != domain.JobKindImage && item.Text != nil:
		return d.api.ProcessChunk(ctx, job.ID, index, *item.Text)
	default:
		return nil, &apiclient.StatusError{Code: 400, Message: fmt.Sprintf("item %d does not match a %s job", index, job.Kind)}
	}
}

func (d *Driver) itemDelay(kind domain.JobKind) time.Duration {
	if kind == domain.JobKindImage {
		return d.cfg.ImageItemDelay
	}
	return d.cfg.TextItemDelay
}

// finalize reports the terminal status. It outlives ctx and never fails the run.
func (d *Driver) finalize(ctx context.Context, log zerolog.Logger, sum Summary) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.FinalizeTimeout)
	defer cancel()
	if err := d.api.SetStatus(fctx, sum.JobID, sum.Status, sum.ErrorMessage); err != nil {
		log.Warn().Err(err).Str("status", string(sum.Status)).Msg("finalize job status failed")
		d.publish(notify.Event{Type: EventFinalizeFailed, Level: notify.LevelWarning, JobID: sum.JobID, Message: err.Error()})
	}
}

func (d *Driver) state(jobID string, s State) {
	d.publish(notify.Event{Type: EventState, JobID: jobID, Message: string(s)})
}

func (d *Driver) publish(e notify.Event) {
	if d.events != nil {
		d.events.Publish(e)
	}
}

func errorMessage(sum Summary) *string {
	var msg string
	switch {
	case sum.Cancelled:
		msg = fmt.Sprintf("cancelled after %d of %d items", sum.Processed, sum.Total)
	case sum.Failed > 0:
		msg = fmt.Sprintf("%d items failed to process", sum.Failed)
	default:
		return nil
	}
	return &msg
}
