// Package bulktest provides in-memory repositories and model fakes for
// exercising the bulk services without PostgreSQL or network access.
package bulktest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"descriptai/internal/domain"
	"descriptai/internal/providers/textgen"
)

// Store implements every repository contract over maps.
type Store struct {
	mu        sync.Mutex
	jobs      map[string]domain.Job
	artifacts []domain.Artifact
	profiles  map[string]domain.Profile
	voices    map[string]domain.BrandVoice
	Usage     []domain.UsageEvent
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs:     map[string]domain.Job{},
		profiles: map[string]domain.Profile{},
		voices:   map[string]domain.BrandVoice{},
		now:      time.Now,
	}
}

// SetCredits seeds or replaces a profile balance.
func (s *Store) SetCredits(userID string, credits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[userID]
	p.ID = userID
	if p.Plan == "" {
		p.Plan = domain.UserPlanFree
	}
	p.CreditsRemaining = credits
	s.profiles[userID] = p
}

// Credits returns the current balance, or -1 when no profile exists.
func (s *Store) Credits(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return -1
	}
	return p.CreditsRemaining
}

// AddVoice stores a brand voice.
func (s *Store) AddVoice(v domain.BrandVoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices[v.ID] = v
}

// Job returns a copy of the stored job.
func (s *Store) Job(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Artifacts returns a copy of every saved artifact.
func (s *Store) Artifacts() []domain.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Artifact(nil), s.artifacts...)
}

func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now()
	job.Status = domain.JobStatusProcessing
	job.ProcessedItems = 0
	job.FailedItems = 0
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = *job
	return nil
}

func (s *Store) GetForUser(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (s *Store) RecordItem(ctx context.Context, jobID string, failed bool) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.ProcessedItems < j.TotalItems {
		j.ProcessedItems++
		if failed {
			j.FailedItems++
		}
		j.UpdatedAt = s.now()
		s.jobs[jobID] = j
	}
	return &j, nil
}

func (s *Store) Finalize(ctx context.Context, jobID, userID string, status domain.JobStatus, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.UserID != userID {
		return domain.ErrNotFound
	}
	j.Status = status
	if errMsg != nil {
		msg := *errMsg
		j.ErrorMessage = &msg
	}
	j.UpdatedAt = s.now()
	s.jobs[jobID] = j
	return nil
}

func (s *Store) Save(ctx context.Context, a *domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	s.artifacts = append(s.artifacts, *a)
	return nil
}

func (s *Store) ListByJob(ctx context.Context, jobID, userID string) ([]domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Artifact
	for _, a := range s.artifacts {
		if a.JobID == jobID && a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ItemIndex < out[k].ItemIndex })
	return out, nil
}

func (s *Store) GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = domain.Profile{
			ID:               userID,
			Plan:             domain.UserPlanFree,
			CreditsRemaining: domain.UserPlanFree.CreditAllowance(),
			CreatedAt:        s.now(),
		}
		s.profiles[userID] = p
	}
	return &p, nil
}

func (s *Store) Debit(ctx context.Context, userID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok || p.CreditsRemaining < amount {
		return 0, domain.ErrInsufficientCredits
	}
	p.CreditsRemaining -= amount
	s.profiles[userID] = p
	return p.CreditsRemaining, nil
}

func (s *Store) SetPlan(ctx context.Context, userID string, plan domain.UserPlan, credits *int) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = domain.Profile{ID: userID, CreditsRemaining: plan.CreditAllowance()}
	}
	p.Plan = plan
	if credits != nil {
		p.CreditsRemaining = *credits
	}
	s.profiles[userID] = p
	return &p, nil
}

func (s *Store) LogUsage(ctx context.Context, event domain.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Usage = append(s.Usage, event)
	return nil
}

// Voices adapts the store to domain.BrandVoiceRepository; the method name
// GetForUser is already taken by jobs.
func (s *Store) Voices() domain.BrandVoiceRepository { return voiceRepo{s} }

type voiceRepo struct{ s *Store }

func (v voiceRepo) GetForUser(ctx context.Context, voiceID, userID string) (*domain.BrandVoice, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	voice, ok := v.s.voices[voiceID]
	if !ok || voice.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &voice, nil
}

func (v voiceRepo) ListForUser(ctx context.Context, userID string) ([]domain.BrandVoice, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []domain.BrandVoice{}
	for _, voice := range v.s.voices {
		if voice.UserID == userID {
			out = append(out, voice)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v voiceRepo) Create(ctx context.Context, voice *domain.BrandVoice) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	voice.ID = uuid.NewString()
	voice.CreatedAt = v.s.now()
	voice.UpdatedAt = voice.CreatedAt
	v.s.saveVoice(*voice)
	return nil
}

func (v voiceRepo) Update(ctx context.Context, voice *domain.BrandVoice) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	old, ok := v.s.voices[voice.ID]
	if !ok || old.UserID != voice.UserID {
		return domain.ErrNotFound
	}
	voice.CreatedAt = old.CreatedAt
	voice.UpdatedAt = v.s.now()
	v.s.saveVoice(*voice)
	return nil
}

func (v voiceRepo) Delete(ctx context.Context, voiceID, userID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	voice, ok := v.s.voices[voiceID]
	if !ok || voice.UserID != userID {
		return domain.ErrNotFound
	}
	delete(v.s.voices, voiceID)
	return nil
}

// saveVoice stores voice and clears the default flag on its siblings. The
// caller holds mu.
func (s *Store) saveVoice(voice domain.BrandVoice) {
	if voice.IsDefault {
		for id, other := range s.voices {
			if other.UserID == voice.UserID && id != voice.ID && other.IsDefault {
				other.IsDefault = false
				s.voices[id] = other
			}
		}
	}
	s.voices[voice.ID] = voice
}

// Generator replays scripted completions. Each call pops the next reply;
// the last reply repeats once the script is exhausted.
type Generator struct {
	mu      sync.Mutex
	replies []Reply
	Prompts []string
}

// Reply is one scripted model response.
type Reply struct {
	Text string
	Err  error
}

func NewGenerator(replies ...Reply) *Generator {
	return &Generator{replies: replies}
}

func (g *Generator) next() Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return Reply{Err: fmt.Errorf("bulktest: no scripted reply")}
	}
	r := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return r
}

func (g *Generator) Complete(ctx context.Context, req textgen.Request) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, req.Prompt)
	g.mu.Unlock()
	r := g.next()
	return r.Text, r.Err
}

func (g *Generator) AnalyzeImage(ctx context.Context, mimeType string, data []byte, prompt string) (string, error) {
	r := g.next()
	return r.Text, r.Err
}

// Calls returns the number of completion prompts seen.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// DescriptionsJSON is a well formed generation reply.
const DescriptionsJSON = `{"seo":"Long SEO copy","emotional":"Moving story","short":"Buy it"}`

// AttributesJSON is a well formed image analysis reply.
const AttributesJSON = `{"productName":"Ceramic Mug","category":"Home","features":"glazed, 350ml","audience":"coffee lovers"}`

// ObjectStore records uploaded objects in memory.
type ObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func (o *ObjectStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if o.Err != nil {
		return "", o.Err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Objects == nil {
		o.Objects = map[string][]byte{}
	}
	o.Objects[key] = append([]byte(nil), data...)
	return key, nil
}
