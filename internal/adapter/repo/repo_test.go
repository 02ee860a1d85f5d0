package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"descriptai/internal/domain"
	"descriptai/internal/sqlinline"
)

const (
	testJobID  = "5b0c7a4e-2f6e-4a3b-9d59-0f3c2e4b8a11"
	testUserID = "a3e1f0c2-6b7d-4e8f-9a0b-1c2d3e4f5a6b"
)

// valuesRow scans a fixed tuple into the destinations by reflection.
type valuesRow struct {
	values []any
	err    error
}

func (r valuesRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan arity mismatch")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if r.values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type call struct {
	query string
	args  []any
}

type stubExecutor struct {
	calls   []call
	rows    map[string][]valuesRow
	execTag pgconn.CommandTag
	execErr error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return s.execTag, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	queue := s.rows[query]
	if len(queue) == 0 {
		return valuesRow{err: pgx.ErrNoRows}
	}
	row := queue[0]
	s.rows[query] = queue[1:]
	return row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func jobTuple(processed, failed int) []any {
	now := time.Now()
	return []any{testJobID, testUserID, "text", "processing", 3, processed, failed, (*string)(nil), (*string)(nil), now, now}
}

func TestJobRepositoryRecordItem(t *testing.T) {
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QRecordBulkJobItem: {{values: jobTuple(2, 1)}},
	}}
	repo := NewJobRepository(exec)

	job, err := repo.RecordItem(context.Background(), testJobID, true)
	if err != nil {
		t.Fatalf("RecordItem error: %v", err)
	}
	if job.ProcessedItems != 2 || job.FailedItems != 1 {
		t.Fatalf("counters = %d/%d, want 2/1", job.ProcessedItems, job.FailedItems)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected single statement, got %d", len(exec.calls))
	}
	if failed, ok := exec.calls[0].args[1].(bool); !ok || !failed {
		t.Fatalf("failed flag = %v", exec.calls[0].args[1])
	}
}

func TestJobRepositoryRecordItemAtCapacity(t *testing.T) {
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QSelectBulkJob: {{values: jobTuple(3, 0)}},
	}}
	repo := NewJobRepository(exec)

	job, err := repo.RecordItem(context.Background(), testJobID, false)
	if err != nil {
		t.Fatalf("RecordItem error: %v", err)
	}
	if job.ProcessedItems != 3 {
		t.Fatalf("ProcessedItems = %d, want 3", job.ProcessedItems)
	}
	if len(exec.calls) != 2 || exec.calls[1].query != sqlinline.QSelectBulkJob {
		t.Fatalf("expected fallback select, calls=%d", len(exec.calls))
	}
}

func TestJobRepositoryGetForUserInvalidID(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewJobRepository(exec)
	if _, err := repo.GetForUser(context.Background(), "not-a-uuid", testUserID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetForUser error = %v, want ErrNotFound", err)
	}
	if len(exec.calls) != 0 {
		t.Fatal("invalid ids must not reach the database")
	}
}

func TestJobRepositoryFinalizeNotOwned(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewJobRepository(exec)
	err := repo.Finalize(context.Background(), testJobID, testUserID, domain.JobStatusCompleted, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Finalize error = %v, want ErrNotFound", err)
	}

	exec.execTag = pgconn.NewCommandTag("UPDATE 1")
	if err := repo.Finalize(context.Background(), testJobID, testUserID, domain.JobStatusCompleted, nil); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
}

func TestJobRepositoryCreateAssignsID(t *testing.T) {
	now := time.Now()
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QInsertBulkJob: {{values: []any{now, now}}},
	}}
	repo := NewJobRepository(exec)
	job := &domain.Job{UserID: testUserID, Kind: domain.JobKindText, TotalItems: 4, ProcessedItems: 9}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !validUUID(job.ID) {
		t.Fatalf("expected generated uuid, got %q", job.ID)
	}
	if job.Status != domain.JobStatusProcessing || job.ProcessedItems != 0 {
		t.Fatalf("job not reset to initial state: %+v", job)
	}
}

func TestCreditRepositoryDebitInsufficient(t *testing.T) {
	exec := &stubExecutor{rows: map[string][]valuesRow{}}
	repo := NewCreditRepository(exec)
	if _, err := repo.Debit(context.Background(), testUserID, 1); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("Debit error = %v, want ErrInsufficientCredits", err)
	}
}

func TestCreditRepositoryDebit(t *testing.T) {
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QDebitCredits: {{values: []any{41}}},
	}}
	repo := NewCreditRepository(exec)
	remaining, err := repo.Debit(context.Background(), testUserID, 1)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if remaining != 41 {
		t.Fatalf("remaining = %d, want 41", remaining)
	}
}

func TestCreditRepositoryGetOrCreateUsesFreeAllowance(t *testing.T) {
	now := time.Now()
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QSelectOrCreateProfile: {{values: []any{testUserID, 50, "free", now, now}}},
	}}
	repo := NewCreditRepository(exec)
	profile, err := repo.GetOrCreate(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if profile.CreditsRemaining != 50 || profile.Plan != domain.UserPlanFree {
		t.Fatalf("profile = %+v", profile)
	}
	if allowance := exec.calls[0].args[1]; allowance != 50 {
		t.Fatalf("allowance arg = %v, want 50", allowance)
	}
}

func TestCreditRepositoryLogUsage(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewCreditRepository(exec)
	err := repo.LogUsage(context.Background(), domain.UsageEvent{UserID: testUserID, ActionType: domain.UsageBulkItem, Metadata: map[string]any{"job_id": testJobID}})
	if err != nil {
		t.Fatalf("LogUsage error: %v", err)
	}
	args := exec.calls[0].args
	if args[2] != 1 {
		t.Fatalf("product_count = %v, want 1", args[2])
	}
	if raw, ok := args[3].([]byte); !ok || string(raw) != `{"job_id":"`+testJobID+`"}` {
		t.Fatalf("metadata = %v", args[3])
	}
}

func TestBrandVoiceRepositoryCreate(t *testing.T) {
	now := time.Now()
	exec := &stubExecutor{rows: map[string][]valuesRow{
		sqlinline.QInsertBrandVoice: {{values: []any{now, now}}},
	}}
	repo := NewBrandVoiceRepository(exec)
	voice := &domain.BrandVoice{UserID: testUserID, Name: "Cozy", IsDefault: true}
	if err := repo.Create(context.Background(), voice); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !validUUID(voice.ID) || !voice.CreatedAt.Equal(now) {
		t.Fatalf("voice = %+v", voice)
	}
	args := exec.calls[0].args
	if tones, ok := args[3].([]string); !ok || tones == nil {
		t.Fatalf("tone_adjectives arg = %#v, want empty slice", args[3])
	}
	if args[5] != true {
		t.Fatalf("is_default arg = %v", args[5])
	}
}

func TestBrandVoiceRepositoryNotOwned(t *testing.T) {
	exec := &stubExecutor{rows: map[string][]valuesRow{}, execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewBrandVoiceRepository(exec)
	ctx := context.Background()
	voice := &domain.BrandVoice{ID: testJobID, UserID: testUserID, Name: "x"}
	if err := repo.Update(ctx, voice); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, testJobID, testUserID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
	exec.execTag = pgconn.NewCommandTag("DELETE 1")
	if err := repo.Delete(ctx, testJobID, testUserID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	calls := len(exec.calls)
	if err := repo.Delete(ctx, "nope", testUserID); !errors.Is(err, domain.ErrNotFound) || len(exec.calls) != calls {
		t.Fatalf("invalid id must not reach the database: %v", err)
	}
}
