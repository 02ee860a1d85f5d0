package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"descriptai/internal/bulk/bulktest"
	"descriptai/internal/domain"
)

func TestSetFinalStatus(t *testing.T) {
	store := bulktest.NewStore()
	statuses := NewStatusSync(store, store, nil, zerolog.Nop())
	job := &domain.Job{UserID: testUser, Kind: domain.JobKindText, TotalItems: 2}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, bad := range []domain.JobStatus{"processing", "done", ""} {
		if err := statuses.SetFinalStatus(ctx, testUser, job.ID, bad, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("status %q err = %v, want invalid argument", bad, err)
		}
	}
	if err := statuses.SetFinalStatus(ctx, "intruder", job.ID, domain.JobStatusFailed, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign finalize err = %v, want not found", err)
	}

	msg := "1 items failed to process"
	for i := 0; i < 2; i++ {
		if err := statuses.SetFinalStatus(ctx, testUser, job.ID, domain.JobStatusCompleted, &msg); err != nil {
			t.Fatalf("finalize #%d: %v", i+1, err)
		}
		got, err := statuses.GetStatus(ctx, testUser, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.JobStatusCompleted || got.ErrorMessage == nil || *got.ErrorMessage != msg {
			t.Fatalf("job after finalize #%d = %+v", i+1, got)
		}
	}

	blank := "   "
	if err := statuses.SetFinalStatus(ctx, testUser, job.ID, domain.JobStatusCompleted, &blank); err != nil {
		t.Fatal(err)
	}
	if got, _ := statuses.GetStatus(ctx, testUser, job.ID); got.ErrorMessage == nil || *got.ErrorMessage != msg {
		t.Fatalf("blank message should not overwrite: %+v", got.ErrorMessage)
	}
}

func TestGetStatusOwnerOnly(t *testing.T) {
	store := bulktest.NewStore()
	statuses := NewStatusSync(store, store, nil, zerolog.Nop())
	job := &domain.Job{UserID: testUser, Kind: domain.JobKindText, TotalItems: 1}
	_ = store.Create(context.Background(), job)

	if _, err := statuses.GetStatus(context.Background(), "someone", job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListDescriptions(t *testing.T) {
	store := bulktest.NewStore()
	statuses := NewStatusSync(store, store, nil, zerolog.Nop())
	ctx := context.Background()
	job := &domain.Job{UserID: testUser, Kind: domain.JobKindText, TotalItems: 2}
	_ = store.Create(ctx, job)

	items, err := statuses.ListDescriptions(ctx, testUser, job.ID)
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("empty list = %v, %v", items, err)
	}
	_ = store.Save(ctx, &domain.Artifact{UserID: testUser, JobID: job.ID, ItemIndex: 1})
	_ = store.Save(ctx, &domain.Artifact{UserID: testUser, JobID: job.ID, ItemIndex: 0})
	items, err = statuses.ListDescriptions(ctx, testUser, job.ID)
	if err != nil || len(items) != 2 || items[0].ItemIndex != 0 {
		t.Fatalf("list = %+v, %v", items, err)
	}
	if _, err := statuses.ListDescriptions(ctx, "someone", job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign list err = %v", err)
	}
}

func TestCreditsBalanceAndPlan(t *testing.T) {
	store := bulktest.NewStore()
	credits := NewCredits(store)
	ctx := context.Background()

	p, err := credits.Balance(ctx, testUser)
	if err != nil || p.CreditsRemaining != 50 || p.Plan != domain.UserPlanFree {
		t.Fatalf("balance = %+v, %v", p, err)
	}
	if _, err := credits.Balance(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous err = %v", err)
	}
	if _, err := credits.SetPlan(ctx, testUser, "gold", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("bad plan err = %v", err)
	}
	neg := -1
	if _, err := credits.SetPlan(ctx, testUser, domain.UserPlanPro, &neg); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("negative credits err = %v", err)
	}
	n := 500
	p, err = credits.SetPlan(ctx, testUser, domain.UserPlanPro, &n)
	if err != nil || p.CreditsRemaining != 500 || p.Plan != domain.UserPlanPro {
		t.Fatalf("set plan = %+v, %v", p, err)
	}
}

func TestValidateItemsKeysByIndex(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	err := ValidateItems([]domain.WorkItem{{ProductName: "ok"}, {ProductName: string(long)}, {}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Fields["items[1].productName"] != "The field 'productName' must be no longer than 200 characters." {
		t.Fatalf("fields = %v", verr.Fields)
	}
	if verr.Fields["items[2].productName"] != "The field 'productName' is required." {
		t.Fatalf("fields = %v", verr.Fields)
	}
	if verr.Message != "The field 'productName' must be no longer than 200 characters. (and 1 more)" {
		t.Fatalf("message = %q", verr.Message)
	}
}
