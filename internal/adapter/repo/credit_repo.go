package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/sqlinline"
)

// CreditRepositoryPG implements domain.CreditRepository on user_profiles and usage_logs.
type CreditRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCreditRepository(sql infra.SQLExecutor) *CreditRepositoryPG {
	return &CreditRepositoryPG{sql: sql}
}

func (r *CreditRepositoryPG) GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error) {
	if !validUUID(userID) {
		return nil, domain.ErrUnauthorized
	}
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QSelectOrCreateProfile, userID, domain.UserPlanFree.CreditAllowance()))
}

func (r *CreditRepositoryPG) Debit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.InvalidArgument("debit amount must be positive")
	}
	var remaining int
	if err := r.sql.QueryRow(ctx, sqlinline.QDebitCredits, userID, amount).Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	return remaining, nil
}

// SetPlan assigns plan and, when credits is non-nil, overrides the balance.
// New profiles start with the plan allowance.
func (r *CreditRepositoryPG) SetPlan(ctx context.Context, userID string, plan domain.UserPlan, credits *int) (*domain.Profile, error) {
	if !plan.Valid() {
		return nil, domain.InvalidArgument("unsupported plan %q", plan)
	}
	if !validUUID(userID) {
		return nil, domain.InvalidArgument("user id must be a uuid")
	}
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QUpsertProfilePlan, userID, string(plan), credits, plan.CreditAllowance()))
}

func (r *CreditRepositoryPG) LogUsage(ctx context.Context, event domain.UsageEvent) error {
	meta := event.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	count := event.ProductCount
	if count <= 0 {
		count = 1
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertUsageLog, event.UserID, event.ActionType, count, raw); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		plan string
	)
	if err := row.Scan(&p.ID, &p.CreditsRemaining, &plan, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Plan = domain.UserPlan(plan)
	return &p, nil
}

var _ domain.CreditRepository = (*CreditRepositoryPG)(nil)
