package bulk

import (
	"context"
	"strings"

	"descriptai/internal/domain"
)

// Credits exposes balance reads and administrative plan changes.
type Credits struct {
	repo domain.CreditRepository
}

func NewCredits(repo domain.CreditRepository) *Credits {
	return &Credits{repo: repo}
}

// Balance returns the caller's profile, creating it with the free allowance
// on first access.
func (c *Credits) Balance(ctx context.Context, userID string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return c.repo.GetOrCreate(ctx, userID)
}

// SetPlan changes the plan and optionally overrides the balance. Existing
// balances are kept without an override; new profiles get the plan allowance.
func (c *Credits) SetPlan(ctx context.Context, userID string, plan domain.UserPlan, credits *int) (*domain.Profile, error) {
	if !plan.Valid() {
		return nil, domain.InvalidArgument("unsupported plan %q", plan)
	}
	if credits != nil && *credits < 0 {
		return nil, domain.InvalidArgument("credits must not be negative")
	}
	return c.repo.SetPlan(ctx, userID, plan, credits)
}
