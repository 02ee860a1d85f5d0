package domain

import "time"

// UserPlan enumerates billing plans.
type UserPlan string

const (
	UserPlanFree UserPlan = "free"
	UserPlanPro  UserPlan = "pro"
)

// Valid reports whether p is a supported plan.
func (p UserPlan) Valid() bool {
	return p == UserPlanFree || p == UserPlanPro
}

// CreditAllowance is the balance granted when a profile is created on the plan.
func (p UserPlan) CreditAllowance() int {
	if p == UserPlanPro {
		return 500
	}
	return 50
}

// Profile carries the credit balance of a user.
type Profile struct {
	ID               string    `json:"id"`
	CreditsRemaining int       `json:"credits_remaining"`
	Plan             UserPlan  `json:"plan_type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Usage action types.
const (
	UsageBulkItem      = "bulk_item"
	UsageBulkImageItem = "bulk_image_item"
)

// UsageEvent is appended for every debited item.
type UsageEvent struct {
	UserID       string
	ActionType   string
	ProductCount int
	Metadata     map[string]any
}
