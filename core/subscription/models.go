package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan IDs
const (
	PlanFree     = "free"
	PlanMonthly  = "monthly"
	PlanSemester = "semester"
	PlanYearly   = "yearly"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"
)

// DefaultPlans are the plans installed by SeedPlans.
var DefaultPlans = []Plan{
	{ID: PlanFree, Name: "Free Trial", DurationDays: 7, Price: decimal.Zero, DiscountPercent: 0, IsActive: true},
	{ID: PlanMonthly, Name: "Monthly", DurationDays: 30, Price: decimal.NewFromInt(999), DiscountPercent: 0, IsActive: true},
	{ID: PlanSemester, Name: "Semester", DurationDays: 120, Price: decimal.NewFromInt(2999), DiscountPercent: 10, IsActive: true},
	{ID: PlanYearly, Name: "Yearly", DurationDays: 365, Price: decimal.NewFromInt(5999), DiscountPercent: 20, IsActive: true},
}

type Plan struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DurationDays    int             `json:"duration_days"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent"`
	IsActive        bool            `json:"is_active"`
}

func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

type Subscription struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PlanID        string    `json:"subscription_plan_id"`
	StartDate     time.Time `json:"start_date"` // UTC
	EndDate       time.Time `json:"end_date"`   // UTC
	IsActive      bool      `json:"is_active"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC

	Plan *Plan `json:"plan,omitempty"`
}

// ActiveAt reports whether the subscription grants access at the given time.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.IsActive && s.EndDate.After(now)
}

// DaysLeft is the number of started days until the end of the subscription.
func (s Subscription) DaysLeft(now time.Time) int {
	if !s.ActiveAt(now) {
		return 0
	}
	left := s.EndDate.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) > 0 {
		days++
	}
	return days
}

type NewSubscription struct {
	PlanID string `json:"plan_id" validate:"required"`
}
