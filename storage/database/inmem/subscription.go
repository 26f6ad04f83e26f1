package inmemdb

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

type subscriptionRepository struct {
	db *DB
}

var _ subscription.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db *DB) subscription.Repository {
	return &subscriptionRepository{db: db}
}

func (repo *subscriptionRepository) UpsertPlans(_ context.Context, plans []subscription.Plan) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, p := range plans {
		repo.db.plans[p.ID] = p
	}
	return nil
}

func (repo *subscriptionRepository) QueryPlans(_ context.Context, onlyActive bool) ([]subscription.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	plans := make([]subscription.Plan, 0, len(repo.db.plans))
	for _, p := range repo.db.plans {
		if onlyActive && !p.IsActive {
			continue
		}
		plans = append(plans, p)
	}
	sortItems(plans, nil, nil, func(a, b subscription.Plan) bool { return a.DurationDays < b.DurationDays })
	return plans, nil
}

func (repo *subscriptionRepository) GetPlan(_ context.Context, id string) (subscription.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.plans[id]; ok {
		return p, nil
	}
	return subscription.Plan{}, subscription.ErrPlanNotFound
}

func (repo *subscriptionRepository) GetActiveSubscription(_ context.Context, userID string, at time.Time) (subscription.Subscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var (
		latest subscription.Subscription
		found  bool
	)
	for _, s := range repo.db.subscriptions {
		if s.UserID != userID || !s.ActiveAt(at) {
			continue
		}
		if !found || s.StartDate.After(latest.StartDate) {
			latest, found = s, true
		}
	}
	if !found {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	return latest, nil
}

func (repo *subscriptionRepository) ReplaceActiveSubscription(_ context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.plans[sub.PlanID]; !ok {
		return subscription.Subscription{}, subscription.ErrPlanNotFound
	}
	for _, s := range repo.db.subscriptions {
		if s.UserID != sub.UserID {
			continue
		}
		if s.PlanID == sub.PlanID && s.ActiveAt(sub.StartDate) {
			return subscription.Subscription{}, subscription.ErrAlreadySubscribed
		}
		if s.PlanID == subscription.PlanFree && sub.PlanID == subscription.PlanFree {
			return subscription.Subscription{}, subscription.ErrTrialUsed
		}
	}

	for id, s := range repo.db.subscriptions {
		if s.UserID == sub.UserID && s.IsActive {
			s.IsActive = false
			s.UpdatedAt = sub.CreatedAt
			repo.db.subscriptions[id] = s
		}
	}
	sub.ID = newID()
	repo.db.subscriptions[sub.ID] = sub
	return sub, nil
}

func (repo *subscriptionRepository) UpdateSubscription(_ context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subscriptions[sub.ID]; !ok {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	sub.Plan = nil
	repo.db.subscriptions[sub.ID] = sub
	return sub, nil
}

func (repo *subscriptionRepository) ExpireSubscriptions(_ context.Context, at time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for id, s := range repo.db.subscriptions {
		if s.IsActive && !s.EndDate.After(at) {
			s.IsActive = false
			s.UpdatedAt = at
			repo.db.subscriptions[id] = s
			n++
		}
	}
	return n, nil
}

func (repo *subscriptionRepository) CountActiveSubscriptions(_ context.Context, at time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, s := range repo.db.subscriptions {
		if s.ActiveAt(at) {
			n++
		}
	}
	return n, nil
}

func (repo *subscriptionRepository) Revenue(_ context.Context) (decimal.Decimal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	total := decimal.Zero
	for _, s := range repo.db.subscriptions {
		if s.PaymentStatus != subscription.PaymentCompleted {
			continue
		}
		if p, ok := repo.db.plans[s.PlanID]; ok {
			total = total.Add(p.Price)
		}
	}
	return total, nil
}
