package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

var (
	planColumns         = []string{"id", "name", "duration_days", "price", "discount_percent", "is_active"}
	subscriptionColumns = []string{
		"id", "user_id", "subscription_plan_id", "start_date", "end_date", "is_active", "payment_status", "created_at", "updated_at",
	}
)

type planRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	DurationDays    int             `db:"duration_days"`
	Price           decimal.Decimal `db:"price"`
	DiscountPercent int             `db:"discount_percent"`
	IsActive        bool            `db:"is_active"`
}

func (r planRow) plan() subscription.Plan {
	return subscription.Plan{
		ID:              r.ID,
		Name:            r.Name,
		DurationDays:    r.DurationDays,
		Price:           r.Price,
		DiscountPercent: r.DiscountPercent,
		IsActive:        r.IsActive,
	}
}

type subscriptionRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	PlanID        string    `db:"subscription_plan_id"`
	StartDate     time.Time `db:"start_date"`
	EndDate       time.Time `db:"end_date"`
	IsActive      bool      `db:"is_active"`
	PaymentStatus string    `db:"payment_status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func newSubscriptionRow(s subscription.Subscription) subscriptionRow {
	return subscriptionRow{
		ID:            s.ID,
		UserID:        s.UserID,
		PlanID:        s.PlanID,
		StartDate:     s.StartDate.UTC(),
		EndDate:       s.EndDate.UTC(),
		IsActive:      s.IsActive,
		PaymentStatus: s.PaymentStatus,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (r subscriptionRow) values() []interface{} {
	return []interface{}{r.ID, r.UserID, r.PlanID, r.StartDate, r.EndDate, r.IsActive, r.PaymentStatus, r.CreatedAt, r.UpdatedAt}
}

func (r subscriptionRow) subscription() subscription.Subscription {
	return subscription.Subscription{
		ID:            r.ID,
		UserID:        r.UserID,
		PlanID:        r.PlanID,
		StartDate:     r.StartDate.UTC(),
		EndDate:       r.EndDate.UTC(),
		IsActive:      r.IsActive,
		PaymentStatus: r.PaymentStatus,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type subscriptionRepository struct {
	db *sqlx.DB
}

var _ subscription.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db *sqlx.DB) subscription.Repository {
	return &subscriptionRepository{db: db}
}

func (repo *subscriptionRepository) UpsertPlans(ctx context.Context, plans []subscription.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	b := psql.Insert("subscription_plans").Columns(planColumns...)
	for _, p := range plans {
		b = b.Values(p.ID, p.Name, p.DurationDays, p.Price, p.DiscountPercent, p.IsActive)
	}
	b = b.Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, duration_days = EXCLUDED.duration_days," +
		" price = EXCLUDED.price, discount_percent = EXCLUDED.discount_percent, is_active = EXCLUDED.is_active")
	if _, err := exec(ctx, repo.db, b); err != nil {
		return errors.Wrap(err, "upserting plans")
	}
	return nil
}

func (repo *subscriptionRepository) QueryPlans(ctx context.Context, onlyActive bool) ([]subscription.Plan, error) {
	b := psql.Select(planColumns...).From("subscription_plans").OrderBy("duration_days ASC")
	if onlyActive {
		b = b.Where(sq.Eq{"is_active": true})
	}

	var rows []planRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	plans := make([]subscription.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.plan())
	}
	return plans, nil
}

func (repo *subscriptionRepository) GetPlan(ctx context.Context, id string) (subscription.Plan, error) {
	var r planRow
	if err := get(ctx, repo.db, &r, psql.Select(planColumns...).From("subscription_plans").Where(sq.Eq{"id": id})); err != nil {
		return subscription.Plan{}, trapNoRowsErr(err, subscription.ErrPlanNotFound, "finding plan")
	}
	return r.plan(), nil
}

func (repo *subscriptionRepository) GetActiveSubscription(ctx context.Context, userID string, at time.Time) (subscription.Subscription, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	b := psql.Select(subscriptionColumns...).From("student_subscriptions").
		Where(sq.Eq{"user_id": userID, "is_active": true}).
		Where(sq.Gt{"end_date": at.UTC()}).
		OrderBy("start_date DESC").
		Limit(1)

	var r subscriptionRow
	if err := get(ctx, repo.db, &r, b); err != nil {
		return subscription.Subscription{}, trapNoRowsErr(err, subscription.ErrNotFound, "finding active subscription")
	}
	return r.subscription(), nil
}

func (repo *subscriptionRepository) ReplaceActiveSubscription(ctx context.Context, s subscription.Subscription) (subscription.Subscription, error) {
	s.ID = uuid.New().String()
	r := newSubscriptionRow(s)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// serializes the subscription changes of the user until commit
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", r.UserID); err != nil {
			return errors.Wrap(err, "locking user subscriptions")
		}

		sameActive, err := count(ctx, tx, psql.Select("COUNT(*)").From("student_subscriptions").
			Where(sq.Eq{"user_id": r.UserID, "subscription_plan_id": r.PlanID, "is_active": true}).
			Where(sq.Gt{"end_date": r.StartDate}))
		if err != nil {
			return errors.Wrap(err, "counting active subscriptions")
		}
		if sameActive > 0 {
			return subscription.ErrAlreadySubscribed
		}

		if r.PlanID == subscription.PlanFree {
			trials, err := count(ctx, tx, psql.Select("COUNT(*)").From("student_subscriptions").
				Where(sq.Eq{"user_id": r.UserID, "subscription_plan_id": subscription.PlanFree}))
			if err != nil {
				return errors.Wrap(err, "counting trials")
			}
			if trials > 0 {
				return subscription.ErrTrialUsed
			}
		}

		deactivate := psql.Update("student_subscriptions").
			Set("is_active", false).
			Set("updated_at", r.CreatedAt).
			Where(sq.Eq{"user_id": r.UserID, "is_active": true})
		if _, err := exec(ctx, tx, deactivate); err != nil {
			return errors.Wrap(err, "deactivating subscriptions")
		}

		insert := psql.Insert("student_subscriptions").Columns(subscriptionColumns...).Values(r.values()...)
		if _, err := exec(ctx, tx, insert); err != nil {
			if isUniqueViolation(err) {
				return subscription.ErrTrialUsed
			}
			return errors.Wrap(err, "inserting subscription")
		}
		return nil
	})
	if err != nil {
		return subscription.Subscription{}, err
	}
	return r.subscription(), nil
}

func (repo *subscriptionRepository) UpdateSubscription(ctx context.Context, s subscription.Subscription) (subscription.Subscription, error) {
	r := newSubscriptionRow(s)
	b := psql.Update("student_subscriptions").SetMap(map[string]interface{}{
		"subscription_plan_id": r.PlanID,
		"start_date":           r.StartDate,
		"end_date":             r.EndDate,
		"is_active":            r.IsActive,
		"payment_status":       r.PaymentStatus,
		"updated_at":           r.UpdatedAt,
	}).Where(sq.Eq{"id": r.ID})

	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return subscription.Subscription{}, errors.Wrap(err, "updating subscription")
	}
	if n == 0 {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	return r.subscription(), nil
}

func (repo *subscriptionRepository) ExpireSubscriptions(ctx context.Context, at time.Time) (int64, error) {
	b := psql.Update("student_subscriptions").
		Set("is_active", false).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"is_active": true}).
		Where(sq.LtOrEq{"end_date": at.UTC()})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return 0, errors.Wrap(err, "expiring subscriptions")
	}
	return n, nil
}

func (repo *subscriptionRepository) CountActiveSubscriptions(ctx context.Context, at time.Time) (int, error) {
	n, err := count(ctx, repo.db, psql.Select("COUNT(*)").From("student_subscriptions").
		Where(sq.Eq{"is_active": true}).
		Where(sq.Gt{"end_date": at.UTC()}))
	if err != nil {
		return 0, errors.Wrap(err, "counting active subscriptions")
	}
	return n, nil
}

func (repo *subscriptionRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	b := psql.Select("COALESCE(SUM(subscription_plans.price), 0)").
		From("student_subscriptions").
		Join("subscription_plans ON subscription_plans.id = student_subscriptions.subscription_plan_id").
		Where(sq.Eq{"student_subscriptions.payment_status": subscription.PaymentCompleted})

	var total decimal.Decimal
	if err := get(ctx, repo.db, &total, b); err != nil {
		return decimal.Zero, errors.Wrap(err, "computing revenue")
	}
	return total, nil
}
