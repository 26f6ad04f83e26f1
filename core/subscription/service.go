package subscription

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

var (
	// errors
	ErrNotFound          = errors.New("no active subscription")
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrAlreadySubscribed = errors.New("you are already subscribed to this plan")
	ErrTrialUsed         = errors.New("the free trial has already been used")
	ErrNotStudent        = errors.New("only students can subscribe")
)

type (
	Repository interface {
		// UpsertPlans inserts the plans, updating the ones that already exist.
		UpsertPlans(ctx context.Context, plans []Plan) error
		QueryPlans(ctx context.Context, onlyActive bool) ([]Plan, error)
		GetPlan(ctx context.Context, id string) (Plan, error)

		// GetActiveSubscription returns the latest subscription of the user that is active at the given time.
		GetActiveSubscription(ctx context.Context, userID string, at time.Time) (Subscription, error)
		// ReplaceActiveSubscription deactivates the active subscriptions of the user and saves s, in one transaction
		// holding a per-user lock. It fails with ErrAlreadySubscribed when s.PlanID is the active plan at s.StartDate,
		// and with ErrTrialUsed when s is a second free trial.
		ReplaceActiveSubscription(ctx context.Context, s Subscription) (Subscription, error)
		UpdateSubscription(ctx context.Context, s Subscription) (Subscription, error)
		// ExpireSubscriptions deactivates the active subscriptions that ended before the given time.
		ExpireSubscriptions(ctx context.Context, at time.Time) (int64, error)
		CountActiveSubscriptions(ctx context.Context, at time.Time) (int, error)
		// Revenue sums the plan prices of the completed subscriptions.
		Revenue(ctx context.Context) (decimal.Decimal, error)
	}

	Service interface {
		ListPlans(ctx context.Context) ([]Plan, error)
		GetPlan(ctx context.Context, id string) (Plan, error)
		SeedPlans(ctx context.Context) error
		Subscribe(ctx context.Context, userID, planID string) (Subscription, error)
		Current(ctx context.Context, userID string) (Subscription, error)
		Cancel(ctx context.Context, userID string) (Subscription, error)
		ExpireDue(ctx context.Context, at time.Time) (int64, error)
		CountActive(ctx context.Context) (int, error)
		Revenue(ctx context.Context) (decimal.Decimal, error)
	}

	service struct {
		repo        Repository
		profileSvc  profile.Service
		mailSvc     core.EmailService
		activitySvc activity.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, profileSvc profile.Service, mailSvc core.EmailService, activitySvc activity.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(profileSvc, "profileSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(activitySvc, "activitySvc"),
	).CheckAndPanic()

	return &service{repo: repo, profileSvc: profileSvc, mailSvc: mailSvc, activitySvc: activitySvc}
}

func (svc *service) ListPlans(ctx context.Context) ([]Plan, error) {
	return svc.repo.QueryPlans(ctx, true)
}

func (svc *service) GetPlan(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, core.CleanString(id, true /* lower */))
}

func (svc *service) SeedPlans(ctx context.Context) error {
	if err := svc.repo.UpsertPlans(ctx, DefaultPlans); err != nil {
		return errors.Wrap(err, "seeding plans")
	}
	return nil
}

func (svc *service) Subscribe(ctx context.Context, userID, planID string) (Subscription, error) {
	p, err := svc.profileSvc.GetByID(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	if !p.IsStudent() {
		return Subscription{}, ErrNotStudent
	}

	plan, err := svc.GetPlan(ctx, planID)
	if err != nil {
		return Subscription{}, err
	}
	if !plan.IsActive {
		return Subscription{}, ErrPlanNotFound
	}

	now := core.Now()
	// payment is not integrated: subscriptions are recorded as paid
	sub := Subscription{
		UserID:        p.ID,
		PlanID:        plan.ID,
		StartDate:     now,
		EndDate:       now.Add(plan.Duration()),
		IsActive:      true,
		PaymentStatus: PaymentCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if sub, err = svc.repo.ReplaceActiveSubscription(ctx, sub); err != nil {
		if cause := errors.Cause(err); cause == ErrAlreadySubscribed || cause == ErrTrialUsed {
			return Subscription{}, cause
		}
		return Subscription{}, errors.Wrap(err, "saving subscription")
	}
	sub.Plan = &plan

	svc.sendConfirmationMail(p, plan, sub)
	svc.activitySvc.Record(ctx, activity.NewLog(p.ID, activity.ActionSubscriptionCreated, activity.EntitySubscription, sub.ID, activity.Details{
		"plan_id":  plan.ID,
		"price":    plan.Price.String(),
		"end_date": sub.EndDate,
	}))
	return sub, nil
}

func (svc *service) Current(ctx context.Context, userID string) (Subscription, error) {
	sub, err := svc.repo.GetActiveSubscription(ctx, userID, core.Now())
	if err != nil {
		return Subscription{}, err
	}
	if plan, err := svc.repo.GetPlan(ctx, sub.PlanID); err == nil {
		sub.Plan = &plan
	}
	return sub, nil
}

func (svc *service) Cancel(ctx context.Context, userID string) (Subscription, error) {
	sub, err := svc.repo.GetActiveSubscription(ctx, userID, core.Now())
	if err != nil {
		return Subscription{}, err
	}
	sub.IsActive = false
	sub.PaymentStatus = PaymentCancelled
	sub.UpdatedAt = core.Now()
	if sub, err = svc.repo.UpdateSubscription(ctx, sub); err != nil {
		return Subscription{}, errors.Wrap(err, "cancelling subscription")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(userID, activity.ActionSubscriptionEnded, activity.EntitySubscription, sub.ID, activity.Details{
		"plan_id": sub.PlanID,
	}))
	return sub, nil
}

func (svc *service) ExpireDue(ctx context.Context, at time.Time) (int64, error) {
	n, err := svc.repo.ExpireSubscriptions(ctx, at)
	if err != nil {
		return 0, errors.Wrap(err, "expiring subscriptions")
	}
	return n, nil
}

func (svc *service) CountActive(ctx context.Context) (int, error) {
	return svc.repo.CountActiveSubscriptions(ctx, core.Now())
}

func (svc *service) Revenue(ctx context.Context) (decimal.Decimal, error) {
	return svc.repo.Revenue(ctx)
}

func (svc *service) sendConfirmationMail(p profile.Profile, plan Plan, sub Subscription) {
	name := p.FullName
	if name == "" {
		name = p.Email
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName, Address: p.Email}},
		Subject:      fmt.Sprintf("Your %s subscription", plan.Name),
		TemplateName: "subscription_confirmation",
		TemplateData: map[string]string{
			"Name":     name,
			"PlanName": plan.Name,
			"EndDate":  sub.EndDate.Format("January 2, 2006"),
		},
	})
}
