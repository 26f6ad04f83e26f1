// Package stats computes the aggregates of the admin dashboard.
package stats

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

const recentRedemptions = 5

type (
	VendorCounts struct {
		Active int `json:"active"`
		Total  int `json:"total"`
	}

	StudentCounts struct {
		Verified int `json:"verified"`
		Pending  int `json:"pending"`
	}

	Dashboard struct {
		Vendors             VendorCounts         `json:"vendors"`
		Students            StudentCounts        `json:"students"`
		ActiveSubscriptions int                  `json:"active_subscriptions"`
		TotalRedemptions    int                  `json:"total_redemptions"`
		ActiveOffers        int                  `json:"active_offers"`
		TotalRevenue        decimal.Decimal      `json:"total_revenue"`
		Categories          map[string]int       `json:"categories"` // active vendors per category
		RecentRedemptions   []redemption.Receipt `json:"recent_redemptions"`
	}
)

type (
	Repository interface {
		CountVendors(ctx context.Context) (VendorCounts, error)
		CountStudents(ctx context.Context) (StudentCounts, error)
		// CountActiveOffers counts the active offers that have not ended at the given time.
		CountActiveOffers(ctx context.Context, at time.Time) (int, error)
		CountActiveVendorsByCategory(ctx context.Context) (map[string]int, error)
	}

	Service interface {
		Dashboard(ctx context.Context) (Dashboard, error)
	}

	service struct {
		repo            Repository
		subscriptionSvc subscription.Service
		redemptionSvc   redemption.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subscriptionSvc subscription.Service, redemptionSvc redemption.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(subscriptionSvc, "subscriptionSvc"),
		vala.IsNotNil(redemptionSvc, "redemptionSvc"),
	).CheckAndPanic()

	return &service{repo: repo, subscriptionSvc: subscriptionSvc, redemptionSvc: redemptionSvc}
}

func (svc *service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Vendors, err = svc.repo.CountVendors(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting vendors")
	}
	if d.Students, err = svc.repo.CountStudents(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting students")
	}
	if d.ActiveOffers, err = svc.repo.CountActiveOffers(ctx, core.Now()); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting offers")
	}
	if d.Categories, err = svc.repo.CountActiveVendorsByCategory(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting categories")
	}
	if d.ActiveSubscriptions, err = svc.subscriptionSvc.CountActive(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting subscriptions")
	}
	if d.TotalRevenue, err = svc.subscriptionSvc.Revenue(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "computing revenue")
	}
	if d.TotalRedemptions, err = svc.redemptionSvc.Count(ctx, ""); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting redemptions")
	}
	if d.RecentRedemptions, err = svc.redemptionSvc.ListRecent(ctx, recentRedemptions); err != nil {
		return Dashboard{}, errors.Wrap(err, "listing recent redemptions")
	}
	return d, nil
}
