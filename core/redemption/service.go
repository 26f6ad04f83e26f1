package redemption

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

const createdSubject = "redemption.created"

var (
	// errors
	ErrInvalidCode          = errors.New("invalid QR code")
	ErrNotStudent           = errors.New("only active students can redeem discounts")
	ErrNoActiveSubscription = errors.New("you need an active subscription to redeem discounts")
)

type (
	Repository interface {
		// Redeem runs the whole redemption in one transaction:
		// it finds the active QR code, locks its offer, replays a redemption saved under the same
		// idempotency key, checks the offer is redeemable, saves the redemption and counts the use.
		// Offer errors are the ones of offer.Offer.Redeemable.
		Redeem(ctx context.Context, userID string, req RedeemRequest) (Receipt, error)
		QueryReceipts(ctx context.Context, filter QueryFilter) ([]Receipt, error)
		// CountRedemptions counts the redemptions of a user, or all of them when userID is empty.
		CountRedemptions(ctx context.Context, userID string) (int, error)
	}

	Service interface {
		Redeem(ctx context.Context, studentID string, req RedeemRequest) (Receipt, error)
		ListByUser(ctx context.Context, userID string, limit int) ([]Receipt, error)
		ListRecent(ctx context.Context, limit int) ([]Receipt, error)
		Count(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo            Repository
		profileSvc      profile.Service
		subscriptionSvc subscription.Service
		activitySvc     activity.Service
		publisher       core.EventPublisher
		logger          core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	profileSvc profile.Service,
	subscriptionSvc subscription.Service,
	activitySvc activity.Service,
	publisher core.EventPublisher,
	logger core.Logger,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(profileSvc, "profileSvc"),
		vala.IsNotNil(subscriptionSvc, "subscriptionSvc"),
		vala.IsNotNil(activitySvc, "activitySvc"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{
		repo:            repo,
		profileSvc:      profileSvc,
		subscriptionSvc: subscriptionSvc,
		activitySvc:     activitySvc,
		publisher:       publisher,
		logger:          logger,
	}
}

func (svc *service) Redeem(ctx context.Context, studentID string, req RedeemRequest) (Receipt, error) {
	p, err := svc.profileSvc.GetByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return Receipt{}, ErrNotStudent
		}
		return Receipt{}, err
	}
	if !p.IsActive || !p.IsStudent() {
		return Receipt{}, ErrNotStudent
	}

	if _, err = svc.subscriptionSvc.Current(ctx, p.ID); err != nil {
		if errors.Cause(err) == subscription.ErrNotFound {
			return Receipt{}, ErrNoActiveSubscription
		}
		return Receipt{}, errors.Wrap(err, "getting current subscription")
	}

	rcpt, err := svc.repo.Redeem(ctx, p.ID, req)
	if err != nil {
		return Receipt{}, err
	}
	if rcpt.Replayed {
		return rcpt, nil
	}

	svc.activitySvc.Record(ctx, activity.NewLog(p.ID, activity.ActionOfferRedeemed, activity.EntityRedemption, rcpt.ID, activity.Details{
		"offer_id":        rcpt.OfferID,
		"offer_title":     rcpt.OfferTitle,
		"vendor_name":     rcpt.VendorName,
		"discount_amount": rcpt.DiscountAmount.String(),
	}))
	if err = svc.publisher.Publish(ctx, createdSubject, rcpt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing redemption %s: %v", rcpt.ID, err), err)
	}
	return rcpt, nil
}

func (svc *service) ListByUser(ctx context.Context, userID string, limit int) ([]Receipt, error) {
	filter := QueryFilter{UserID: userID, Limit: limit}
	filter.Clean()
	return svc.repo.QueryReceipts(ctx, filter)
}

func (svc *service) ListRecent(ctx context.Context, limit int) ([]Receipt, error) {
	filter := QueryFilter{Limit: limit}
	filter.Clean()
	return svc.repo.QueryReceipts(ctx, filter)
}

func (svc *service) Count(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountRedemptions(ctx, userID)
}
