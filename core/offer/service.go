package offer

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

var (
	// errors
	ErrNotFound       = errors.New("offer not found")
	ErrQRCodeNotFound = errors.New("QR code not found")
	ErrMaxUsesTooLow  = errors.New("max uses cannot be lower than current uses")
)

type (
	Repository interface {
		// CreateOffer saves the offer and its first QR code together.
		CreateOffer(ctx context.Context, o Offer, qr QRCode) (Offer, QRCode, error)
		GetOffer(ctx context.Context, id string) (Offer, error)
		QueryOffers(ctx context.Context, filter QueryFilter) ([]Offer, error)
		UpdateOffer(ctx context.Context, o Offer) (Offer, error)
		DeleteOffer(ctx context.Context, id string) error

		CreateQRCode(ctx context.Context, qr QRCode) (QRCode, error)
		GetQRCode(ctx context.Context, id string) (QRCode, error)
		UpdateQRCode(ctx context.Context, qr QRCode) (QRCode, error)
		QueryQRCodes(ctx context.Context, vendorID string) ([]QRCode, error)
	}

	Service interface {
		Create(ctx context.Context, actorID, vendorID string, data OfferData) (Offer, QRCode, error)
		Update(ctx context.Context, actorID, id string, data OfferData) (Offer, error)
		Delete(ctx context.Context, actorID, id string) error
		Get(ctx context.Context, id string) (Offer, error)
		// ListByVendor lists all the offers of a vendor, newest first.
		// With onlyRedeemable, it lists active offers that have not ended, ending last first.
		ListByVendor(ctx context.Context, vendorID string, onlyRedeemable bool) ([]Listed, error)

		GenerateQRCode(ctx context.Context, actorID, offerID string) (QRCode, error)
		DeactivateQRCode(ctx context.Context, actorID, id string) (QRCode, error)
		ListQRCodesByVendor(ctx context.Context, vendorID string) ([]QRCode, error)

		// PublicVendorDetail returns an active vendor with its redeemable offers.
		PublicVendorDetail(ctx context.Context, vendorID string) (VendorDetail, error)
		// AdminVendorDetail returns any vendor with all its offers and QR codes.
		AdminVendorDetail(ctx context.Context, vendorID string) (VendorDetail, error)
	}

	service struct {
		repo        Repository
		vendorSvc   vendor.Service
		activitySvc activity.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, vendorSvc vendor.Service, activitySvc activity.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(vendorSvc, "vendorSvc"),
		vala.IsNotNil(activitySvc, "activitySvc"),
	).CheckAndPanic()

	return &service{repo: repo, vendorSvc: vendorSvc, activitySvc: activitySvc}
}

func (svc *service) Create(ctx context.Context, actorID, vendorID string, data OfferData) (Offer, QRCode, error) {
	v, err := svc.vendorSvc.Get(ctx, vendorID)
	if err != nil {
		return Offer{}, QRCode{}, err
	}

	now := core.Now()
	o := Offer{VendorID: v.ID, IsActive: true, CreatedAt: now, UpdatedAt: now}
	data.apply(&o)

	o, qr, err := svc.repo.CreateOffer(ctx, o, newQRCode(o))
	if err != nil {
		return Offer{}, QRCode{}, errors.Wrap(err, "creating offer")
	}
	svc.vendorSvc.InvalidateListings(ctx)

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionOfferCreated, activity.EntityOffer, o.ID, activity.Details{
		"vendor_id":    v.ID,
		"vendor_name":  v.Name,
		"title":        o.Title,
		"qr_code_data": qr.Data,
	}))
	return o, qr, nil
}

func (svc *service) Update(ctx context.Context, actorID, id string, data OfferData) (Offer, error) {
	o, err := svc.repo.GetOffer(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	if data.MaxUses < o.CurrentUses {
		return Offer{}, core.NewValidationError(ErrMaxUsesTooLow, core.FieldError{Field: "max_uses", Error: ErrMaxUsesTooLow.Error()})
	}
	data.apply(&o)
	o.UpdatedAt = core.Now()

	if o, err = svc.repo.UpdateOffer(ctx, o); err != nil {
		return Offer{}, errors.Wrap(err, "updating offer")
	}
	svc.vendorSvc.InvalidateListings(ctx)

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionOfferUpdated, activity.EntityOffer, o.ID, activity.Details{
		"vendor_id": o.VendorID,
		"title":     o.Title,
	}))
	return o, nil
}

func (svc *service) Delete(ctx context.Context, actorID, id string) error {
	o, err := svc.repo.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteOffer(ctx, id); err != nil {
		return errors.Wrap(err, "deleting offer")
	}
	svc.vendorSvc.InvalidateListings(ctx)

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionOfferDeleted, activity.EntityOffer, o.ID, activity.Details{
		"vendor_id": o.VendorID,
		"title":     o.Title,
	}))
	return nil
}

func (svc *service) Get(ctx context.Context, id string) (Offer, error) {
	return svc.repo.GetOffer(ctx, id)
}

func (svc *service) ListByVendor(ctx context.Context, vendorID string, onlyRedeemable bool) ([]Listed, error) {
	now := core.Now()
	filter := QueryFilter{VendorID: vendorID}
	if onlyRedeemable {
		filter.RedeemableAt = null.TimeFrom(now)
	}
	offers, err := svc.repo.QueryOffers(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying offers")
	}
	return NewListed(offers, now), nil
}

func (svc *service) GenerateQRCode(ctx context.Context, actorID, offerID string) (QRCode, error) {
	o, err := svc.repo.GetOffer(ctx, offerID)
	if err != nil {
		return QRCode{}, err
	}
	qr, err := svc.repo.CreateQRCode(ctx, newQRCode(o))
	if err != nil {
		return QRCode{}, errors.Wrap(err, "creating QR code")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionQRCodeGenerated, activity.EntityQRCode, qr.ID, activity.Details{
		"offer_id":     o.ID,
		"qr_code_data": qr.Data,
	}))
	return qr, nil
}

func (svc *service) DeactivateQRCode(ctx context.Context, actorID, id string) (QRCode, error) {
	qr, err := svc.repo.GetQRCode(ctx, id)
	if err != nil {
		return QRCode{}, err
	}
	if !qr.IsActive {
		return qr, nil
	}
	qr.IsActive = false
	if qr, err = svc.repo.UpdateQRCode(ctx, qr); err != nil {
		return QRCode{}, errors.Wrap(err, "updating QR code")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionQRCodeDeactivated, activity.EntityQRCode, qr.ID, activity.Details{
		"offer_id":     qr.OfferID,
		"qr_code_data": qr.Data,
	}))
	return qr, nil
}

func (svc *service) ListQRCodesByVendor(ctx context.Context, vendorID string) ([]QRCode, error) {
	return svc.repo.QueryQRCodes(ctx, vendorID)
}

func (svc *service) PublicVendorDetail(ctx context.Context, vendorID string) (VendorDetail, error) {
	v, err := svc.vendorSvc.GetActive(ctx, vendorID)
	if err != nil {
		return VendorDetail{}, err
	}
	offers, err := svc.ListByVendor(ctx, v.ID, true)
	if err != nil {
		return VendorDetail{}, err
	}
	return VendorDetail{Vendor: v, Offers: offers}, nil
}

func (svc *service) AdminVendorDetail(ctx context.Context, vendorID string) (VendorDetail, error) {
	v, err := svc.vendorSvc.Get(ctx, vendorID)
	if err != nil {
		return VendorDetail{}, err
	}
	offers, err := svc.ListByVendor(ctx, v.ID, false)
	if err != nil {
		return VendorDetail{}, err
	}
	qrs, err := svc.ListQRCodesByVendor(ctx, v.ID)
	if err != nil {
		return VendorDetail{}, errors.Wrap(err, "querying QR codes")
	}
	return VendorDetail{Vendor: v, Offers: offers, QRCodes: qrs}, nil
}
