package offer

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

// Discount types
const (
	DiscountTypePercentage  = "percentage"
	DiscountTypeFixedAmount = "fixed_amount"
)

var DiscountTypes = []string{DiscountTypePercentage, DiscountTypeFixedAmount}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
	StatusInactive  Status = "inactive"
)

const qrDataPrefix = "SSQR-"

var (
	// redeemability errors
	ErrOfferNotActive  = errors.New("this offer is not active")
	ErrOfferNotStarted = errors.New("this offer is not valid yet")
	ErrOfferExpired    = errors.New("this offer has expired")
	ErrMaxUsesReached  = errors.New("this offer has reached maximum uses")
)

type Offer struct {
	ID            string          `json:"id"`
	VendorID      string          `json:"vendor_id"`
	Title         string          `json:"title"`
	Description   null.String     `json:"description"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ValidFrom     time.Time       `json:"valid_from"`  // UTC
	ValidUntil    time.Time       `json:"valid_until"` // UTC
	MaxUses       int             `json:"max_uses"`
	CurrentUses   int             `json:"current_uses"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

// StatusAt reports the state of the offer at the given time.
func (o Offer) StatusAt(now time.Time) Status {
	switch {
	case !o.IsActive:
		return StatusInactive
	case now.Before(o.ValidFrom):
		return StatusScheduled
	case now.After(o.ValidUntil):
		return StatusExpired
	case o.CurrentUses >= o.MaxUses:
		return StatusExhausted
	default:
		return StatusActive
	}
}

// Redeemable returns nil if the offer can be redeemed at the given time.
func (o Offer) Redeemable(now time.Time) error {
	switch o.StatusAt(now) {
	case StatusInactive:
		return ErrOfferNotActive
	case StatusScheduled:
		return ErrOfferNotStarted
	case StatusExpired:
		return ErrOfferExpired
	case StatusExhausted:
		return ErrMaxUsesReached
	}
	return nil
}

// DiscountAmount is the amount recorded on each redemption of the offer.
func (o Offer) DiscountAmount() decimal.Decimal {
	return o.DiscountValue
}

// Listed is an Offer along with its current status.
type Listed struct {
	Offer
	Status Status `json:"status"`
}

func NewListed(offers []Offer, now time.Time) []Listed {
	listed := make([]Listed, 0, len(offers))
	for _, o := range offers {
		listed = append(listed, Listed{Offer: o, Status: o.StatusAt(now)})
	}
	return listed
}

type QRCode struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	OfferID   string    `json:"discount_offer_id"`
	Data      string    `json:"qr_code_data"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func newQRCode(o Offer) QRCode {
	return QRCode{
		VendorID:  o.VendorID,
		OfferID:   o.ID,
		Data:      newQRData(),
		IsActive:  true,
		CreatedAt: core.Now(),
	}
}

// newQRData returns a unique code like SSQR-3F2504E04F8911D39A0C0305E82C3301.
func newQRData() string {
	id := uuid.New()
	return qrDataPrefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}

// OfferData contains the information needed to create or replace an Offer.
type OfferData struct {
	Title         string          `json:"title" validate:"required,max=150"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	DiscountType  string          `json:"discount_type" validate:"required,discounttype"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ValidFrom     time.Time       `json:"valid_from" validate:"required"`
	ValidUntil    time.Time       `json:"valid_until" validate:"required,gtfield=ValidFrom"`
	MaxUses       int             `json:"max_uses" validate:"required,gte=1"`
	IsActive      *bool           `json:"is_active"`
}

func (od *OfferData) Validate(validate *validator.Validate) error {
	od.Title = core.CleanString(od.Title)
	od.Description = core.CleanString(od.Description)
	od.DiscountType = core.CleanString(od.DiscountType, true /* lower */)
	od.ValidFrom = od.ValidFrom.UTC()
	od.ValidUntil = od.ValidUntil.UTC()
	return validate.Struct(od)
}

// apply sets every field of o from od.
func (od OfferData) apply(o *Offer) {
	o.Title = od.Title
	o.Description = null.NewString(od.Description, od.Description != "")
	o.DiscountType = od.DiscountType
	o.DiscountValue = od.DiscountValue
	o.ValidFrom = od.ValidFrom.Truncate(time.Microsecond)
	o.ValidUntil = od.ValidUntil.Truncate(time.Microsecond)
	o.MaxUses = od.MaxUses
	if od.IsActive != nil {
		o.IsActive = *od.IsActive
	}
}

type QueryFilter struct {
	VendorID string
	// RedeemableAt keeps active offers that have not ended at the given time.
	RedeemableAt null.Time
}

// VendorDetail is a Vendor along with its offers and, for admins, its QR codes.
type VendorDetail struct {
	vendor.Vendor
	Offers     []Listed `json:"offers"`
	QRCodes    []QRCode `json:"qr_codes,omitempty"`
	IsFavorite *bool    `json:"is_favorite,omitempty"`
}
