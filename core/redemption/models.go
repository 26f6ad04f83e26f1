package redemption

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

type Redemption struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	OfferID        string          `json:"discount_offer_id"`
	QRCodeID       string          `json:"qr_code_id"`
	VendorID       string          `json:"vendor_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	IdempotencyKey null.String     `json:"idempotency_key"`
	RedeemedAt     time.Time       `json:"redeemed_at"` // UTC
}

// Receipt is a Redemption along with what was redeemed, where, and by whom.
type Receipt struct {
	Redemption
	OfferTitle   string `json:"offer_title"`
	DiscountType string `json:"discount_type"`
	VendorName   string `json:"vendor_name"`
	StudentName  string `json:"student_name,omitempty"`

	// Replayed is set when an earlier redemption with the same idempotency key was returned.
	Replayed bool `json:"-"`
}

type RedeemRequest struct {
	Code           string `json:"code" validate:"required,max=64"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=100"`
}

func (r *RedeemRequest) Validate(validate *validator.Validate) error {
	r.Code = strings.ToUpper(core.CleanString(r.Code))
	r.IdempotencyKey = core.CleanString(r.IdempotencyKey)
	return validate.Struct(r)
}

type QueryFilter struct {
	UserID string
	Limit  int
}

const (
	defaultLimit = 20
	maxLimit     = 200
)

func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 {
		qf.Limit = defaultLimit
	} else if qf.Limit > maxLimit {
		qf.Limit = maxLimit
	}
}
