package activity

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Actions
const (
	ActionStudentSignedUp     = "student_signed_up"
	ActionEmailVerified       = "email_verified"
	ActionStudentVerified     = "student_verified"
	ActionStudentUnverified   = "student_unverified"
	ActionVendorCreated       = "vendor_created"
	ActionVendorUpdated       = "vendor_updated"
	ActionVendorDeleted       = "vendor_deleted"
	ActionOfferCreated        = "offer_created"
	ActionOfferUpdated        = "offer_updated"
	ActionOfferDeleted        = "offer_deleted"
	ActionQRCodeGenerated     = "qr_code_generated"
	ActionQRCodeDeactivated   = "qr_code_deactivated"
	ActionOfferRedeemed       = "offer_redeemed"
	ActionSubscriptionCreated = "subscription_created"
	ActionSubscriptionEnded   = "subscription_cancelled"
	ActionAnnouncementCreated = "announcement_created"
	ActionAnnouncementUpdated = "announcement_updated"
	ActionAnnouncementDeleted = "announcement_deleted"
)

// Entity types
const (
	EntityProfile      = "profile"
	EntityVendor       = "vendor"
	EntityOffer        = "discount_offer"
	EntityQRCode       = "qr_code"
	EntityRedemption   = "discount_redemption"
	EntitySubscription = "student_subscription"
	EntityAnnouncement = "announcement"
)

type Details map[string]interface{}

type Log struct {
	ID         string      `json:"id"`
	UserID     null.String `json:"user_id"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Details    Details     `json:"details"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
}

func NewLog(actorID, action, entityType, entityID string, details Details) Log {
	if details == nil {
		details = Details{}
	}
	return Log{
		UserID:     null.NewString(actorID, actorID != ""),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
}

type QueryFilter struct {
	UserID     string `query:"user_id"`
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
	Limit      int    `query:"limit"`
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (qf *QueryFilter) Clean() {
	qf.UserID = strings.TrimSpace(qf.UserID)
	qf.Action = strings.TrimSpace(qf.Action)
	qf.EntityType = strings.TrimSpace(qf.EntityType)
	if qf.Limit <= 0 {
		qf.Limit = defaultLimit
	} else if qf.Limit > maxLimit {
		qf.Limit = maxLimit
	}
}
