package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

// Audiences
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceVendors  = "vendors"
)

var Audiences = []string{AudienceAll, AudienceStudents, AudienceVendors}

type Announcement struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	Audience    string      `json:"audience"`
	IsPublished bool        `json:"is_published"`
	PublishedAt null.Time   `json:"published_at"`
	CreatedBy   null.String `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// AnnouncementData contains the information needed to create or replace an Announcement.
type AnnouncementData struct {
	Title       string `json:"title" validate:"required,max=200"`
	Body        string `json:"body" validate:"required"`
	Audience    string `json:"audience" validate:"omitempty,audience"`
	IsPublished bool   `json:"is_published"`
}

func (ad *AnnouncementData) Validate(validate *validator.Validate) error {
	ad.Title = core.CleanString(ad.Title)
	ad.Body = core.CleanString(ad.Body)
	ad.Audience = core.CleanString(ad.Audience, true /* lower */)
	if ad.Audience == "" {
		ad.Audience = AudienceAll
	}
	return validate.Struct(ad)
}

// apply sets every field of a from ad. published_at is kept from the first publication.
func (ad AnnouncementData) apply(a *Announcement, now time.Time) {
	a.Title = ad.Title
	a.Body = ad.Body
	a.Audience = ad.Audience
	a.IsPublished = ad.IsPublished
	switch {
	case !ad.IsPublished:
		a.PublishedAt = null.Time{}
	case !a.PublishedAt.Valid:
		a.PublishedAt = null.TimeFrom(now)
	}
}

type QueryFilter struct {
	// Audience keeps the published announcements shown to the audience.
	Audience      string
	OnlyPublished bool
}
