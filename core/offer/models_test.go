package offer

import (
	"regexp"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

func TestOfferStatusAt(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	base := Offer{
		ValidFrom:   now.Add(-24 * time.Hour),
		ValidUntil:  now.Add(24 * time.Hour),
		MaxUses:     10,
		CurrentUses: 3,
		IsActive:    true,
	}
	with := func(fn func(o *Offer)) Offer {
		o := base
		fn(&o)
		return o
	}

	tests := []struct {
		name       string
		offer      Offer
		wantStatus Status
		wantErr    error
	}{
		{name: "active", offer: base, wantStatus: StatusActive},
		{name: "last use left", offer: with(func(o *Offer) { o.CurrentUses = 9 }), wantStatus: StatusActive},
		{name: "ends now", offer: with(func(o *Offer) { o.ValidUntil = now }), wantStatus: StatusActive},
		{name: "inactive", offer: with(func(o *Offer) { o.IsActive = false }), wantStatus: StatusInactive, wantErr: ErrOfferNotActive},
		{name: "scheduled", offer: with(func(o *Offer) { o.ValidFrom = now.Add(time.Minute) }), wantStatus: StatusScheduled, wantErr: ErrOfferNotStarted},
		{name: "expired", offer: with(func(o *Offer) { o.ValidUntil = now.Add(-time.Second) }), wantStatus: StatusExpired, wantErr: ErrOfferExpired},
		{name: "exhausted", offer: with(func(o *Offer) { o.CurrentUses = 10 }), wantStatus: StatusExhausted, wantErr: ErrMaxUsesReached},
		{
			name: "inactive wins over expired",
			offer: with(func(o *Offer) {
				o.IsActive = false
				o.ValidUntil = now.Add(-time.Hour)
			}),
			wantStatus: StatusInactive,
			wantErr:    ErrOfferNotActive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.offer.StatusAt(now))
			assert.Equal(t, tt.wantErr, tt.offer.Redeemable(now))
		})
	}
}

func TestNewQRData(t *testing.T) {
	pattern := regexp.MustCompile(`^SSQR-[0-9A-F]{32}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		data := newQRData()
		if !pattern.MatchString(data) {
			t.Fatalf("newQRData() = %q, want match of %s", data, pattern)
		}
		if seen[data] {
			t.Fatalf("newQRData() returned %q twice", data)
		}
		seen[data] = true
	}
}

func TestOfferDataValidate(t *testing.T) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	valid := func() OfferData {
		return OfferData{
			Title:         " 20% off coffee ",
			DiscountType:  "Percentage",
			DiscountValue: decimal.NewFromInt(20),
			ValidFrom:     from,
			ValidUntil:    from.Add(30 * 24 * time.Hour),
			MaxUses:       100,
		}
	}

	tests := []struct {
		name       string
		mutate     func(od *OfferData)
		wantFields []string
	}{
		{name: "valid", mutate: func(od *OfferData) {}},
		{name: "fixed amount", mutate: func(od *OfferData) {
			od.DiscountType = DiscountTypeFixedAmount
			od.DiscountValue = decimal.RequireFromString("250.50")
		}},
		{name: "missing title", mutate: func(od *OfferData) { od.Title = "  " }, wantFields: []string{"title"}},
		{name: "unknown type", mutate: func(od *OfferData) { od.DiscountType = "bogo" }, wantFields: []string{"discount_type"}},
		{name: "zero value", mutate: func(od *OfferData) { od.DiscountValue = decimal.Zero }, wantFields: []string{"discount_value"}},
		{name: "percentage over 100", mutate: func(od *OfferData) { od.DiscountValue = decimal.NewFromInt(101) }, wantFields: []string{"discount_value"}},
		{name: "window reversed", mutate: func(od *OfferData) { od.ValidUntil = od.ValidFrom }, wantFields: []string{"valid_until"}},
		{name: "no uses", mutate: func(od *OfferData) { od.MaxUses = 0 }, wantFields: []string{"max_uses"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			od := valid()
			tt.mutate(&od)
			err := od.Validate(validate)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				assert.Equal(t, "20% off coffee", od.Title)
				return
			}

			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error = %v, want validator.ValidationErrors", err)
			}
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}
