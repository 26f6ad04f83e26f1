package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	logsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/logger"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database"
)

// NewConfig returns a TEST config that does not depend on the environment.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:                      true,
		AppName:                       "StudentSave",
		SecretKey:                     "test-secret-key",
		Build:                         "test",
		Env:                           "TEST",
		FrontendBaseURL:               "http://localhost:3000",
		DefaultFromEmail:              mail.Address{Name: "StudentSave", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta:     time.Hour,
		EmailVerificationTimeoutDelta: time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost:8000",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			RateLimit:                 1000,
			RateBurst:                 1000,
		},
		Redis: core.RedisConfig{VendorCacheTTL: time.Minute},
	}
}

// NewLogger returns a silent logger with Rollbar disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	vendor.InitValidators(validate, translator)
	offer.InitValidators(validate, translator)
	announcement.InitValidators(validate, translator)
	return validate, translator
}

const truncateAll = `TRUNCATE activity_logs, announcements, discount_redemptions, student_subscriptions,
	qr_codes, discount_offers, favorite_vendors, vendors, profiles CASCADE`

// PrepareDB returns a migrated and emptied test database. The test is skipped when no database is reachable.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("ENV") == "" {
		t.Setenv("ENV", "TEST")
	}
	conf := core.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Skipf("database unavailable: %v", err)
	}

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	if _, err = db.Exec(truncateAll); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}
	return db
}

func CreateStudent(t *testing.T, repo profile.Repository, name, email, pwd string, verified bool) profile.Profile {
	t.Helper()
	now := core.Now()
	p := profile.Profile{
		Email:         email,
		FullName:      name,
		University:    profile.Universities[0],
		UserType:      profile.TypeStudent,
		IsVerified:    verified,
		EmailVerified: verified,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return createProfile(t, repo, p, pwd)
}

func CreateAdmin(t *testing.T, repo profile.Repository, name, email, pwd string) profile.Profile {
	t.Helper()
	now := core.Now()
	p := profile.Profile{
		Email:         email,
		FullName:      name,
		UserType:      profile.TypeAdmin,
		IsVerified:    true,
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return createProfile(t, repo, p, pwd)
}

func createProfile(t *testing.T, repo profile.Repository, p profile.Profile, pwd string) profile.Profile {
	t.Helper()
	if pwd == "" {
		pwd = "unusable-pwd"
	}
	if err := p.SetPassword(pwd); err != nil {
		t.Fatalf("createProfile() failed: %v", err)
	}
	p, err := repo.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("createProfile() failed: %v", err)
	}
	return p
}

func CreateVendor(t *testing.T, repo vendor.Repository, name, category string, isActive bool) vendor.Vendor {
	t.Helper()
	now := core.Now()
	v, err := repo.CreateVendor(context.Background(), vendor.Vendor{
		Name:      name,
		Category:  category,
		Location:  "Blue Area, Islamabad",
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateVendor() failed: %v", err)
	}
	return v
}

// CreateOffer creates an active percentage offer valid from `from` to `until`, with its QR code.
func CreateOffer(t *testing.T, repo offer.Repository, vendorID string, maxUses int, from, until time.Time) (offer.Offer, offer.QRCode) {
	t.Helper()
	now := core.Now()
	o := offer.Offer{
		VendorID:      vendorID,
		Title:         "20% off",
		DiscountType:  offer.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(20),
		ValidFrom:     from.UTC().Truncate(time.Microsecond),
		ValidUntil:    until.UTC().Truncate(time.Microsecond),
		MaxUses:       maxUses,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	qr := offer.QRCode{
		VendorID:  vendorID,
		Data:      "SSQR-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")),
		IsActive:  true,
		CreatedAt: now,
	}
	o, qr, err := repo.CreateOffer(context.Background(), o, qr)
	if err != nil {
		t.Fatalf("CreateOffer() failed: %v", err)
	}
	return o, qr
}

func SeedPlans(t *testing.T, repo subscription.Repository) {
	t.Helper()
	if err := repo.UpsertPlans(context.Background(), subscription.DefaultPlans); err != nil {
		t.Fatalf("SeedPlans() failed: %v", err)
	}
}

// Subscribe gives the student an active, paid subscription to the plan.
func Subscribe(t *testing.T, repo subscription.Repository, userID, planID string) subscription.Subscription {
	t.Helper()
	plan, err := repo.GetPlan(context.Background(), planID)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	now := core.Now()
	sub, err := repo.ReplaceActiveSubscription(context.Background(), subscription.Subscription{
		UserID:        userID,
		PlanID:        plan.ID,
		StartDate:     now,
		EndDate:       now.Add(plan.Duration()),
		IsActive:      true,
		PaymentStatus: subscription.PaymentCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	return sub
}
