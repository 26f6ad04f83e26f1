package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/AliArsalanSiddiqui/v0-student-save-website-build/apps/api/echo"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	cachesvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/cache"
	emailsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/email"
	eventsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/events"
	logsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/logger"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database"
	sqlxrepos "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/sqlx"
)

const dbSetUpTimeout = time.Minute

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), dbSetUpTimeout)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newCache uses Redis when configured, an in-process cache otherwise.
func newCache(conf *core.Config, logger core.Logger) core.Cache {
	if rc := cachesvc.NewRedisCache(conf, logger); rc.Enabled() {
		return rc
	}
	return cachesvc.NewMemoryCache()
}

func newPublisher(pub *eventsvc.NatsPublisher) core.EventPublisher {
	return pub
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	vendor.InitValidators(validate, translator)
	offer.InitValidators(validate, translator)
	announcement.InitValidators(validate, translator)
	return validate, translator
}

type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	ProfileSvc      profile.Service
	VendorSvc       vendor.Service
	OfferSvc        offer.Service
	SubscriptionSvc subscription.Service
	RedemptionSvc   redemption.Service
	AnnouncementSvc announcement.Service
	ActivitySvc     activity.Service
	StatsSvc        stats.Service
}

func newServer(p ServerParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address:         p.Conf.Server.Host,
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		ProfileSvc:      p.ProfileSvc,
		VendorSvc:       p.VendorSvc,
		OfferSvc:        p.OfferSvc,
		SubscriptionSvc: p.SubscriptionSvc,
		RedemptionSvc:   p.RedemptionSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		ActivitySvc:     p.ActivitySvc,
		StatsSvc:        p.StatsSvc,
	})
}

// newContainer returns the dependency injection container of the API.
func newContainer() *dig.Container {
	c := dig.New()

	// infrastructure
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.NewEmailService))
	must(c.Provide(newCache))
	must(c.Provide(eventsvc.NewNatsPublisher))
	must(c.Provide(newPublisher))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewActivityRepository))
	must(c.Provide(sqlxrepos.NewProfileRepository))
	must(c.Provide(sqlxrepos.NewVendorRepository))
	must(c.Provide(sqlxrepos.NewOfferRepository))
	must(c.Provide(sqlxrepos.NewSubscriptionRepository))
	must(c.Provide(sqlxrepos.NewRedemptionRepository))
	must(c.Provide(sqlxrepos.NewAnnouncementRepository))
	must(c.Provide(sqlxrepos.NewStatsRepository))

	// services
	must(c.Provide(activity.NewService))
	must(c.Provide(profile.NewService))
	must(c.Provide(vendor.NewService))
	must(c.Provide(offer.NewService))
	must(c.Provide(subscription.NewService))
	must(c.Provide(redemption.NewService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(stats.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
