package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/ratelimit"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		// Limiter guards the sensitive un-authed endpoints. Built from Conf.Server when nil.
		Limiter *ratelimit.Limiter

		ProfileSvc      profile.Service
		VendorSvc       vendor.Service
		OfferSvc        offer.Service
		SubscriptionSvc subscription.Service
		RedemptionSvc   redemption.Service
		AnnouncementSvc announcement.Service
		ActivitySvc     activity.Service
		StatsSvc        stats.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		auth     authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Conf, "Conf"),
		vala.IsNotNil(opts.Logger, "Logger"),
		vala.IsNotNil(opts.Validate, "Validate"),
		vala.IsNotNil(opts.Translator, "Translator"),
		vala.IsNotNil(opts.ProfileSvc, "ProfileSvc"),
		vala.IsNotNil(opts.VendorSvc, "VendorSvc"),
		vala.IsNotNil(opts.OfferSvc, "OfferSvc"),
		vala.IsNotNil(opts.SubscriptionSvc, "SubscriptionSvc"),
		vala.IsNotNil(opts.RedemptionSvc, "RedemptionSvc"),
		vala.IsNotNil(opts.AnnouncementSvc, "AnnouncementSvc"),
		vala.IsNotNil(opts.ActivitySvc, "ActivitySvc"),
		vala.IsNotNil(opts.StatsSvc, "StatsSvc"),
	).CheckAndPanic()

	if opts.Address == "" {
		opts.Address = opts.Conf.Server.Host
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(opts.Conf.Server.RateLimit, opts.Conf.Server.RateBurst)
	}

	s := &server{
		opts:     opts,
		app:      echo.New(),
		auth:     newAuthenticator(opts.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, headerIdempotencyKey},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware(false)
	optionalJWT := s.auth.middleware(true)
	limit := rateLimitMiddleware(s.opts.Limiter)
	admin := adminMiddleware()

	registerMetaAPI(v1)
	registerAuthAPI(v1, jwt, limit, s.auth, s.opts.ProfileSvc, s.opts.Validate, s.opts.Logger)
	registerProfileAPI(v1, jwt, s.opts.ProfileSvc, s.opts.SubscriptionSvc, s.opts.RedemptionSvc, s.opts.Validate)
	registerVendorAPI(v1, jwt, optionalJWT, admin, s.opts.VendorSvc, s.opts.OfferSvc, s.opts.Validate)
	registerSubscriptionAPI(v1, jwt, s.opts.SubscriptionSvc, s.opts.Validate)
	registerRedemptionAPI(v1, jwt, limit, admin, s.opts.RedemptionSvc, s.opts.Validate)
	registerAnnouncementAPI(v1, jwt, admin, s.opts.AnnouncementSvc, s.opts.Validate)
	registerAdminAPI(v1, jwt, admin, s.opts.ProfileSvc, s.opts.ActivitySvc, s.opts.StatsSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
