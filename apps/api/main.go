package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	echoapi "github.com/AliArsalanSiddiqui/v0-student-save-website-build/apps/api/echo"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	eventsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/events"
)

const expiryInterval = time.Hour

type appParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	DBLogger        core.Logger `name:"dbLogger"`
	DB              *sqlx.DB
	Publisher       *eventsvc.NatsPublisher
	SubscriptionSvc subscription.Service
	Server          echoapi.Server
}

func main() {
	must(newContainer().Invoke(run))
}

func run(p appParams) {
	conf, logger := p.Conf, p.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	core.ParseEmailTemplates(conf, logger)

	defer func() {
		if err := p.DB.Close(); err != nil {
			p.DBLogger.Fatal("Failed to close", err)
		}
	}()
	defer p.Publisher.Close()
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Subscriptions Expiry

	ctx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go expireSubscriptions(ctx, p.SubscriptionSvc, logger)

	// =========================================================================
	// Start API Service

	server := p.Server
	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// expireSubscriptions deactivates ended subscriptions every expiryInterval until ctx is done.
func expireSubscriptions(ctx context.Context, svc subscription.Service, logger core.Logger) {
	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()

	for {
		n, err := svc.ExpireDue(ctx, core.Now())
		if err != nil {
			logger.Error(fmt.Sprintf("expiring subscriptions: %v", err), err)
		} else if n > 0 {
			logger.Info(fmt.Sprintf("%d subscriptions expired", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
