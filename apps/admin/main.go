package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	emailsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/email"
	eventsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/events"
	logsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/logger"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database"
	sqlxrepos "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/sqlx"
)

func main() {
	os.Exit(start())
}

func start() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = database.Ping(ctx, db); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// set up services
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewEmailService(conf, logger)
	publisher := eventsvc.NewNatsPublisher(conf, logger)
	defer publisher.Close()

	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), publisher, logger)
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), mailSvc, activitySvc, conf)
	subscriptionSvc := subscription.NewService(sqlxrepos.NewSubscriptionRepository(db), profileSvc, mailSvc, activitySvc)

	// start CLI
	cli := commandLine{
		db:              db.DB,
		profileSvc:      profileSvc,
		subscriptionSvc: subscriptionSvc,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		return 1
	}
	return 0
}
