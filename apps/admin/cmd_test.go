package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	emailsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/email"
	eventsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/events"
	inmemdb "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/inmem"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

var (
	profileRepo      profile.Repository
	subscriptionRepo subscription.Repository
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	// set up DB & repos
	db := inmemdb.Open()
	profileRepo = inmemdb.NewProfileRepository(db)
	subscriptionRepo = inmemdb.NewSubscriptionRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	activitySvc := activity.NewService(inmemdb.NewActivityRepository(db), eventsvc.NewNatsPublisher(conf, logger), logger)
	profileSvc := profile.NewService(profileRepo, mailSvc, activitySvc, conf)

	// start CLI
	return &commandLine{
		profileSvc:      profileSvc,
		subscriptionSvc: subscription.NewService(subscriptionRepo, profileSvc, mailSvc, activitySvc),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "vendor_hours", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	student := testutil.CreateStudent(t, profileRepo, "Ali Khan", "ali@test.pk", "", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "admin@test.pk"}, wantErr: errHelp},
		{name: "new admin", args: []string{"adduser", "-email", " Admin@Test.pk ", "-name", "Admin"}, extra: extra{pwd: "s3cret!"}},
		{name: "promote student", args: []string{"adduser", "-email", student.Email}, extra: extra{pwd: "s3cret!"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	admin, err := profileRepo.GetProfile(context.Background(), profile.GetFilter{Email: "admin@test.pk"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "Admin", admin.FullName)
	assert.True(t, admin.IsActive)
	assert.NoError(t, admin.CheckPassword("s3cret!"))

	promoted, err := profileRepo.GetProfile(context.Background(), profile.GetFilter{Email: student.Email})
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
	assert.Equal(t, student.ID, promoted.ID)
	assert.Equal(t, "Ali Khan", promoted.FullName, "name is kept when not given")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	student := testutil.CreateStudent(t, profileRepo, "Ali Khan", "ali@test.pk", "", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.pk"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.pk"}, extra: extra{pwd: "lol"}, wantErr: profile.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", student.Email}, extra: extra{pwd: "lol"}},
		{name: "reset again", args: []string{"resetpassword", "-email", "ALI@test.pk"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshed, err := profileRepo.GetProfile(context.Background(), profile.GetFilter{ID: student.ID})
				if err != nil {
					t.Fatalf("GetProfile() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, student.PasswordHash) {
					t.Error("failed to update new password")
				}
				if err = refreshed.CheckPassword(pwd); err != nil {
					t.Errorf("CheckPassword() failed, %v", err)
				}
			}
		})
	}
}

func Test_commandLine_verifyStudent(t *testing.T) {
	cli := setup(t)
	student := testutil.CreateStudent(t, profileRepo, "Ali Khan", "ali@test.pk", "", false)
	admin := testutil.CreateAdmin(t, profileRepo, "Admin", "admin@test.pk", "")

	isVerified := func() bool {
		p, err := profileRepo.GetProfile(context.Background(), profile.GetFilter{ID: student.ID})
		require.NoError(t, err)
		return p.IsVerified
	}

	tests := []cliTest{
		{name: "no args", args: []string{"verifystudent"}, wantErr: errHelp},
		{name: "not found", args: []string{"verifystudent", "-email", "lol@test.pk"}, wantErr: profile.ErrNotFound},
		{name: "not a student", args: []string{"verifystudent", "-email", admin.Email}, wantErr: profile.ErrNotFound},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	require.NoError(t, cli.run([]string{"admin", "verifystudent", "-email", student.Email}))
	assert.True(t, isVerified())

	require.NoError(t, cli.run([]string{"admin", "verifystudent", "-email", student.Email, "-undo"}))
	assert.False(t, isVerified())
}

func Test_commandLine_subscriptions(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	plans, err := subscriptionRepo.QueryPlans(ctx, false)
	require.NoError(t, err)
	require.Empty(t, plans)

	require.NoError(t, cli.run([]string{"admin", "seedplans"}))
	require.NoError(t, cli.run([]string{"admin", "seedplans"}), "seeding twice is a no-op")
	plans, err = subscriptionRepo.QueryPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, plans, len(subscription.DefaultPlans))

	student := testutil.CreateStudent(t, profileRepo, "Ali Khan", "ali@test.pk", "", true)
	testutil.Subscribe(t, subscriptionRepo, student.ID, subscription.PlanMonthly)

	require.NoError(t, cli.run([]string{"admin", "expiresubscriptions"}))
	_, err = subscriptionRepo.GetActiveSubscription(ctx, student.ID, core.Now())
	require.NoError(t, err, "running subscriptions are kept")

	nowFunc = func() time.Time { return core.Now().Add(31 * 24 * time.Hour) }
	defer func() { nowFunc = core.Now }()

	require.NoError(t, cli.run([]string{"admin", "expiresubscriptions"}))
	n, err := subscriptionRepo.CountActiveSubscriptions(ctx, core.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
