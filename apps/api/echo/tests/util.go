package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/AliArsalanSiddiqui/v0-student-save-website-build/apps/api/echo"
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
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/ratelimit"
	inmemdb "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/inmem"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// testEnv holds a server running on fresh in-memory repositories.
type testEnv struct {
	app  Server
	conf *core.Config

	profileRepo      profile.Repository
	vendorRepo       vendor.Repository
	offerRepo        offer.Repository
	subscriptionRepo subscription.Repository
	redemptionRepo   redemption.Repository
	cache            *cachesvc.MemoryCache
}

func setup(t *testing.T, limiter ...*ratelimit.Limiter) *testEnv {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	env := &testEnv{
		conf:             conf,
		profileRepo:      inmemdb.NewProfileRepository(db),
		vendorRepo:       inmemdb.NewVendorRepository(db),
		offerRepo:        inmemdb.NewOfferRepository(db),
		subscriptionRepo: inmemdb.NewSubscriptionRepository(db),
		redemptionRepo:   inmemdb.NewRedemptionRepository(db),
		cache:            cachesvc.NewMemoryCache(),
	}
	testutil.SeedPlans(t, env.subscriptionRepo)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	publisher := eventsvc.NewNatsPublisher(conf, logger) // disabled
	activitySvc := activity.NewService(inmemdb.NewActivityRepository(db), publisher, logger)
	profileSvc := profile.NewService(env.profileRepo, mailSvc, activitySvc, conf)
	vendorSvc := vendor.NewService(env.vendorRepo, env.cache, activitySvc, logger, conf)
	offerSvc := offer.NewService(env.offerRepo, vendorSvc, activitySvc)
	subscriptionSvc := subscription.NewService(env.subscriptionRepo, profileSvc, mailSvc, activitySvc)
	redemptionSvc := redemption.NewService(env.redemptionRepo, profileSvc, subscriptionSvc, activitySvc, publisher, logger)
	announcementSvc := announcement.NewService(inmemdb.NewAnnouncementRepository(db), activitySvc)
	statsSvc := stats.NewService(inmemdb.NewStatsRepository(db), subscriptionSvc, redemptionSvc)

	opts := &Options{
		DisableReqLogs:  true,
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		ProfileSvc:      profileSvc,
		VendorSvc:       vendorSvc,
		OfferSvc:        offerSvc,
		SubscriptionSvc: subscriptionSvc,
		RedemptionSvc:   redemptionSvc,
		AnnouncementSvc: announcementSvc,
		ActivitySvc:     activitySvc,
		StatsSvc:        statsSvc,
	}
	if len(limiter) > 0 {
		opts.Limiter = limiter[0]
	}
	env.app = NewServer(opts)
	return env
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, p profile.Profile) string {
	t.Helper()
	token, err := GenerateToken(conf, GetProfileClaims(conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
