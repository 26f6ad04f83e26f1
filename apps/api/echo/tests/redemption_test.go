package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func Test_redemptionApi_redeem(t *testing.T) {
	env := setup(t)
	now := time.Now()

	student := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)
	unsubscribed := testutil.CreateStudent(t, env.profileRepo, "Sara", "sara@test.pk", "", true)
	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	testutil.Subscribe(t, env.subscriptionRepo, student.ID, subscription.PlanMonthly)
	token := getToken(t, env.conf, student)

	v := testutil.CreateVendor(t, env.vendorRepo, "Chai Wala", vendor.CategoryCafe, true)
	o, qr := testutil.CreateOffer(t, env.offerRepo, v.ID, 2, now.Add(-time.Hour), now.Add(time.Hour))
	_, expiredQR := testutil.CreateOffer(t, env.offerRepo, v.ID, 2, now.Add(-2*time.Hour), now.Add(-time.Hour))
	_, scheduledQR := testutil.CreateOffer(t, env.offerRepo, v.ID, 2, now.Add(time.Hour), now.Add(2*time.Hour))

	req := func(code, key string) []byte {
		return marchallObj(t, redemption.RedeemRequest{Code: code, IdempotencyKey: key})
	}
	httpErrOf := func(err error) []byte { return marchallObj(t, httpErr{Error: err.Error()}) }

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/redemptions", body: req(qr.Data, ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "code required", method: http.MethodPost, path: "/v1/redemptions", token: token, body: req(" ", ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": "this field is required"}),
		},
		{
			name: "admins cannot redeem", method: http.MethodPost, path: "/v1/redemptions", token: getToken(t, env.conf, admin), body: req(qr.Data, ""),
			wantCode: http.StatusForbidden, wantData: httpErrOf(redemption.ErrNotStudent),
		},
		{
			name: "subscription required", method: http.MethodPost, path: "/v1/redemptions", token: getToken(t, env.conf, unsubscribed), body: req(qr.Data, ""),
			wantCode: http.StatusForbidden, wantData: httpErrOf(redemption.ErrNoActiveSubscription),
		},
		{
			name: "unknown code", method: http.MethodPost, path: "/v1/redemptions", token: token, body: req("SSQR-UNKNOWN", ""),
			wantCode: http.StatusNotFound, wantData: httpErrOf(redemption.ErrInvalidCode),
		},
		{
			name: "expired offer", method: http.MethodPost, path: "/v1/redemptions", token: token, body: req(expiredQR.Data, ""),
			wantCode: http.StatusConflict, wantData: httpErrOf(offer.ErrOfferExpired),
		},
		{
			name: "offer not started", method: http.MethodPost, path: "/v1/redemptions", token: token, body: req(scheduledQR.Data, ""),
			wantCode: http.StatusConflict, wantData: httpErrOf(offer.ErrOfferNotStarted),
		},
	})

	// codes are matched case-insensitively
	rec := env.do(http.MethodPost, "/v1/redemptions", token, req(strings.ToLower(qr.Data), "scan-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first redemption.Receipt
	unmarshallObj(t, rec, &first)
	assert.Equal(t, student.ID, first.UserID)
	assert.Equal(t, o.ID, first.OfferID)
	assert.Equal(t, qr.ID, first.QRCodeID)
	assert.Equal(t, "Chai Wala", first.VendorName)
	assert.Equal(t, o.Title, first.OfferTitle)
	assert.Equal(t, "20", first.DiscountAmount.String())

	// replaying the same key returns the same redemption without using the offer again
	httpReq, rec := newAuthRequest(http.MethodPost, "/v1/redemptions", token, req(qr.Data, ""))
	httpReq.Header.Set("Idempotency-Key", "scan-1")
	env.app.ServeHTTP(rec, httpReq)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replayed redemption.Receipt
	unmarshallObj(t, rec, &replayed)
	assert.Equal(t, first.ID, replayed.ID)

	got, err := env.offerRepo.GetOffer(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentUses)

	rec = env.do(http.MethodPost, "/v1/redemptions", token, req(qr.Data, "scan-2"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/v1/redemptions", token, req(qr.Data, "scan-3"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: httpErrOf(offer.ErrMaxUsesReached)}, rec)

	// history
	rec = env.do(http.MethodGet, "/v1/redemptions", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var receipts []redemption.Receipt
	unmarshallObj(t, rec, &receipts)
	assert.Len(t, receipts, 2)

	rec = env.do(http.MethodGet, "/v1/redemptions?limit=1", token)
	unmarshallObj(t, rec, &receipts)
	assert.Len(t, receipts, 1)

	rec = env.do(http.MethodGet, "/v1/redemptions", getToken(t, env.conf, unsubscribed))
	unmarshallObj(t, rec, &receipts)
	assert.Empty(t, receipts)

	runHTTPTests(t, env, []httpTest{
		{name: "recent: admin required", path: "/v1/admin/redemptions", token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
	rec = env.do(http.MethodGet, "/v1/admin/redemptions", getToken(t, env.conf, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshallObj(t, rec, &receipts)
	require.Len(t, receipts, 2)
	assert.Equal(t, "Ali Khan", receipts[0].StudentName)
}

func Test_redemptionApi_deactivatedCode(t *testing.T) {
	env := setup(t)
	now := time.Now()

	student := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)
	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	testutil.Subscribe(t, env.subscriptionRepo, student.ID, subscription.PlanYearly)

	v := testutil.CreateVendor(t, env.vendorRepo, "Burger Lab", vendor.CategoryRestaurant, true)
	_, qr := testutil.CreateOffer(t, env.offerRepo, v.ID, 10, now.Add(-time.Hour), now.Add(time.Hour))

	rec := env.do(http.MethodDelete, "/v1/admin/qrcodes/"+qr.ID, getToken(t, env.conf, admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/v1/redemptions", getToken(t, env.conf, student), marchallObj(t, redemption.RedeemRequest{Code: qr.Data}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: redemption.ErrInvalidCode.Error()}),
	}, rec)
}
