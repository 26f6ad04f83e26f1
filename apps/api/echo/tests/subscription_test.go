package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	emailsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/email"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func subscribe(t *testing.T, env *testEnv, token, planID string) (subscription.Subscription, int) {
	t.Helper()
	rec := env.do(http.MethodPost, "/v1/subscriptions", token, marchallObj(t, subscription.NewSubscription{PlanID: planID}))
	var sub subscription.Subscription
	if rec.Code == http.StatusCreated {
		unmarshallObj(t, rec, &sub)
	}
	return sub, rec.Code
}

func Test_subscriptionApi_plans(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/v1/plans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var plans []subscription.Plan
	unmarshallObj(t, rec, &plans)
	require.Len(t, plans, 4)

	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{subscription.PlanFree, subscription.PlanMonthly, subscription.PlanSemester, subscription.PlanYearly}, ids)
	assert.Equal(t, "2999", plans[2].Price.String())
	assert.Equal(t, 10, plans[2].DiscountPercent)
}

func Test_subscriptionApi_subscribe(t *testing.T) {
	env := setup(t)
	student := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)
	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	token := getToken(t, env.conf, student)

	noSub := marchallObj(t, httpErr{Error: subscription.ErrNotFound.Error()})
	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/subscriptions/current", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "no subscription", path: "/v1/subscriptions/current", token: token, wantCode: http.StatusNotFound, wantData: noSub},
		{name: "nothing to cancel", method: http.MethodDelete, path: "/v1/subscriptions/current", token: token, wantCode: http.StatusNotFound, wantData: noSub},
		{
			name: "plan required", method: http.MethodPost, path: "/v1/subscriptions", token: token,
			body: marchallObj(t, subscription.NewSubscription{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"plan_id": "this field is required"}),
		},
		{
			name: "unknown plan", method: http.MethodPost, path: "/v1/subscriptions", token: token,
			body:     marchallObj(t, subscription.NewSubscription{PlanID: "lifetime"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: subscription.ErrPlanNotFound.Error()}),
		},
		{
			name: "admins cannot subscribe", method: http.MethodPost, path: "/v1/subscriptions", token: getToken(t, env.conf, admin),
			body:     marchallObj(t, subscription.NewSubscription{PlanID: subscription.PlanMonthly}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: subscription.ErrNotStudent.Error()}),
		},
	})

	sub, code := subscribe(t, env, token, subscription.PlanMonthly)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, student.ID, sub.UserID)
	assert.True(t, sub.IsActive)
	assert.Equal(t, subscription.PaymentCompleted, sub.PaymentStatus)
	require.NotNil(t, sub.Plan)
	assert.Equal(t, 30, int(sub.EndDate.Sub(sub.StartDate).Hours()/24))

	msg, ok := emailsvc.LastSentMessage(student.Email)
	require.True(t, ok, "confirmation mail sent")
	assert.Equal(t, "Your Monthly subscription", msg.Subject)

	_, code = subscribe(t, env, token, subscription.PlanMonthly)
	assert.Equal(t, http.StatusConflict, code, "already subscribed to this plan")

	// switching plans replaces the active subscription
	yearly, code := subscribe(t, env, token, subscription.PlanYearly)
	require.Equal(t, http.StatusCreated, code)

	rec := env.do(http.MethodGet, "/v1/subscriptions/current", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var current subscription.Subscription
	unmarshallObj(t, rec, &current)
	assert.Equal(t, yearly.ID, current.ID)
	assert.Equal(t, subscription.PlanYearly, current.PlanID)

	rec = env.do(http.MethodDelete, "/v1/subscriptions/current", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled subscription.Subscription
	unmarshallObj(t, rec, &cancelled)
	assert.False(t, cancelled.IsActive)
	assert.Equal(t, subscription.PaymentCancelled, cancelled.PaymentStatus)

	rec = env.do(http.MethodGet, "/v1/subscriptions/current", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_subscriptionApi_freeTrial(t *testing.T) {
	env := setup(t)
	student := testutil.CreateStudent(t, env.profileRepo, "Sara", "sara@test.pk", "", true)
	token := getToken(t, env.conf, student)

	_, code := subscribe(t, env, token, subscription.PlanFree)
	require.Equal(t, http.StatusCreated, code)

	rec := env.do(http.MethodDelete, "/v1/subscriptions/current", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/v1/subscriptions", token, marchallObj(t, subscription.NewSubscription{PlanID: subscription.PlanFree}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: subscription.ErrTrialUsed.Error()}),
	}, rec)

	_, code = subscribe(t, env, token, subscription.PlanSemester)
	assert.Equal(t, http.StatusCreated, code, "paid plans stay available")
}
