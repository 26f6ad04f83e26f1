package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func Test_adminApi_stats(t *testing.T) {
	env := setup(t)
	now := time.Now()

	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	adminToken := getToken(t, env.conf, admin)
	student := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)
	testutil.CreateStudent(t, env.profileRepo, "Sara", "sara@test.pk", "", false)
	studentToken := getToken(t, env.conf, student)

	cafe := testutil.CreateVendor(t, env.vendorRepo, "Chai Wala", vendor.CategoryCafe, true)
	testutil.CreateVendor(t, env.vendorRepo, "Espresso Hub", vendor.CategoryCafe, true)
	testutil.CreateVendor(t, env.vendorRepo, "Closed Diner", vendor.CategoryRestaurant, false)
	_, qr := testutil.CreateOffer(t, env.offerRepo, cafe.ID, 10, now.Add(-time.Hour), now.Add(time.Hour))
	testutil.CreateOffer(t, env.offerRepo, cafe.ID, 10, now.Add(-2*time.Hour), now.Add(-time.Hour)) // ended

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/admin/stats", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/admin/stats", token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})

	_, code := subscribe(t, env, studentToken, subscription.PlanSemester)
	require.Equal(t, http.StatusCreated, code)
	rec := env.do(http.MethodPost, "/v1/redemptions", studentToken, marchallObj(t, redemption.RedeemRequest{Code: qr.Data}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/v1/admin/stats", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dash stats.Dashboard
	unmarshallObj(t, rec, &dash)

	assert.Equal(t, stats.VendorCounts{Active: 2, Total: 3}, dash.Vendors)
	assert.Equal(t, stats.StudentCounts{Verified: 1, Pending: 1}, dash.Students)
	assert.Equal(t, 1, dash.ActiveSubscriptions)
	assert.Equal(t, 1, dash.TotalRedemptions)
	assert.Equal(t, 1, dash.ActiveOffers)
	assert.Equal(t, "2999", dash.TotalRevenue.String())
	assert.Equal(t, 2, dash.Categories[vendor.CategoryCafe])
	assert.Zero(t, dash.Categories[vendor.CategoryRestaurant])
	require.Len(t, dash.RecentRedemptions, 1)
	assert.Equal(t, "Ali Khan", dash.RecentRedemptions[0].StudentName)
}

func Test_adminApi_students(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	adminToken := getToken(t, env.conf, admin)
	ali := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)
	sara := testutil.CreateStudent(t, env.profileRepo, "Sara Malik", "sara@test.pk", "", false)

	emails := func(path string) []string {
		t.Helper()
		rec := env.do(http.MethodGet, path, adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var students []profile.Profile
		unmarshallObj(t, rec, &students)
		res := make([]string, 0, len(students))
		for _, s := range students {
			res = append(res, s.Email)
		}
		return res
	}

	assert.ElementsMatch(t, []string{ali.Email, sara.Email}, emails("/v1/admin/students"), "admins are not listed")
	assert.Equal(t, []string{sara.Email}, emails("/v1/admin/students?verified=false"))
	assert.Equal(t, []string{ali.Email}, emails("/v1/admin/students?verified=true"))
	assert.Equal(t, []string{sara.Email}, emails("/v1/admin/students?search=MALIK"))

	runHTTPTests(t, env, []httpTest{
		{name: "verify unknown", method: http.MethodPut, path: "/v1/admin/students/unknown/verification", token: adminToken, wantCode: http.StatusNotFound},
		{name: "verify admin", method: http.MethodPut, path: "/v1/admin/students/" + admin.ID + "/verification", token: adminToken, wantCode: http.StatusNotFound},
	})

	rec := env.do(http.MethodPut, "/v1/admin/students/"+sara.ID+"/verification", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p profile.Profile
	unmarshallObj(t, rec, &p)
	assert.True(t, p.IsVerified)
	assert.Empty(t, emails("/v1/admin/students?verified=false"))

	rec = env.do(http.MethodDelete, "/v1/admin/students/"+ali.ID+"/verification", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshallObj(t, rec, &p)
	assert.False(t, p.IsVerified)

	// both changes are in the activity log
	rec = env.do(http.MethodGet, "/v1/admin/activity?entity_type="+activity.EntityProfile, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var logs []activity.Log
	unmarshallObj(t, rec, &logs)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
		assert.Equal(t, admin.ID, l.UserID.String)
	}
	assert.ElementsMatch(t, []string{activity.ActionStudentVerified, activity.ActionStudentUnverified}, actions)

	rec = env.do(http.MethodGet, "/v1/admin/activity?action="+activity.ActionStudentVerified, adminToken)
	unmarshallObj(t, rec, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, sara.ID, logs[0].EntityID)
}

func Test_announcementApi(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateAdmin(t, env.profileRepo, "Admin", "admin@test.pk", "")
	adminToken := getToken(t, env.conf, admin)
	student := testutil.CreateStudent(t, env.profileRepo, "Ali Khan", "ali@test.pk", "", true)

	create := func(data announcement.AnnouncementData) announcement.Announcement {
		t.Helper()
		rec := env.do(http.MethodPost, "/v1/admin/announcements", adminToken, marchallObj(t, data))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a announcement.Announcement
		unmarshallObj(t, rec, &a)
		return a
	}
	titles := func(path string) []string {
		t.Helper()
		rec := env.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var items []announcement.Announcement
		unmarshallObj(t, rec, &items)
		res := make([]string, 0, len(items))
		for _, a := range items {
			res = append(res, a.Title)
		}
		return res
	}

	runHTTPTests(t, env, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/admin/announcements", token: getToken(t, env.conf, student),
			body:     marchallObj(t, announcement.AnnouncementData{Title: "Hi", Body: "Hello"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/admin/announcements", token: adminToken,
			body:     marchallObj(t, announcement.AnnouncementData{Audience: "teachers"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":    "this field is required",
				"body":     "this field is required",
				"audience": "audience must be all, students or vendors",
			}),
		},
	})

	everyone := create(announcement.AnnouncementData{Title: "Welcome", Body: "New vendors every week", IsPublished: true})
	assert.Equal(t, announcement.AudienceAll, everyone.Audience)
	assert.True(t, everyone.PublishedAt.Valid)
	assert.Equal(t, admin.ID, everyone.CreatedBy.String)

	students := create(announcement.AnnouncementData{Title: "Exams", Body: "Study hard", Audience: "Students", IsPublished: true})
	draft := create(announcement.AnnouncementData{Title: "Draft", Body: "Not yet"})
	assert.False(t, draft.PublishedAt.Valid)

	assert.ElementsMatch(t, []string{"Welcome"}, titles("/v1/announcements"))
	assert.ElementsMatch(t, []string{"Welcome", "Exams"}, titles("/v1/announcements?audience=students"))
	assert.ElementsMatch(t, []string{"Welcome"}, titles("/v1/announcements?audience=vendors"))

	rec := env.do(http.MethodGet, "/v1/admin/announcements", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []announcement.Announcement
	unmarshallObj(t, rec, &all)
	assert.Len(t, all, 3)

	// publishing the draft
	rec = env.do(http.MethodPut, "/v1/admin/announcements/"+draft.ID, adminToken, marchallObj(t, announcement.AnnouncementData{
		Title: "Published", Body: "Now", Audience: announcement.AudienceStudents, IsPublished: true,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var published announcement.Announcement
	unmarshallObj(t, rec, &published)
	assert.True(t, published.PublishedAt.Valid)
	assert.ElementsMatch(t, []string{"Welcome", "Exams", "Published"}, titles("/v1/announcements?audience=students"))

	runHTTPTests(t, env, []httpTest{
		{name: "delete", method: http.MethodDelete, path: "/v1/admin/announcements/" + students.ID, token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "delete twice", method: http.MethodDelete, path: "/v1/admin/announcements/" + students.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: announcement.ErrNotFound.Error()}),
		},
	})
	assert.ElementsMatch(t, []string{"Welcome", "Published"}, titles("/v1/announcements?audience=students"))
}
