package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AliArsalanSiddiqui/v0-student-save-website-build/apps/api/echo"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	emailsvc "github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/email"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/services/ratelimit"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func sentToken(t *testing.T, email string) (uid, token string) {
	t.Helper()
	msg, ok := emailsvc.LastSentMessage(email)
	require.True(t, ok, "no email sent to %s", email)
	data, ok := msg.TemplateData.(map[string]string)
	require.True(t, ok)
	return data["UID"], data["Token"]
}

func Test_authApi_signUpAndVerify(t *testing.T) {
	env := setup(t)
	testutil.CreateStudent(t, env.profileRepo, "Taken", "taken@test.pk", "", true)

	signup := func(email, pwd, confirm, university string) []byte {
		return marchallObj(t, profile.NewStudent{
			Email:           email,
			FullName:        "Sara Ahmed",
			University:      university,
			Password:        pwd,
			PasswordConfirm: confirm,
		})
	}
	uni := profile.Universities[0]

	runHTTPTests(t, env, []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/v1/auth/signup",
			body:     signup("TAKEN@test.pk", "k3yb0ard!", "k3yb0ard!", uni),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": profile.ErrEmailExists.Error()}),
		},
		{
			name: "unknown university", method: http.MethodPost, path: "/v1/auth/signup",
			body:     signup("sara@test.pk", "k3yb0ard!", "k3yb0ard!", "Hogwarts"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"university": "unknown university"}),
		},
		{
			name: "numeric password", method: http.MethodPost, path: "/v1/auth/signup",
			body:     signup("sara@test.pk", "12345678901", "12345678901", uni),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
	})

	rec := env.do(http.MethodPost, "/v1/auth/signup", "", signup(" Sara@Test.pk ", "k3yb0ard!", "k3yb0ard!", uni))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p profile.Profile
	unmarshallObj(t, rec, &p)
	assert.Equal(t, "sara@test.pk", p.Email)
	assert.Equal(t, profile.TypeStudent, p.UserType)
	assert.False(t, p.IsVerified)
	assert.False(t, p.EmailVerified)

	uid, token := sentToken(t, "sara@test.pk")

	runHTTPTests(t, env, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/v1/auth/verify-email",
			body:     marchallObj(t, profile.VerifyEmail{UID: uid, Token: "nope-nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: profile.ErrInvalidToken.Error()}),
		},
		{
			name: "missing uid", method: http.MethodPost, path: "/v1/auth/verify-email",
			body:     marchallObj(t, profile.VerifyEmail{Token: token}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"uid": "this field is required"}),
		},
	})

	rec = env.do(http.MethodPost, "/v1/auth/verify-email", "", marchallObj(t, profile.VerifyEmail{UID: uid, Token: token}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshallObj(t, rec, &p)
	assert.True(t, p.IsVerified)
	assert.True(t, p.EmailVerified)

	// tokens are single use
	rec = env.do(http.MethodPost, "/v1/auth/verify-email", "", marchallObj(t, profile.VerifyEmail{UID: uid, Token: token}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/auth/verify-email/resend", "", marchallObj(t, EmailRequest{Email: "sara@test.pk"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: profile.ErrAlreadyVerified.Error()}),
	}, rec)

	// unknown emails are not disclosed
	rec = env.do(http.MethodPost, "/v1/auth/verify-email/resend", "", marchallObj(t, EmailRequest{Email: "ghost@test.pk"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_login(t *testing.T) {
	env := setup(t)
	student := testutil.CreateStudent(t, env.profileRepo, "Ali", "ali@test.pk", "s3cret-pwd", true)
	inactive := testutil.CreateStudent(t, env.profileRepo, "Gone", "gone@test.pk", "s3cret-pwd", true)
	inactive.IsActive = false
	_, err := env.profileRepo.UpdateProfile(context.Background(), inactive)
	require.NoError(t, err)

	login := func(email, pwd string) []byte { return marchallObj(t, LoginRequest{Email: email, Password: pwd}) }
	failed := marchallObj(t, httpErr{Error: profile.ErrAuthenticationFailed.Error()})

	runHTTPTests(t, env, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/auth/login", body: login("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown email", method: http.MethodPost, path: "/v1/auth/login", body: login("who@test.pk", "s3cret-pwd"), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "wrong password", method: http.MethodPost, path: "/v1/auth/login", body: login("ali@test.pk", "wrong-pwd"), wantCode: http.StatusBadRequest, wantData: failed},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/auth/login", body: login("gone@test.pk", "s3cret-pwd"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: profile.ErrAccountDeactivated.Error()}),
		},
	})

	rec := env.do(http.MethodPost, "/v1/auth/login", "", login(" ALI@test.pk", "s3cret-pwd"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	unmarshallObj(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, student.ID, resp.Profile.ID)
	assert.True(t, resp.Profile.LastLogin.Valid)

	// the token authenticates
	rec = env.do(http.MethodGet, "/v1/profile", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var p profile.Profile
	unmarshallObj(t, rec, &p)
	assert.Equal(t, student.ID, p.ID)

	// and refreshes
	rec = env.do(http.MethodPost, "/v1/auth/token-refresh", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed LoginResponse
	unmarshallObj(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
	assert.Nil(t, refreshed.Profile)
}

func Test_authApi_tokens(t *testing.T) {
	env := setup(t)
	student := testutil.CreateStudent(t, env.profileRepo, "Ali", "ali@test.pk", "", true)

	other := testutil.NewConfig()
	other.SecretKey = "another-secret"
	forged, err := GenerateToken(other, GetProfileClaims(other, student))
	require.NoError(t, err)

	expiredConf := testutil.NewConfig()
	expiredConf.Server.JWTExpirationDelta = -time.Hour
	expired, err := GenerateToken(expiredConf, GetProfileClaims(expiredConf, student))
	require.NoError(t, err)

	invalid := marchallObj(t, httpErr{Error: "invalid or expired jwt"})
	runHTTPTests(t, env, []httpTest{
		{name: "missing", path: "/v1/profile", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "malformed", path: "/v1/profile", token: "abc.def", wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "forged", path: "/v1/profile", token: forged, wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "expired", path: "/v1/profile", token: expired, wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "valid", path: "/v1/profile", token: getToken(t, env.conf, student), wantCode: http.StatusOK},
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profile", "")
		req.Header.Set("Authorization", "bearer "+getToken(t, env.conf, student))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other scheme", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profile", "")
		req.Header.Set("Authorization", "Basic YWxpOnB3ZA==")
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("optional auth ignores missing token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/vendors/unknown", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = env.do(http.MethodGet, "/v1/vendors/unknown", forged)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	env := setup(t)
	testutil.CreateStudent(t, env.profileRepo, "Ali", "ali@test.pk", "old-pwd-123", true)

	rec := env.do(http.MethodPost, "/v1/auth/password-reset", "", marchallObj(t, EmailRequest{Email: "nobody@test.pk"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	_, sent := emailsvc.LastSentMessage("nobody@test.pk")
	assert.False(t, sent)

	rec = env.do(http.MethodPost, "/v1/auth/password-reset", "", marchallObj(t, EmailRequest{Email: "ali@test.pk"}))
	require.Equal(t, http.StatusOK, rec.Code)
	uid, token := sentToken(t, "ali@test.pk")

	confirm := func(pwd, confirm string) []byte {
		return marchallObj(t, profile.ResetPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: confirm})
	}
	runHTTPTests(t, env, []httpTest{
		{name: "mismatch", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm("n3w-pwd-456", "other-789"), wantCode: http.StatusBadRequest},
		{name: "short", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm("n3w", "n3w"), wantCode: http.StatusBadRequest},
		{
			name: "ok", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm("n3w-pwd-456", "n3w-pwd-456"),
			wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{name: "token used", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm("an0ther-pwd", "an0ther-pwd"), wantCode: http.StatusBadRequest},
	})

	rec = env.do(http.MethodPost, "/v1/auth/login", "", marchallObj(t, LoginRequest{Email: "ali@test.pk", Password: "n3w-pwd-456"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_rateLimit(t *testing.T) {
	env := setup(t, ratelimit.NewLimiter(0.001, 2))
	body := marchallObj(t, LoginRequest{Email: "who@test.pk", Password: "whatever"})

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/auth/login", "", body).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/auth/login", "", body).Code)

	rec := env.do(http.MethodPost, "/v1/auth/login", "", body)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusTooManyRequests,
		wantData: marchallObj(t, httpErr{Error: "too many requests"}),
	}, rec)

	// other routes have their own bucket
	rec = env.do(http.MethodPost, "/v1/auth/password-reset", "", marchallObj(t, EmailRequest{Email: "who@test.pk"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}
