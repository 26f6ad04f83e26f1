package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

const passwordResetSent = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type authApi struct {
	auth     authenticator
	svc      profile.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAuthAPI(
	g *echo.Group,
	jwt, limit echo.MiddlewareFunc,
	auth authenticator,
	svc profile.Service,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := authApi{auth: auth, svc: svc, validate: validate, logger: logger}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signUp, limit)
	ag.POST("/login", api.login, limit)
	ag.POST("/verify-email", api.verifyEmail)
	ag.POST("/verify-email/resend", api.resendVerification, limit)
	ag.POST("/password-reset", api.resetPassword, limit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) signUp(ctx echo.Context) error {
	var data profile.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, p, err := api.auth.login(ctx, api.svc, data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Profile: &p})
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	var data profile.VerifyEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyEmail")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.VerifyEmail(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying email")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *authApi) resendVerification(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.ResendVerification(ctx.Request().Context(), data.Email)
	switch errors.Cause(err) {
	case nil, profile.ErrNotFound:
		// do not tell attackers which emails exist
	case profile.ErrAlreadyVerified:
		return err
	default:
		api.logger.Error("resending verification email", errors.Wrap(err, "authApi.resendVerification"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "A new verification email is on its way."})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if cause := errors.Cause(err); !(err == nil || cause == profile.ErrNotFound || cause == profile.ErrAccountDeactivated) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "authApi.resetPassword"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetSent})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data profile.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string           `json:"token"`
		Profile *profile.Profile `json:"profile,omitempty"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}
