package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errMissingJWT     = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidJWT     = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyReqs    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// domainErrorCodes maps the domain errors that can safely be shown to clients to their HTTP status.
var domainErrorCodes = map[error]int{
	profile.ErrNotFound:             http.StatusNotFound,
	profile.ErrEmailExists:          http.StatusBadRequest,
	profile.ErrAlreadyVerified:      http.StatusBadRequest,
	profile.ErrAuthenticationFailed: http.StatusBadRequest,
	profile.ErrAccountDeactivated:   http.StatusForbidden,
	profile.ErrInvalidToken:         http.StatusBadRequest,
	profile.ErrTokenExpired:         http.StatusBadRequest,

	vendor.ErrNotFound: http.StatusNotFound,

	offer.ErrNotFound:        http.StatusNotFound,
	offer.ErrQRCodeNotFound:  http.StatusNotFound,
	offer.ErrOfferNotActive:  http.StatusConflict,
	offer.ErrOfferNotStarted: http.StatusConflict,
	offer.ErrOfferExpired:    http.StatusConflict,
	offer.ErrMaxUsesReached:  http.StatusConflict,

	subscription.ErrNotFound:          http.StatusNotFound,
	subscription.ErrPlanNotFound:      http.StatusNotFound,
	subscription.ErrAlreadySubscribed: http.StatusConflict,
	subscription.ErrTrialUsed:         http.StatusConflict,
	subscription.ErrNotStudent:        http.StatusForbidden,

	redemption.ErrInvalidCode:          http.StatusNotFound,
	redemption.ErrNotStudent:           http.StatusForbidden,
	redemption.ErrNoActiveSubscription: http.StatusForbidden,

	announcement.ErrNotFound: http.StatusNotFound,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := domainErrorCodes[cause]; ok {
			code = c
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var p profile.Profile
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					p.ID = claims.Subject
					p.FullName = claims.FullName
					p.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), p)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
