package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

const (
	contextClaimsKey  = "userToken"
	contextProfileKey = "profile"
	tokenAudience     = "students"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"name,omitempty"`
	UserType     string `json:"user_type,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

type authenticator struct {
	signingKey     []byte
	issuer         string
	expiration     time.Duration
	refreshExpires time.Duration
}

func newAuthenticator(conf *core.Config) authenticator {
	return authenticator{
		signingKey:     []byte(conf.SecretKey),
		issuer:         conf.AppName,
		expiration:     conf.Server.JWTExpirationDelta,
		refreshExpires: conf.Server.JWTRefreshExpirationDelta,
	}
}

// GetProfileClaims returns the claims of a new token for p.
// origIat is kept across refreshes to bound how long a session can be extended.
func GetProfileClaims(conf *core.Config, p profile.Profile, origIat ...int64) *Claims {
	return newAuthenticator(conf).claims(p, origIat...)
}

// GenerateToken generates a signed JWT token string representing the profile Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	return newAuthenticator(conf).sign(claims)
}

func (a authenticator) claims(p profile.Profile, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        p.Email,
		FullName:     p.FullName,
		UserType:     p.UserType,
		IsAdmin:      p.IsAdmin(),
	}
}

func (a authenticator) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a authenticator) parse(_ echo.Context, tokenStr string) (interface{}, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		new(Claims),
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidJWT
	}
	return token, nil
}

// middleware authenticates requests with their "Authorization: Bearer <token>" header.
// When optional, requests without token go through un-authed.
func (a authenticator) middleware(optional bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:             a.signingKey,
		SigningMethod:          echojwt.AlgorithmHS256,
		ContextKey:             contextClaimsKey,
		ParseTokenFunc:         a.parse,
		ContinueOnIgnoredError: optional,
		ErrorHandler: func(ctx echo.Context, err error) error {
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				if optional {
					return nil
				}
				return errMissingJWT
			}
			return errInvalidJWT
		},
	})
}

func (a authenticator) login(ctx echo.Context, svc profile.Service, email, pwd string) (string, profile.Profile, error) {
	p, err := svc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		return "", profile.Profile{}, err
	}
	token, err := a.sign(a.claims(p))
	return token, p, err
}

func (a authenticator) refresh(ctx echo.Context, svc profile.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	p, err := getContextProfile(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context profile")
	}

	// check if profile is still active
	if !p.IsActive {
		return "", profile.ErrAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpires)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	return a.sign(a.claims(p, claims.OrigIssuedAt))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextClaimsKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// isAuthenticated reports whether the request carries a valid token.
func isAuthenticated(ctx echo.Context) bool {
	_, err := getContextClaims(ctx)
	return err == nil
}

func getContextProfile(ctx echo.Context, svc profile.Service) (profile.Profile, error) {
	if p, ok := ctx.Get(contextProfileKey).(profile.Profile); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting context claims")
	}

	p, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return profile.Profile{}, errUnauthorized
		}
		return profile.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(contextProfileKey, p)
	return p, nil
}
