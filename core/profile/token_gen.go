package profile

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	nowFunc = time.Now // mockable

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// tokenGenerator makes and checks one-time tokens for a Profile.
// A token stays valid until the profile state it was built from changes,
// or until timeout has passed.
type tokenGenerator struct {
	salt      []byte
	secretKey []byte
	timeout   time.Duration
	stateFunc func(p Profile) []byte
}

func newPasswordResetTokenGenerator(secretKey string, timeout time.Duration) tokenGenerator {
	return tokenGenerator{
		salt:      []byte("studentsave.core.profile.password_reset"),
		secretKey: []byte(secretKey),
		timeout:   timeout,
		stateFunc: func(p Profile) []byte {
			var val bytes.Buffer
			val.Write(p.PasswordHash)
			if p.LastLogin.Valid {
				val.WriteString(p.LastLogin.Time.UTC().String())
			}
			return val.Bytes()
		},
	}
}

func newEmailVerificationTokenGenerator(secretKey string, timeout time.Duration) tokenGenerator {
	return tokenGenerator{
		salt:      []byte("studentsave.core.profile.email_verification"),
		secretKey: []byte(secretKey),
		timeout:   timeout,
		stateFunc: func(p Profile) []byte {
			return []byte(p.Email + strconv.FormatBool(p.EmailVerified))
		},
	}
}

// EncodeUID base64 encodes given Profile ID
func EncodeUID(p Profile) string {
	return base64.RawURLEncoding.EncodeToString([]byte(p.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(idBytes), nil
}

// makeToken generates a token for a given Profile.
func (tg tokenGenerator) makeToken(p Profile) string {
	return tg.makeTokenWithTimestamp(p, numDaysSince2001(nowFunc()))
}

// verifyToken checks that a token for a given Profile is valid.
func (tg tokenGenerator) verifyToken(p Profile, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(tg.makeTokenWithTimestamp(p, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(nowFunc()) - ts) > int(tg.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (tg tokenGenerator) makeTokenWithTimestamp(p Profile, ts int) string {
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, tg.sign(tg.hashValue(p, ts)))
}

func (tg tokenGenerator) sign(val []byte) string {
	key := sha256.Sum256(append(append([]byte{}, tg.salt...), tg.secretKey...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write(val) // never returns an error
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (tg tokenGenerator) hashValue(p Profile, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(p.ID)
	val.Write(tg.stateFunc(p))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
