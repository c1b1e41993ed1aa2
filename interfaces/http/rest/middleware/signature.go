package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	appErrors "gnome-garden/pkg/errors"
)

// SignatureHeader carries the platform's signed JWT on every webhook call.
const SignatureHeader = "Google-Assistant-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrExpiredSignature = errors.New("webhook signature has expired")
	ErrWrongAudience    = errors.New("webhook signature audience mismatch")
)

// SignatureConfig selects how webhook signatures are verified. A PEM public
// key selects RS256, otherwise the shared secret selects HS256.
type SignatureConfig struct {
	Secret    string
	PublicKey string
	Audience  string
}

// Enabled reports whether any verification key is configured
func (c SignatureConfig) Enabled() bool {
	return c.Secret != "" || c.PublicKey != ""
}

// SignatureVerifier checks the webhook JWT
type SignatureVerifier struct {
	method    jwt.SigningMethod
	publicKey *rsa.PublicKey
	secret    []byte
	audience  string
}

// NewSignatureVerifier builds a verifier from config
func NewSignatureVerifier(config SignatureConfig) (*SignatureVerifier, error) {
	v := &SignatureVerifier{audience: config.Audience}
	switch {
	case config.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse webhook public key: %w", err)
		}
		v.method = jwt.SigningMethodRS256
		v.publicKey = key
	case config.Secret != "":
		v.method = jwt.SigningMethodHS256
		v.secret = []byte(config.Secret)
	default:
		return nil, errors.New("webhook secret or public key required")
	}
	return v, nil
}

// Verify validates a token string and returns its registered claims
func (v *SignatureVerifier) Verify(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingSignature
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != v.method {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	if v.audience != "" && !slices.Contains(claims.Audience, v.audience) {
		return nil, ErrWrongAudience
	}
	return claims, nil
}

// VerifySignature rejects webhook calls whose signature header does not verify.
func VerifySignature(v *SignatureVerifier, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := v.Verify(r.Header.Get(SignatureHeader)); err != nil {
				logger.Warn("Rejected webhook call",
					zap.Error(err),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				errorHandler.Handle(w, r, appErrors.NewUnauthorizedError(err.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
