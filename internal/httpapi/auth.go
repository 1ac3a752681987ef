package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	apperr "github.com/example/payment-settlement/pkg/errors"
)

type ctxKey struct{}

// Authenticator resolves the caller identity from an HS256 bearer token
// issued by the user service. The identity is the "sub" claim.
type Authenticator struct {
	secret []byte
	alg    string
	logger *zap.Logger
}

func NewAuthenticator(secret, alg string, logger *zap.Logger) *Authenticator {
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), alg: alg, logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Identify(r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Warn("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

// Identify validates an Authorization header value and returns the user id.
func (a *Authenticator) Identify(header string) (string, error) {
	if header == "" {
		return "", unauthorized("Authorization header required")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", unauthorized("Invalid authorization header format. Expected: Bearer <token>")
	}

	token, err := jwt.Parse(parts[1], func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{a.alg}))
	if err != nil || !token.Valid {
		return "", apperr.Wrap(apperr.CodeUnauthorized, "Invalid or expired token", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", unauthorized("Invalid token: missing user ID")
	}
	if !event.ValidIdentifier(sub) {
		return "", unauthorized("Invalid token: malformed user ID")
	}
	return sub, nil
}

// Issue signs a token for userID with the configured secret. It exists for
// local tooling; production tokens come from the user service.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	if !event.ValidIdentifier(userID) {
		return "", apperr.New(apperr.CodeValidation, "invalid user id")
	}
	method := jwt.GetSigningMethod(a.alg)
	if method == nil {
		return "", apperr.New(apperr.CodeValidation, "unsupported signing method "+a.alg)
	}
	now := time.Now()
	return jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(a.secret)
}

// UserID returns the identity stored by Middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func unauthorized(msg string) error {
	return apperr.New(apperr.CodeUnauthorized, msg)
}
