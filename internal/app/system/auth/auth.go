// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Terminology: the bearer token's subject is the user's ObjectID in hex.
// Tokens are minted elsewhere; this package only verifies them.

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt secret is empty")
	// ErrBadSubject means the token verified but its subject is not a user id.
	ErrBadSubject = errors.New("token subject is not a user id")
)

// Claims carried by an orghub bearer token.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens and injects the user id into the
// request context.
type Verifier struct {
	secret []byte
	issuer string
	log    *zap.Logger
	now    func() time.Time
}

// NewVerifier builds a Verifier. issuer may be empty, in which case the iss
// claim is not checked.
func NewVerifier(secret, issuer string, logger *zap.Logger) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		log:    logger,
		now:    time.Now,
	}, nil
}

// Sign mints a token for userID. Used by tests and local tooling.
func (v *Verifier) Sign(userID primitive.ObjectID, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse verifies a token and returns the user id in its subject.
func (v *Verifier) Parse(tokenString string) (primitive.ObjectID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return primitive.NilObjectID, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrBadSubject, claims.Subject)
	}
	return id, nil
}

// RequireUser rejects requests without a valid bearer token with 401.
func (v *Verifier) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			unauthorized(w)
			return
		}
		id, err := v.Parse(raw)
		if err != nil {
			v.log.Debug("bearer token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, WithUserID(r, id))
	})
}

type ctxKey string

const userIDKey ctxKey = "orghub_user_id"

// UserID returns the authenticated user id, if RequireUser ran.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	return UserIDFromContext(r.Context())
}

// UserIDFromContext is UserID for code that only has a context.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

// WithUserID returns r carrying id as the authenticated user. Handlers
// tests use it to skip token handling.
func WithUserID(r *http.Request, id primitive.ObjectID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, id))
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="orghub"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
