package middlewares

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=middlewares

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-ledger/internal/jwt"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// Tokener defines the minimal interface needed by the middleware
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// AccountOwnerGetter resolves the user an account belongs to.
type AccountOwnerGetter interface {
	Owner(ctx context.Context, accountID int64) (int64, error)
}

// RetryAfterSeconds is advertised when the owner lookup hits a retryable fault.
const RetryAfterSeconds = 1

type claimsKey struct{}

// AuthMiddleware returns a middleware that validates the bearer token and
// stores its claims in the request context.
func AuthMiddleware(tokener Tokener) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := tokener.GetTokenFromRequest(ctx, r)
			if err != nil {
				logger.Log.Errorw("authorization failed", "err", err)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			claims, err := tokener.GetClaims(ctx, tokenString)
			if err != nil {
				logger.Log.Errorw("authorization failed", "err", err)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// AccountOwnerMiddleware lets a request through only when the account named by
// the accountID URL parameter belongs to the authenticated user.
func AccountOwnerMiddleware(owners AccountOwnerGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
			if err != nil || accountID <= 0 {
				http.Error(w, "invalid account id", http.StatusBadRequest)
				return
			}

			ownerID, err := owners.Owner(ctx, accountID)
			switch {
			case errors.Is(err, models.ErrAccountNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			case models.IsRetryable(err):
				logger.Log.Warnw("account owner lookup unavailable", "account_id", accountID, "err", err)
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
				http.Error(w, models.ErrStorageFailure.Error(), http.StatusServiceUnavailable)
				return
			case err != nil:
				logger.Log.Errorw("failed to resolve account owner", "account_id", accountID, "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			case ownerID != claims.UserID:
				logger.Log.Warnw("account access denied", "account_id", accountID, "user_id", claims.UserID)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
