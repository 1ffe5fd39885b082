package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/http/respond"
	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (auth.Claims, error)
}

// Revocations reports whether a token was logged out.
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// UserFinder resolves the token subject.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (models.User, error)
}

const msgUnauthorized = "غير مصرح"

// Authenticator resolves the bearer token into an auth.Identity on the request context.
type Authenticator struct {
	tokens  TokenParser
	revoked Revocations
	users   UserFinder
	log     *zap.Logger
}

func NewAuthenticator(tokens TokenParser, revoked Revocations, users UserFinder, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, revoked: revoked, users: users, log: log.Named("auth")}
}

// Require rejects requests without a valid, unrevoked token for an existing user.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		revoked, err := a.revoked.Contains(r.Context(), token)
		if err != nil {
			a.log.Error("denylist lookup failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "تعذر التحقق من الجلسة")
			return
		}
		if revoked {
			respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		user, err := a.users.FindUserByID(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				a.log.Error("load user failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
				respond.Error(w, http.StatusInternalServerError, "تعذر التحقق من الجلسة")
				return
			}
			respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{User: user, Token: token, Claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
