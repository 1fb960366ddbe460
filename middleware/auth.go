package middleware

import (
	"errors"
	c "eventers-ticketing-backend/context"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/response"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	RoleClient = "client"
	RoleVendor = "vendor"
	RoleAdmin  = "admin"
)

// Authenticator verifies HS256 bearer tokens. Tokens that expired less than
// OfflineInterval ago are still accepted so door scanners that lost
// connectivity keep working.
type Authenticator struct {
	Secret          []byte
	OfflineInterval time.Duration
	Now             func() time.Time
}

func NewAuthenticator(secret string, offlineInterval time.Duration) *Authenticator {
	return &Authenticator{Secret: []byte(secret), OfflineInterval: offlineInterval, Now: time.Now}
}

// Authenticate rejects requests without a valid token and stores the caller
// on the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if raw == "" {
			response.Unauthorized().Send(ctx, w)
			return
		}

		id, role, err := a.Verify(raw)
		if err != nil {
			logger.Infof(ctx, "authenticate: rejecting token: %+v", err)
			response.Unauthorized().Send(ctx, w)
			return
		}

		next.ServeHTTP(w, r.WithContext(c.WithCaller(ctx, id, role)))
	})
}

// Verify returns the subject and role carried by token.
func (a *Authenticator) Verify(token string) (id, role string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	})

	var verr *jwt.ValidationError
	if err != nil && errors.As(err, &verr) && verr.Errors == jwt.ValidationErrorExpired {
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok || !a.withinInterval(claims) {
			return "", "", fmt.Errorf("verify: %w", err)
		}
		err = nil
	} else if err != nil {
		return "", "", fmt.Errorf("verify: %w", err)
	} else if !parsed.Valid {
		return "", "", errors.New("verify: invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("verify: could not parse claims")
	}
	id, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if id == "" {
		return "", "", errors.New("verify: token has no subject")
	}
	switch role {
	case RoleClient, RoleVendor, RoleAdmin:
	default:
		return "", "", fmt.Errorf("verify: unknown role %q", role)
	}
	return id, role, nil
}

func (a *Authenticator) withinInterval(claims jwt.MapClaims) bool {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return a.Now().Add(-a.OfflineInterval).Before(time.Unix(int64(exp), 0))
}

// RequireRole lets through callers with one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role := c.Caller(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(fmt.Sprintf("role %q may not call %s", role, r.URL.Path)).Send(r.Context(), w)
		})
	}
}
