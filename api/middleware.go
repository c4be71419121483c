package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/config"
	"github.com/cleanpath/cleanpath-api/models"
)

var knownKinds = map[string]models.ActorKind{
	string(models.ActorUser):      models.ActorUser,
	string(models.ActorCollector): models.ActorCollector,
	string(models.ActorWMA):       models.ActorWMA,
	string(models.ActorAdmin):     models.ActorAdmin,
}

// JWTVerifier checks tokens issued by the identity provider. Tokens are
// HMAC signed and carry the caller id in user_id (or sub) and the caller
// kind in role.
type JWTVerifier struct {
	Secret []byte
}

// Verify parses token and returns the identity it carries
func (v JWTVerifier) Verify(token string) (models.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		return models.Actor{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return models.Actor{}, errors.New("invalid token claims")
	}

	id, _ := claims["user_id"].(string)
	if id == "" {
		id, _ = claims["sub"].(string)
	}
	if id == "" {
		return models.Actor{}, errors.New("token has no subject")
	}
	role, _ := claims["role"].(string)
	kind, ok := knownKinds[role]
	if !ok {
		return models.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	return models.Actor{ID: id, Kind: kind}, nil
}

// Authenticator resolves the bearer token on each request into an Actor.
// Verified tokens are cached for ttl so repeat calls skip signature checks.
type Authenticator struct {
	authenticator auth.Authenticator
}

// NewAuthenticator sets up go-guardian with a cached bearer strategy backed
// by verifier. The cache is evicted until ctx is done.
func NewAuthenticator(ctx context.Context, verifier JWTVerifier, ttl time.Duration) *Authenticator {
	cache := store.NewFIFO(ctx, ttl)
	strategy := bearer.New(func(_ context.Context, _ *http.Request, token string) (auth.Info, error) {
		actor, err := verifier.Verify(token)
		if err != nil {
			return nil, err
		}
		return auth.NewDefaultUser(actor.ID, actor.ID, []string{string(actor.Kind)}, nil), nil
	}, cache)

	a := auth.New()
	a.EnableStrategy(bearer.CachedStrategyKey, strategy)
	return &Authenticator{authenticator: a}
}

// Middleware rejects unauthenticated requests and puts the caller on the
// request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := a.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Debugw("unauthorized",
				"url", r.URL.String(),
				"error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		actor := models.Actor{ID: info.ID()}
		if groups := info.Groups(); len(groups) > 0 {
			actor.Kind = models.ActorKind(groups[0])
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireRole only lets callers of the given kinds through
func RequireRole(kinds ...models.ActorKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if actor.ID == "" {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
				return
			}
			if !actor.Is(kinds...) {
				config.ErrorStatus("forbidden", http.StatusForbidden, w,
					fmt.Errorf("role %s may not access this resource", actor.Kind))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
