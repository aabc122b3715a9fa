package checkers

import (
	"context"
	"time"

	"github.com/bluele/gcache"
)

const authCacheKey = "auth"

// Authenticator verifies credentials against a remote API.
type Authenticator interface {
	AuthTest(ctx context.Context) error
}

// AuthChecker reports unhealthy while the bot token is rejected.
type AuthChecker struct {
	name  string
	auth  Authenticator
	cache gcache.Cache
}

type authResult struct {
	err error
}

// NewAuthChecker wraps auth as a health check called name.
func NewAuthChecker(name string, auth Authenticator) *AuthChecker {
	return &AuthChecker{name: name, auth: auth}
}

// NewCachedAuthChecker is NewAuthChecker that reuses a result for ttl,
// so frequent health checks do not run into the remote API's rate limits.
func NewCachedAuthChecker(name string, auth Authenticator, ttl time.Duration) *AuthChecker {
	c := NewAuthChecker(name, auth)
	if ttl > 0 {
		c.cache = gcache.New(1).LRU().Expiration(ttl).Build()
	}
	return c
}

func (a *AuthChecker) Name() string {
	return a.name
}

func (a *AuthChecker) Check(ctx context.Context) error {
	if a.cache == nil {
		return a.auth.AuthTest(ctx)
	}

	if cached, err := a.cache.Get(authCacheKey); err == nil {
		return cached.(authResult).err
	}

	err := a.auth.AuthTest(ctx)
	// A check cut short says nothing about the token.
	if ctx.Err() == nil {
		_ = a.cache.Set(authCacheKey, authResult{err: err})
	}
	return err
}
