// Package middleware provides the gin handlers of the admission gate:
// the gate itself, request logging and panic recovery.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/reqgate/reqgate/limiter"
	"github.com/reqgate/reqgate/logger"
	"github.com/reqgate/reqgate/strategy"
)

// GateConfig is the per-route throttling rule the gate enforces.
type GateConfig struct {
	// Limit is the maximum number of requests per window.
	Limit int64 `mapstructure:"limit" json:"limit" yaml:"limit"`

	// WindowSeconds is the trailing window length in seconds.
	WindowSeconds int `mapstructure:"window_seconds" json:"window_seconds" yaml:"window_seconds"`

	// KeyPolicy selects how requests are partitioned. Empty disables the
	// gate for the route.
	KeyPolicy string `mapstructure:"key_policy" json:"key_policy" yaml:"key_policy"`

	// HeaderName overrides the header used by the by_header policy.
	HeaderName string `mapstructure:"header_name" json:"header_name" yaml:"header_name"`

	// FailOpen admits traffic when the counter store is unreachable.
	// When false the gate rejects with 503 instead.
	FailOpen bool `mapstructure:"fail_open" json:"fail_open" yaml:"fail_open"`
}

// Validate checks the rule's bounds.
func (c GateConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Limit, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.WindowSeconds, validation.Required, validation.Min(1)),
	)
}

// Window returns the rule's window as a duration.
func (c GateConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c GateConfig) rule() limiter.ResourceConfig {
	return limiter.ResourceConfig{
		Algorithm: string(limiter.AlgorithmSlidingWindow),
		Limit:     c.Limit,
		Window:    c.Window(),
	}
}

// Gate builds the admission middleware for one route. Configuration problems
// (bad bounds, unknown key policy) surface here, at setup time; the returned
// handler only ever produces allow, deny or store-failure outcomes.
//
// A nil manager, a disabled manager or an empty key policy yields a
// pass-through handler: limiting is opt-in per route.
func Gate(manager *limiter.Manager, log *logger.CtxZapLogger, cfg GateConfig) (gin.HandlerFunc, error) {
	if manager == nil || !manager.IsEnabled() || cfg.KeyPolicy == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}

	keyStrategy, err := strategy.New(cfg.KeyPolicy, cfg.HeaderName)
	if err != nil {
		return nil, err
	}
	if keyStrategy == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}

	rule := cfg.rule()
	if err := rule.Validate("gate"); err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := keyStrategy.Key(c, route)

		decision, err := manager.AllowWith(c.Request.Context(), key, rule)
		if err != nil {
			handleStoreFailure(c, log, cfg, key, route, err)
			return
		}

		if !decision.Allowed {
			reject(c, decision)
			return
		}

		c.Next()
	}, nil
}

// handleStoreFailure applies the fail-open/fail-closed policy. Fail-open lets
// the request through and logs the incident; fail-closed rejects with 503.
func handleStoreFailure(c *gin.Context, log *logger.CtxZapLogger, cfg GateConfig, key, route string, err error) {
	if log != nil {
		log.ErrorCtx(c.Request.Context(), "rate limiter store unavailable",
			zap.String("key", key),
			zap.String("route", route),
			zap.Bool("fail_open", cfg.FailOpen),
			zap.Error(err),
		)
	}

	if cfg.FailOpen {
		c.Next()
		return
	}

	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"detail": "Rate limiter unavailable",
	})
}

// reject finishes a denied request with 429, a Retry-After header and a
// message carrying the same whole-second hint.
func reject(c *gin.Context, decision *limiter.Decision) {
	seconds := decision.RetryAfterSeconds()
	c.Header("Retry-After", fmt.Sprintf("%d", seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"detail": fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", seconds),
	})
}

// IsUnsupportedPolicy reports whether err came from an unknown key policy.
func IsUnsupportedPolicy(err error) bool {
	var upe *strategy.UnsupportedPolicyError
	return errors.As(err, &upe)
}
