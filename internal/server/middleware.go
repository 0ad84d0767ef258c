package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
)

// NewLimiterStorage returns Redis-backed storage when cfg.RedisAddr is set and
// reachable, and in-memory storage otherwise.
func NewLimiterStorage(cfg config.ServerConfig, logger zerolog.Logger) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.RedisAddr == "" {
		return store
	}

	// redisStorage.New panics when the server cannot be reached.
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("addr", cfg.RedisAddr).Msg("redis limiter store init failed, falling back to memory")
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.RedisAddr},
		Database: cfg.RedisDB,
	})
	logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("using redis for rate limiting")
	return store
}

func registerMiddleware(app *fiber.App, logger zerolog.Logger) {
	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New())

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start).Round(time.Millisecond)).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Msg("request")
		return err
	})
}

// clientLimiter bounds enrich calls per client IP. A zero LimitMax disables it.
func clientLimiter(cfg config.ServerConfig, store fiber.Storage, logger zerolog.Logger) fiber.Handler {
	if cfg.LimitMax <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	window := cfg.LimitWindow
	if window <= 0 {
		window = config.DefaultServerLimitSpan
	}
	return limiter.New(limiter.Config{
		Max:               cfg.LimitMax,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "enrich:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logger.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("rate limit exceeded")
			return fiber.NewError(fiber.StatusTooManyRequests, "Too Many Requests")
		},
	})
}
