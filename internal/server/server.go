// Package server exposes the bulk enrichment pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

type Deps struct {
	Config config.Config
	Logger zerolog.Logger

	// Enricher resolves domains. Nil means no credential is configured and
	// every enrich request answers 503.
	Enricher enrich.Enricher

	// Storage backs the per-client limiter. Nil selects one from Config.Server
	// (see NewLimiterStorage).
	Storage fiber.Storage
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	bodyLimit := d.Config.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = config.DefaultBodyLimitMB
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit * 1024 * 1024,
		ErrorHandler:          errorHandler(d.Logger),
	})

	storage := d.Storage
	if storage == nil {
		storage = NewLimiterStorage(d.Config.Server, d.Logger)
	}
	registerMiddleware(app, d.Logger)

	h := &enrichHandler{
		enricher: d.Enricher,
		logger:   d.Logger,
		opts: pipeline.Options{
			RequestTimeout: d.Config.RequestTimeout,
			RateLimitRPS:   d.Config.RateLimitRPS,
		},
	}

	v1 := app.Group("/v1", clientLimiter(d.Config.Server, storage, d.Logger))
	v1.Post("/enrich", h.handle)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		logger.Warn().
			Str("path", c.Path()).
			Int("status", code).
			Str("message", msg).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Msg("request failed")

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    code,
				"message": msg,
			},
		})
	}
}

// Run serves app on addr until ctx is done, then shuts it down gracefully.
func Run(ctx context.Context, app *fiber.App, addr string, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		return app.Listener(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Warn().Msg("shutdown signal received, closing server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			logger.Error().Err(err).Msg("server forced to shutdown")
			return err
		}
		logger.Info().Msg("server stopped cleanly")
		return nil
	})
	return g.Wait()
}
