package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/async"
	"github.com/stronglink/stronglink/internal/options"
	"github.com/stronglink/stronglink/internal/session"
)

// App is the HTTP surface over the session manager. Handlers run on the
// HTTP server's goroutines and bridge into the cooperative world through
// Loop.Submit: every session operation executes on a fiber.
type App struct {
	loop        *async.Loop
	sessions    *session.Manager
	opts        *options.Opts
	fiber       *fiber.App
	rateLimiter *RateLimiter
}

// createFiberApp creates and configures a new Fiber application.
func createFiberApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "stronglink",
		BodyLimit:             4 * 1024,
		ErrorHandler:          handle500,
		DisableStartupMessage: true,
	})
}

// NewApp wires the HTTP routes to the session manager.
func NewApp(loop *async.Loop, sessions *session.Manager, opts *options.Opts) *App {
	a := &App{
		loop:        loop,
		sessions:    sessions,
		opts:        opts,
		fiber:       createFiberApp(),
		rateLimiter: NewRateLimiter(opts.LoginMaxAttempts, opts.LoginWindow, opts.LoginBlockPeriod),
	}

	f := a.fiber
	f.Get("/health/live", a.livenessHandler)
	f.Get("/health/ready", a.readinessHandler)

	f.Post("/login", a.loginHandler)

	authed := f.Group("/", a.WithSession())
	authed.Post("/logout", a.logoutHandler)
	authed.Get("/uris", a.urisHandler)
	authed.Get("/files/info", a.fileInfoHandler)

	return a
}

// Listen starts the HTTP server and blocks until it stops.
func (a *App) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("HTTP server listening")
	return a.fiber.Listen(addr)
}

// Shutdown stops the server gracefully and releases the rate limiter.
func (a *App) Shutdown(ctx context.Context) error {
	a.rateLimiter.Stop()
	return a.fiber.ShutdownWithContext(ctx)
}

// Fiber exposes the underlying fiber app, used by tests to drive requests
// without a network listener.
func (a *App) Fiber() *fiber.App {
	return a.fiber
}

// handle500 is the fallback error handler: everything unclassified is a
// transient server error. No authentication detail reaches the wire.
func handle500(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
