// Package main provides the entry point for the StrongLink server. It
// initializes logging, parses configuration, stands up the cooperative
// loop, and runs the repository and HTTP surface on top of it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/async"
	"github.com/stronglink/stronglink/internal/options"
	"github.com/stronglink/stronglink/internal/passhash"
	"github.com/stronglink/stronglink/internal/repo"
	"github.com/stronglink/stronglink/internal/session"
	"github.com/stronglink/stronglink/internal/version"
	"github.com/stronglink/stronglink/internal/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msgf("StrongLink %s starting...", version.FormatVersion())

	opts, err := options.Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration")
	}
	log.Logger = log.Logger.Level(opts.LogLevel)

	loop := async.New(opts.WorkerPoolSize)

	var (
		r   *repo.Repository
		mgr *session.Manager
		app *web.App
	)

	serverErr := make(chan error, 1)

	// Even the init code wants the async facade, so it runs on a fiber.
	initErr := make(chan error, 1)
	loop.Spawn("init", func() {
		r, err = repo.Open(loop, opts.RepoPath, opts.DBPoolSize)
		if err != nil {
			initErr <- err
			return
		}
		mgr = session.NewManager(r, passhash.New(loop, opts.BcryptCost), opts.CookieCacheTTL)
		mgr.StartPruner()
		app = web.NewApp(loop, mgr, opts)
		go func() {
			if err := app.Listen(opts.ListenAddr); err != nil {
				serverErr <- err
			}
		}()
		initErr <- nil
	})

	// The main goroutine becomes the scheduler; everything after this
	// point happens in response to signals or server failure.
	go func() {
		if err := <-initErr; err != nil {
			log.Error().Err(err).Msg("could not initialize server")
			loop.Stop()
			return
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		case err := <-serverErr:
			log.Error().Err(err).Msg("Server error")
		}

		log.Info().Msg("Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP shutdown")
		}

		_ = loop.Submit("term", func() error {
			mgr.Stop()
			return r.Close()
		})
		loop.Stop()
	}()

	loop.Run()

	log.Info().Msg("Graceful shutdown complete")
}
