// Package options provides configuration parsing and environment variable
// handling for the StrongLink server.
package options

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Opts holds all configuration options for the StrongLink server: the
// repository location, listener settings, pool sizes, and cookie policy.
type Opts struct {
	LogLevel zerolog.Level

	RepoPath   string
	ListenAddr string

	// Database connection pool settings
	DBPoolSize int

	// Worker pool for CPU-bound and blocking operations (bcrypt, DNS,
	// filesystem). Sized by UV_THREADPOOL_SIZE per libuv convention.
	WorkerPoolSize int

	// Cookie and session settings
	CookieSecure   bool
	CookieCacheTTL time.Duration
	BcryptCost     int

	// Login rate limiting: failed attempts per address tolerated inside
	// the window before the address is blocked.
	LoginMaxAttempts int
	LoginWindow      time.Duration
	LoginBlockPeriod time.Duration
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// validateRequired checks if a required value is provided.
func validateRequired(name string, value *string) error {
	if *value == "" {
		return ValidationError{Field: name, Message: "this option is required"}
	}

	return nil
}

func envStringOrDefault(name, d string) string {
	if v, exists := os.LookupEnv(name); exists && v != "" {
		return v
	}

	return d
}

func envDurationOrDefault(name string, d time.Duration) (time.Duration, error) {
	raw := envStringOrDefault(name, d.String())

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("could not parse %q as duration: %v", raw, err),
		}
	}

	return v, nil
}

func envLogLevelOrDefault(name string, d zerolog.Level) (string, error) {
	raw := envStringOrDefault(name, d.String())

	if _, err := zerolog.ParseLevel(raw); err != nil {
		return "", ValidationError{
			Field:   name,
			Message: fmt.Sprintf("could not parse %q as log level: %v", raw, err),
		}
	}

	return raw, nil
}

func envBoolOrDefault(name string, d bool) (bool, error) {
	raw := envStringOrDefault(name, strconv.FormatBool(d))

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("could not parse %q as bool: %v", raw, err),
		}
	}

	return v, nil
}

func envIntOrDefault(name string, d int) (int, error) {
	raw := envStringOrDefault(name, strconv.Itoa(d))

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("could not parse %q as int: %v", raw, err),
		}
	}

	return v, nil
}

// Parse parses command line flags and environment variables to build the
// server configuration. It loads from .env files, parses flags, and
// validates required settings. Returns an error if any configuration is
// invalid or missing required values.
func Parse() (*Opts, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	logLevelStr, err := envLogLevelOrDefault("LOG_LEVEL", zerolog.InfoLevel)
	if err != nil {
		return nil, err
	}

	dbPoolSize, err := envIntOrDefault("DB_POOL_SIZE", 4)
	if err != nil {
		return nil, err
	}

	// libuv's knob, kept for compatibility with existing deployments.
	workerPoolSize, err := envIntOrDefault("UV_THREADPOOL_SIZE", 4)
	if err != nil {
		return nil, err
	}

	cookieSecure, err := envBoolOrDefault("COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}

	cookieCacheTTL, err := envDurationOrDefault("COOKIE_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	bcryptCost, err := envIntOrDefault("BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}

	loginMaxAttempts, err := envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	loginWindow, err := envDurationOrDefault("LOGIN_ATTEMPT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	loginBlockPeriod, err := envDurationOrDefault("LOGIN_BLOCK_PERIOD", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	var (
		fLogLevel = flag.String("log-level", logLevelStr,
			"Log level. Valid values are: trace, debug, info, warn, error, fatal, panic.")

		fRepoPath = flag.String("repo", envStringOrDefault("REPO_PATH", ""),
			"Path to the repository data directory.")
		fListenAddr = flag.String("listen", envStringOrDefault("LISTEN_ADDR", ":8000"),
			"Address the HTTP server listens on.")

		fDBPoolSize = flag.Int("db-pool-size", dbPoolSize,
			"Number of database connections in the pool.")
		fWorkerPoolSize = flag.Int("worker-pool-size", workerPoolSize,
			"Number of worker threads for blocking operations (UV_THREADPOOL_SIZE).")

		fCookieSecure = flag.Bool("cookie-secure", cookieSecure,
			"Require HTTPS for the session cookie. "+
				"Set to false only for HTTP-only environments.")
		fCookieCacheTTL = flag.Duration("cookie-cache-ttl", cookieCacheTTL,
			"Age bound for entries in the verified-cookie cache.")
		fBcryptCost = flag.Int("bcrypt-cost", bcryptCost,
			"Bcrypt cost factor for password and session-key hashes.")

		fLoginMaxAttempts = flag.Int("login-max-attempts", loginMaxAttempts,
			"Failed login attempts per address tolerated before blocking.")
		fLoginWindow = flag.Duration("login-attempt-window", loginWindow,
			"Window in which failed login attempts are counted.")
		fLoginBlockPeriod = flag.Duration("login-block-period", loginBlockPeriod,
			"How long an address stays blocked after too many failed logins.")
	)

	if !flag.Parsed() {
		flag.Parse()
	}

	logLevel, err := zerolog.ParseLevel(*fLogLevel)
	if err != nil {
		return nil, ValidationError{Field: "log-level", Message: err.Error()}
	}

	// The repository path may also be given as the single positional
	// argument, matching the historical invocation `stronglink <repo>`.
	if *fRepoPath == "" && flag.NArg() == 1 {
		*fRepoPath = flag.Arg(0)
	}
	if err := validateRequired("repo", fRepoPath); err != nil {
		return nil, err
	}

	if *fDBPoolSize <= 0 {
		return nil, ValidationError{Field: "db-pool-size", Message: "must be positive"}
	}
	if *fWorkerPoolSize <= 0 {
		return nil, ValidationError{Field: "worker-pool-size", Message: "must be positive"}
	}
	if *fLoginMaxAttempts <= 0 {
		return nil, ValidationError{Field: "login-max-attempts", Message: "must be positive"}
	}

	return &Opts{
		LogLevel: logLevel,

		RepoPath:   *fRepoPath,
		ListenAddr: *fListenAddr,

		DBPoolSize:     *fDBPoolSize,
		WorkerPoolSize: *fWorkerPoolSize,

		CookieSecure:   *fCookieSecure,
		CookieCacheTTL: *fCookieCacheTTL,
		BcryptCost:     *fBcryptCost,

		LoginMaxAttempts: *fLoginMaxAttempts,
		LoginWindow:      *fLoginWindow,
		LoginBlockPeriod: *fLoginBlockPeriod,
	}, nil
}
