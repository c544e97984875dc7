// Package options provides configuration management for the StrongLink
// server, supporting multiple configuration sources with priority-based
// resolution.
//
// # Overview
//
// This package handles all configuration parsing from environment
// variables, command-line flags, and .env files. It provides type-safe
// configuration with validation, default values, and clear error messages
// for missing or invalid settings.
//
// Configuration sources are processed in priority order:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables
//  3. .env files (.env.local, .env)
//  4. Default values (lowest priority)
//
// # Configuration Options
//
// The repository path is the one required setting; it may be given as the
// --repo flag, the REPO_PATH variable, or the single positional argument:
//
//	stronglink /var/lib/stronglink
//
// Optional settings:
//
//	LISTEN_ADDR=:8000          # HTTP listen address
//	LOG_LEVEL=info             # trace, debug, info, warn, error, fatal, panic
//	DB_POOL_SIZE=4             # database connections in the pool
//	UV_THREADPOOL_SIZE=4       # worker threads for blocking operations
//	COOKIE_SECURE=true         # require HTTPS for the session cookie
//	COOKIE_CACHE_TTL=1h        # age bound for verified-cookie cache entries
//	BCRYPT_COST=10             # cost factor for password and session hashes
//	LOGIN_MAX_ATTEMPTS=5       # failed logins per address before blocking
//	LOGIN_ATTEMPT_WINDOW=15m   # window in which failed logins are counted
//	LOGIN_BLOCK_PERIOD=15m     # how long a blocked address stays blocked
//
// # Validation
//
// Required fields cause Parse to return a ValidationError when missing;
// duration, boolean, and integer values are validated at parse time with
// descriptive messages naming the offending variable.
package options
