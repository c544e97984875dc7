// Package version provides build-time information for the StrongLink
// server. Version, CommitHash and BuildTimestamp are injected with
// -ldflags; development builds report "Development version".
package version
