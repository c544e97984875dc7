// Package session implements cookie minting, cookie resolution, the
// verified-cookie cache, and the bounded per-session queries.
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/stronglink/stronglink/internal/async"
)

// CookieName is the cookie attribute carrying the session token in the
// Cookie header: `s=<sessionID>:<sessionKey>`.
const CookieName = "s"

// sessionKeyBytes is the entropy of a minted session key. 16 bytes encode
// to 22 URL-safe characters, comfortably above the 16-character minimum.
const sessionKeyBytes = 16

// FormatCookie renders the token minted by CreateCookie. The `s=` prefix is
// the caller's job when setting the header.
func FormatCookie(sessionID int64, sessionKey string) string {
	return fmt.Sprintf("%d:%s", sessionID, sessionKey)
}

// ParseCookie splits a raw Cookie header value of the form
// `s=<sessionID>:<sessionKey>` into its halves. It accepts the bare token
// (without `s=`) as well, since that is what CreateCookie hands out.
// A zero sessionID return means the value is malformed; no database work
// may be spent on it.
func ParseCookie(raw string) (sessionID int64, sessionKey string) {
	value := raw
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if after, ok := strings.CutPrefix(part, CookieName+"="); ok {
			value = after
			break
		}
	}

	idpart, keypart, ok := strings.Cut(value, ":")
	if !ok || keypart == "" {
		return 0, ""
	}
	id, err := strconv.ParseInt(idpart, 10, 64)
	if err != nil || id <= 0 {
		return 0, ""
	}
	if !validKey(keypart) {
		return 0, ""
	}
	return id, keypart
}

// validKey enforces the wire constraints on the secret half: printable,
// at least 16 characters, no `:` or `;`.
func validKey(key string) bool {
	if len(key) < 16 {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c <= ' ' || c > '~' || c == ':' || c == ';' {
			return false
		}
	}
	return true
}

// newSessionKey mints a session key from the cryptographic random source,
// rendered URL-safe. The calling fiber suspends while the source is read.
func newSessionKey(ctx context.Context, loop *async.Loop) (string, error) {
	var buf [sessionKeyBytes]byte
	if err := loop.Random(ctx, buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
