package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stronglink/stronglink/internal/session"
)

const sessionLocalKey = "stronglink_session"

// WithSession resolves the request's cookie into a session and stores it in
// the request context. A missing or invalid cookie yields the null session
// rather than an error: dispatch always has a session in hand, and the
// authorization decision belongs to the operation, not the transport.
func (a *App) WithSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := session.Public(a.sessions.Repo())

		if raw := c.Cookies(session.CookieName); raw != "" {
			var resolved *session.Session
			err := a.loop.Submit("resolve-cookie", func() (e error) {
				resolved, e = a.sessions.ResolveCookie(c.UserContext(), raw)
				return e
			})
			switch {
			case err == nil:
				sess = resolved
			case errors.Is(err, session.ErrAuthFailed):
				// Opaque by design: the client learns nothing beyond
				// "not authenticated".
			default:
				return handle500(c, err)
			}
		}

		c.Locals(sessionLocalKey, sess)
		defer sess.Free()

		return c.Next()
	}
}

// CurrentSession returns the session resolved by WithSession, or nil if the
// middleware did not run. A nil session reads as unauthenticated.
func CurrentSession(c *fiber.Ctx) *session.Session {
	if sess, ok := c.Locals(sessionLocalKey).(*session.Session); ok && sess != nil {
		return sess
	}
	return nil
}
