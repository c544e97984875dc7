package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/stronglink/stronglink/internal/session"
)

func (a *App) loginHandler(c *fiber.Ctx) error {
	ip := c.IP()
	if a.rateLimiter.Blocked(ip) {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many failed attempts")
	}

	username := c.FormValue("username")
	password := c.FormValue("password")

	var cookie string
	err := a.loop.Submit("create-cookie", func() (e error) {
		cookie, e = a.sessions.CreateCookie(c.UserContext(), username, password)
		return e
	})
	if errors.Is(err, session.ErrAuthFailed) {
		a.rateLimiter.RecordFailure(ip)
		log.Debug().Str("username", username).Msg("login rejected")
		return fiber.NewError(fiber.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		return handle500(c, err)
	}
	a.rateLimiter.Reset(ip)

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    cookie,
		HTTPOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: "Strict",
	})

	return c.JSON(fiber.Map{"cookie": cookie})
}

func (a *App) logoutHandler(c *fiber.Ctx) error {
	sess := CurrentSession(c)
	if sess.Authenticated() {
		err := a.loop.Submit("delete-session", func() error {
			return a.sessions.Delete(c.UserContext(), sess.SessionID())
		})
		if err != nil {
			return handle500(c, err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: "Strict",
	})

	return c.SendStatus(fiber.StatusNoContent)
}
