package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stronglink/stronglink/internal/session"
)

// defaultListMax bounds /uris responses when the client does not pass max.
const defaultListMax = 50

func (a *App) urisHandler(c *fiber.Ctx) error {
	max := c.QueryInt("max", defaultListMax)
	sess := CurrentSession(c)

	var uris []string
	err := a.loop.Submit("list-uris", func() (e error) {
		uris, e = a.sessions.ListURIs(c.UserContext(), sess, session.MatchAll{}, max)
		return e
	})
	if errors.Is(err, session.ErrNotAuthorized) {
		return fiber.NewError(fiber.StatusForbidden, "authentication required")
	}
	if err != nil {
		return handle500(c, err)
	}

	return c.JSON(fiber.Map{"uris": uris})
}

func (a *App) fileInfoHandler(c *fiber.Ctx) error {
	uri := c.Query("uri")
	if uri == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing uri parameter")
	}
	sess := CurrentSession(c)

	var info *session.FileInfo
	err := a.loop.Submit("file-info", func() (e error) {
		info, e = a.sessions.FileInfoForURI(c.UserContext(), sess, uri)
		return e
	})
	if errors.Is(err, session.ErrNotAuthorized) {
		return fiber.NewError(fiber.StatusForbidden, "authentication required")
	}
	if err != nil {
		return handle500(c, err)
	}
	if info == nil {
		return fiber.NewError(fiber.StatusNotFound, "unknown uri")
	}

	return c.JSON(fiber.Map{
		"path": info.Path,
		"type": info.Type,
		"size": info.Size,
	})
}
