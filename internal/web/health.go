package web

import (
	"github.com/gofiber/fiber/v2"
)

// livenessHandler reports that the process is up.
func (a *App) livenessHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"alive": true})
}

// readinessHandler reports whether the loop answers and how loaded the
// database pool is. The count is read on a fiber so the pool state is never
// touched off-loop.
func (a *App) readinessHandler(c *fiber.Ctx) error {
	var inUse int
	err := a.loop.Submit("readiness", func() error {
		inUse = a.sessions.Repo().DB().InUse()
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ready": false})
	}
	return c.JSON(fiber.Map{"ready": true, "connections_in_use": inUse})
}
