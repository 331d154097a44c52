// handlers/checkin.go
package handlers

import (
	"daily-checkin-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCheckinRoutes(app *fiber.App, checkinService *services.CheckinService) {
	// All routes sit behind the global service-token gate; grouped under
	// /s/ to match the rest of the fleet.
	app.Post("/s/checkin/run", checkinService.TriggerRun)
	app.Get("/s/checkin/history", checkinService.GetHistory)
}
