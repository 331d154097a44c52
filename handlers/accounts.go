// handlers/accounts.go
package handlers

import (
	"daily-checkin-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccountRoutes(app *fiber.App, accountService *services.AccountService) {
	app.Post("/s/accounts", accountService.CreateAccount)
	app.Get("/s/accounts", accountService.ListAccounts)
	app.Put("/s/accounts/:id/credential", accountService.UpdateCredential)
	app.Delete("/s/accounts/:id", accountService.DeleteAccount)
}
