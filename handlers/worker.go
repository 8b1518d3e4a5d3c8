// handlers/worker.go
package handlers

import (
	"errors"

	"sniper-console/crypto"
	"sniper-console/models"
	"sniper-console/services"

	"github.com/gofiber/fiber/v2"
)

// SetupWorkerRoutes wires the executor-facing API. These routes carry no
// user context — only the gateway token applied globally — and expose
// the contract the external trading worker consumes: the work set, the
// revealed key, heartbeats and the append-only result streams.
func SetupWorkerRoutes(app *fiber.App, wallets *services.WalletService, sniper *services.SniperService, watchlist *services.WatchlistService, settings *services.SettingsService, activity *services.ActivityService) {
	worker := app.Group("/worker")

	worker.Get("/wallets/active", func(c *fiber.Ctx) error {
		addresses, err := sniper.ActiveWallets()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"wallets": addresses})
	})

	worker.Get("/watchlist/:address", func(c *fiber.Ctx) error {
		items, err := watchlist.Active(c.Params("address"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"watchlist": items})
	})

	worker.Get("/settings/:address", func(c *fiber.Ctx) error {
		userSettings, err := settings.Get(c.Params("address"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(userSettings)
	})

	// The one place key material leaves the service, and only toward
	// the executor behind the gateway. An integrity failure means the
	// stored key is unrecoverable; the executor must stop, not guess.
	worker.Get("/key/:address", func(c *fiber.Ctx) error {
		plaintext, err := wallets.RevealKey(c.Params("address"))
		switch {
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no key stored for wallet"})
		case errors.Is(err, crypto.ErrIntegrity):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"private_key": plaintext})
	})

	worker.Post("/heartbeat/:address", func(c *fiber.Ctx) error {
		if err := sniper.Heartbeat(c.Params("address")); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	worker.Post("/sniped", func(c *fiber.Ctx) error {
		var body struct {
			WalletAddress string `json:"wallet_address"`
			MintAddress   string `json:"mint_address"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := watchlist.MarkSniped(body.WalletAddress, body.MintAddress); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no such watch entry"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	worker.Post("/trades", func(c *fiber.Ctx) error {
		var trade models.TradeLog
		if err := c.BodyParser(&trade); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if trade.WalletAddress == "" || trade.MintAddress == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet_address and mint_address are required"})
		}
		if err := activity.LogTrade(trade); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	worker.Post("/activity", func(c *fiber.Ctx) error {
		var body struct {
			WalletAddress string         `json:"wallet_address"`
			LogType       string         `json:"log_type"`
			Message       string         `json:"message"`
			Metadata      map[string]any `json:"metadata"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.WalletAddress == "" || body.Message == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet_address and message are required"})
		}
		if body.LogType == "" {
			body.LogType = models.LogInfo
		}
		activity.Log(body.WalletAddress, body.LogType, body.Message, body.Metadata)
		return c.SendStatus(fiber.StatusCreated)
	})
}
