// handlers/dashboard.go
package handlers

import (
	"errors"

	"sniper-console/crypto"
	"sniper-console/middleware"
	"sniper-console/models"
	"sniper-console/services"
	"sniper-console/session"
	"sniper-console/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupDashboardRoutes wires the user-facing API. Every route requires
// the gateway principal context; mutations go through the session
// engine so the per-action serialization applies.
func SetupDashboardRoutes(app *fiber.App, sessions *session.Manager, wallets *services.WalletService, activity *services.ActivityService) {
	secured := app.Group("/", middleware.PrincipalContextMiddleware())

	secured.Post("/register", func(c *fiber.Ctx) error {
		principalID := c.Locals("principal_id").(string)

		var body struct {
			WalletAddress string `json:"wallet_address"`
			PrivateKey    string `json:"private_key"`
			SignupCode    string `json:"signup_code"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.SignupCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "signup_code is required"})
		}

		if err := wallets.Register(principalID, body.WalletAddress, body.PrivateKey, body.SignupCode); err != nil {
			return errorResponse(c, err)
		}

		// A fresh wallet invalidates any previous session state.
		sessions.Drop(principalID)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"wallet_address": body.WalletAddress})
	})

	secured.Get("/dashboard", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(engine.Snapshot())
	})

	secured.Post("/sniper/toggle", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}
		if err := engine.ToggleSniper(); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(engine.Snapshot())
	})

	secured.Post("/watchlist", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}

		var body struct {
			MintAddress string  `json:"mint_address"`
			BuyAmount   float64 `json:"buy_amount"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := engine.AddWatch(body.MintAddress, body.BuyAmount); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(engine.Snapshot())
	})

	secured.Delete("/watchlist/:mint", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}
		if err := engine.RemoveWatch(c.Params("mint")); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(engine.Snapshot())
	})

	secured.Put("/settings", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}

		var body models.UserSettings
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := engine.SaveSettings(body); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(engine.Snapshot())
	})

	secured.Post("/wallet/rotate", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}

		var body struct {
			WalletAddress string `json:"wallet_address"`
			PrivateKey    string `json:"private_key"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		err = engine.RotateWallet(body.WalletAddress, body.PrivateKey)
		if errors.Is(err, services.ErrRotationIncomplete) {
			// Wallet is live; missing config rows read as defaults.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"wallet_address": body.WalletAddress,
				"warning":        err.Error(),
			})
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"wallet_address": body.WalletAddress})
	})

	secured.Post("/logs/refresh", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}
		engine.RefreshLogs()
		return c.JSON(engine.Snapshot().Logs)
	})

	secured.Get("/activity/stream", func(c *fiber.Ctx) error {
		engine, err := engineFor(c, sessions)
		if err != nil {
			return errorResponse(c, err)
		}
		c.Locals("wallet_address", engine.Snapshot().WalletAddress)
		return activity.StreamFeedSSE(c)
	})
}

func engineFor(c *fiber.Ctx, sessions *session.Manager) (*session.Engine, error) {
	principalID := c.Locals("principal_id").(string)
	return sessions.Get(principalID)
}

// errorResponse maps the typed error taxonomy onto HTTP statuses. Remote
// failures are surfaced verbatim and never retried here.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, utils.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCodeInvalid), errors.Is(err, services.ErrCodeUsed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no wallet linked — complete onboarding first"})
	case errors.Is(err, session.ErrBusy):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyRegistered), errors.Is(err, services.ErrNoKey):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrRotationFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, crypto.ErrConfig), errors.Is(err, crypto.ErrIntegrity):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}
