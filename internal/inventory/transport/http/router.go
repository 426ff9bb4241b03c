package http

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *InventoryHandler) {
	api := app.Group("/api")

	inventory := api.Group("/inventory")
	inventory.Post("/:productId/initialize", h.Initialize)
	inventory.Patch("/:productId/stock", h.AdjustStock)
	inventory.Get("/:productId", h.GetByProductID)
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string)
	for _, err := range errs {
		field := strings.ToLower(err.Field())

		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}
