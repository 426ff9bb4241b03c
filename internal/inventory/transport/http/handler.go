package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/repository"
	"github.com/saraiyakush/scalableshop-monorepo/internal/inventory/service"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.uber.org/zap"
)

type InitializeStockRequest struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

type AdjustStockRequest struct {
	Delta int32 `json:"delta" validate:"required"`
}

type InventoryHandler struct {
	service  service.InventoryService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewInventoryHandler(service service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *InventoryHandler) Initialize(c *fiber.Ctx) error {
	productID, err := parseProductID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	input := new(InitializeStockRequest)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in initialize stock", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": formatValidationErrors(validationErrs),
			})
		}

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	item, err := h.service.InitializeStock(c.UserContext(), productID, input.Quantity)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "initialize stock failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to initialize stock",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	productID, err := parseProductID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	input := new(AdjustStockRequest)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in adjust stock", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": formatValidationErrors(validationErrs),
			})
		}

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	item, err := h.service.UpdateStock(c.UserContext(), productID, input.Delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInventoryItemNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "inventory item not found"})
		case errors.Is(err, repository.ErrInsufficientStock):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "stock cannot go below zero"})
		}

		logging.Error(c.UserContext(), h.logger, "adjust stock failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to adjust stock",
		})
	}

	return c.JSON(item)
}

func (h *InventoryHandler) GetByProductID(c *fiber.Ctx) error {
	productID, err := parseProductID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	item, err := h.service.GetInventoryByProductID(c.UserContext(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrInventoryItemNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "inventory item not found"})
		}

		logging.Error(c.UserContext(), h.logger, "get inventory failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch inventory"})
	}

	return c.JSON(item)
}

func parseProductID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("productId"), 10, 64)
}
