package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/domain"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/repository"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/service"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"go.uber.org/zap"
)

type CreateOrderRequest struct {
	CustomerID int64                    `json:"customer_id" validate:"required,gt=0"`
	Items      []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	ProductName string `json:"product_name" validate:"required"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	Quantity    int32  `json:"quantity" validate:"required,gt=0"`
}

type OrderHandler struct {
	service  service.OrderService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	input := new(CreateOrderRequest)

	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in create order", zap.Error(err))

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

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), input.CustomerID, items)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "create order failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create order",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.service.GetOrderByID(c.UserContext(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}

		logging.Error(c.UserContext(), h.logger, "get order failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch order"})
	}

	return c.JSON(order)
}
