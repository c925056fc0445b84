package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/services"
	"github.com/example/tillpoint/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Items []services.ItemInput `json:"items"`
	Notes string               `json:"notes"`
}

// Create opens a Draft order under the caller's active shift.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	order, err := h.orders.Create(user, req.Items, req.Notes)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "order created", order)
}

// AddItem appends a line item to a draft order.
func (h *OrderHandler) AddItem(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}

	var req services.ItemInput
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	order, err := h.orders.AddItem(user, orderID, req)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "item added", order)
}

// RemoveItem deletes a line item from a draft order.
func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}
	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid item id")
	}

	order, err := h.orders.RemoveItem(user, orderID, itemID)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "item removed", order)
}

type completeOrderRequest struct {
	Payments []services.PaymentInput `json:"payments"`
}

// Complete settles an order with the proposed payment set.
func (h *OrderHandler) Complete(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}

	var req completeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	order, err := h.orders.Complete(user, orderID, req.Payments)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "order completed", order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Cancel voids a draft or pending order.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}

	var req cancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	order, err := h.orders.Cancel(user, orderID, req.Reason)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "order cancelled", order)
}

// Refund reverses a completed order in full or in part.
func (h *OrderHandler) Refund(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}

	var req services.RefundInput
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid request body")
	}

	order, refundLog, err := h.orders.Refund(user, orderID, req)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "order refunded", fiber.Map{
		"order":  order,
		"refund": refundLog,
	})
}

// List returns the caller's orders.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.List(user, c.Query("status"), pg)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "orders",
		"data":    orders,
		"errors":  []utils.APIError{},
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Get returns a single order.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondError(c, fiber.StatusBadRequest, services.CodeValidation, "invalid order id")
	}

	order, err := h.orders.Get(user, orderID)
	if err != nil {
		return renderError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "order", order)
}
