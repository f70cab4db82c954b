package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/middleware/auth"
	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/service/checkout"
)

type OrderHandler struct {
	Checkout *checkout.Service
	Producer *events.Producer
}

type createOrderRequest struct {
	OrderItems      []checkout.Line        `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Currency        string                 `json:"currency"`
}

func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_create")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("order_create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Checkout.CreateOrder(ctx, userID, checkout.CreateOrderInput{
		Items:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Currency:        req.Currency,
	})
	if err != nil {
		return checkoutError(c, l, "order_create_failed", err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  userID,
		"total":   order.TotalPrice,
	})

	l.Info("order_create_success", "status", 201, "order_id", order.ID, "user_id", userID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_get")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	isAdmin, _ := c.Get("isAdmin").(bool)
	var order *models.Order
	if isAdmin {
		order, err = h.Checkout.GetOrder(ctx, id)
	} else {
		order, err = h.Checkout.GetUserOrder(ctx, id, userID)
	}
	if err != nil {
		return checkoutError(c, l, "order_get_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_pay")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	// ownership check before the state transition
	if _, err := h.Checkout.GetUserOrder(ctx, id, userID); err != nil {
		isAdmin, _ := c.Get("isAdmin").(bool)
		if !isAdmin {
			return checkoutError(c, l, "order_pay_failed", err)
		}
	}

	var result models.PaymentResult
	if err := c.Bind(&result); err != nil {
		l.Warn("order_pay_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, already, err := h.Checkout.MarkPaid(ctx, id, result)
	if err != nil {
		return checkoutError(c, l, "order_pay_failed", err)
	}
	if already {
		l.Info("order_pay_noop", "status", 200, "order_id", id)
		return c.JSON(http.StatusOK, order)
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_paid",
		"orderID": order.ID,
	})

	l.Info("order_pay_success", "status", 200, "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Deliver(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_deliver")

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, already, err := h.Checkout.MarkDelivered(ctx, id)
	if err != nil {
		return checkoutError(c, l, "order_deliver_failed", err)
	}
	if !already {
		publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
			"type":    "order_delivered",
			"orderID": order.ID,
		})
	}

	l.Info("order_deliver_success", "status", 200, "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Mine(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	orders, err := h.Checkout.ListUserOrders(c.Request().Context(), userID)
	if err != nil {
		return checkoutError(c, logging.FromContext(c.Request().Context()), "order_mine_failed", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) All(c echo.Context) error {
	orders, err := h.Checkout.ListAllOrders(c.Request().Context())
	if err != nil {
		return checkoutError(c, logging.FromContext(c.Request().Context()), "order_all_failed", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) TotalOrders(c echo.Context) error {
	count, err := h.Checkout.CountOrders(c.Request().Context())
	if err != nil {
		return checkoutError(c, logging.FromContext(c.Request().Context()), "order_count_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"totalOrders": count})
}

func (h *OrderHandler) TotalSales(c echo.Context) error {
	total, count, err := h.Checkout.TotalSales(c.Request().Context())
	if err != nil {
		return checkoutError(c, logging.FromContext(c.Request().Context()), "order_sales_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"totalSales": total, "paidOrders": count})
}

func (h *OrderHandler) TotalSalesByDate(c echo.Context) error {
	buckets, err := h.Checkout.TotalSalesByDate(c.Request().Context())
	if err != nil {
		return checkoutError(c, logging.FromContext(c.Request().Context()), "order_sales_by_date_failed", err)
	}
	return c.JSON(http.StatusOK, buckets)
}

// checkoutError translates checkout sentinels into HTTP responses. Stock
// conflicts get a structured 409 body so the storefront can tell the
// shopper which line failed and how much is left.
func checkoutError(c echo.Context, l *slog.Logger, event string, err error) error {
	var stockErr *checkout.StockError
	if errors.As(err, &stockErr) {
		l.Warn(event, "status", 409, "product_id", stockErr.ProductID, "requested", stockErr.Requested, "available", stockErr.Available)
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     stockErr.Error(),
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	}
	switch {
	case errors.Is(err, checkout.ErrValidation), errors.Is(err, checkout.ErrNotPaid):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrInsufficientStock):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
