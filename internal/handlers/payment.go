package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/middleware/auth"
	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/payment"
	"github.com/kofiasare/storefront/internal/service/catalog"
	"github.com/kofiasare/storefront/internal/service/checkout"
)

type PaymentHandler struct {
	Checkout      *checkout.Service
	Catalog       *catalog.Service
	Stripe        *payment.Client
	WebhookSecret string
	ClientURL     string
	Producer      *events.Producer
}

// CreatePaymentIntent opens a provider intent for an order the caller owns
// and hands the client secret back to the storefront.
func (h *PaymentHandler) CreatePaymentIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_intent")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		OrderID uint `json:"orderId"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		l.Warn("payment_intent_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "orderId is required")
	}

	order, err := h.Checkout.GetUserOrder(ctx, req.OrderID, userID)
	if err != nil {
		return checkoutError(c, l, "payment_intent_failed", err)
	}
	if order.IsPaid {
		l.Warn("payment_intent_failed", "status", 400, "reason", "already_paid", "order_id", order.ID)
		return echo.NewHTTPError(http.StatusBadRequest, "order is already paid")
	}

	currency := order.Currency
	if currency == "" {
		currency = "usd"
	}
	intent, err := h.Stripe.CreatePaymentIntent(ctx, toMinorUnits(order.TotalPrice), currency, order.ID)
	if err != nil {
		l.Error("payment_intent_failed", "status", 502, "order_id", order.ID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	if err := h.Checkout.AttachPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		l.Error("payment_intent_failed", "status", 500, "order_id", order.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("payment_intent_success", "status", 200, "order_id", order.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"clientSecret": intent.ClientSecret,
		"paymentId":    intent.ID,
	})
}

type checkoutSessionRequest struct {
	Items           []checkout.Line        `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Currency        string                 `json:"currency"`
}

// CreateCheckoutSession opens a hosted checkout page. The cart rides along
// in session metadata so the webhook can rebuild the order server-side;
// display amounts come from the catalog, never the client.
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_session")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req checkoutSessionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_session_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.Items) == 0 {
		l.Warn("payment_session_failed", "status", 400, "reason", "empty_cart")
		return echo.NewHTTPError(http.StatusBadRequest, "no order items")
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	var lines []payment.CheckoutLine
	for _, item := range req.Items {
		prod, err := h.Catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return catalogError(l, "payment_session_failed", err)
		}
		lines = append(lines, payment.CheckoutLine{
			Name:        prod.Name,
			Description: prod.Description,
			AmountMinor: toMinorUnits(prod.Price),
			Currency:    currency,
			Quantity:    item.Qty,
		})
	}

	cart, err := json.Marshal(req.Items)
	if err != nil {
		l.Error("payment_session_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	shipping, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		l.Error("payment_session_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	metadata := map[string]string{
		"userId":   strconv.FormatUint(uint64(userID), 10),
		"cart":     string(cart),
		"shipping": string(shipping),
	}
	session, err := h.Stripe.CreateCheckoutSession(ctx, lines, metadata,
		h.ClientURL+"/order/success?session_id={CHECKOUT_SESSION_ID}",
		h.ClientURL+"/cart")
	if err != nil {
		l.Error("payment_session_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	l.Info("payment_session_success", "status", 200, "session_id", session.ID)
	return c.JSON(http.StatusOK, echo.Map{"id": session.ID, "url": session.URL})
}

// Webhook receives provider events. Signature verification gates every
// state change; an unverifiable payload is rejected with no effect.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_webhook")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read body"})
	}

	event, err := payment.ConstructEvent(body, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "signature verification failed"})
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return h.handleIntentSucceeded(c, l, event)
	case "checkout.session.completed":
		return h.handleSessionCompleted(c, l, event)
	default:
		l.Info("webhook_ignored", "type", event.Type)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
}

func (h *PaymentHandler) handleIntentSucceeded(c echo.Context, l *slog.Logger, event *payment.Event) error {
	ctx := c.Request().Context()

	var intent payment.PaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event object"})
	}

	order, already, err := h.Checkout.MarkPaidByIntent(ctx, intent.ID, models.PaymentResult{
		ID:           intent.ID,
		Status:       intent.Status,
		UpdateTime:   strconv.FormatInt(event.Created, 10),
		EmailAddress: intent.ReceiptEmail,
	})
	if err != nil {
		if errors.Is(err, checkout.ErrNotFound) {
			// intent not attached to any order; acknowledge so the
			// provider stops retrying
			l.Warn("webhook_orphan_intent", "intent_id", intent.ID)
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		l.Error("webhook_failed", "status", 500, "intent_id", intent.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if already {
		l.Info("webhook_duplicate", "order_id", order.ID, "intent_id", intent.ID)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_paid",
		"orderID": order.ID,
		"source":  "webhook",
	})

	l.Info("webhook_order_paid", "order_id", order.ID, "intent_id", intent.ID)
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *PaymentHandler) handleSessionCompleted(c echo.Context, l *slog.Logger, event *payment.Event) error {
	ctx := c.Request().Context()

	var session payment.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event object"})
	}

	userID, err := strconv.ParseUint(session.Metadata["userId"], 10, 64)
	if err != nil || userID == 0 {
		l.Warn("webhook_error", "status", 400, "reason", "missing_user_metadata")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user metadata"})
	}

	var items []checkout.Line
	if err := json.Unmarshal([]byte(session.Metadata["cart"]), &items); err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "malformed_cart_metadata")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed cart metadata"})
	}

	var addr models.ShippingAddress
	if raw := session.Metadata["shipping"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &addr); err != nil {
			l.Warn("webhook_error", "status", 400, "reason", "malformed_shipping_metadata")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed shipping metadata"})
		}
	} else {
		addr = models.ShippingAddress{
			Address:    session.CustomerDetails.Address.Line1,
			City:       session.CustomerDetails.Address.City,
			PostalCode: session.CustomerDetails.Address.PostalCode,
			Country:    session.CustomerDetails.Address.Country,
		}
	}

	order, err := h.Checkout.CreateFromSession(ctx, checkout.SessionOrderInput{
		UserID:          uint(userID),
		Items:           items,
		ShippingAddress: addr,
		PaymentResult: models.PaymentResult{
			ID:           session.PaymentIntent,
			Status:       session.PaymentStatus,
			UpdateTime:   strconv.FormatInt(event.Created, 10),
			EmailAddress: session.CustomerDetails.Email,
		},
		Currency: "usd",
		Paid:     session.PaymentStatus == "paid",
	})
	if err != nil {
		l.Error("webhook_failed", "status", 500, "session_id", session.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  order.UserID,
		"source":  "checkout_session",
	})

	l.Info("webhook_session_order", "order_id", order.ID, "session_id", session.ID)
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// toMinorUnits converts a display amount into provider minor units,
// rounding half-up the same way totals are rounded.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
