// Package http wires handlers onto the echo router. Route groups mirror
// the storefront client: public browsing, authenticated checkout, and the
// admin console.
package http

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/handlers"
	"github.com/kofiasare/storefront/internal/metrics"
	"github.com/kofiasare/storefront/internal/middleware/auth"
	"github.com/kofiasare/storefront/internal/payment"
	"github.com/kofiasare/storefront/internal/service/catalog"
	"github.com/kofiasare/storefront/internal/service/checkout"
	"github.com/kofiasare/storefront/internal/service/user"
)

type Deps struct {
	DB            *gorm.DB
	JWTSecret     []byte
	Producer      *events.Producer
	ES            *elasticsearch.Client
	Stripe        *payment.Client
	WebhookSecret string
	ClientURL     string
	Catalog       *catalog.Service
	Checkout      *checkout.Service
	Users         *user.Service
}

func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = errorHandler
	gate := &auth.Gate{JWTSecret: d.JWTSecret}

	authH := &handlers.AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Producer: d.Producer}
	productH := &handlers.ProductHandler{Catalog: d.Catalog, ES: d.ES, Producer: d.Producer}
	categoryH := &handlers.CategoryHandler{Catalog: d.Catalog}
	orderH := &handlers.OrderHandler{Checkout: d.Checkout, Producer: d.Producer}
	paymentH := &handlers.PaymentHandler{
		Checkout:      d.Checkout,
		Catalog:       d.Catalog,
		Stripe:        d.Stripe,
		WebhookSecret: d.WebhookSecret,
		ClientURL:     d.ClientURL,
		Producer:      d.Producer,
	}
	userH := &handlers.UserHandler{Users: d.Users}
	searchH := &handlers.SearchHandler{ES: d.ES}

	e.GET("/health/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")

	users := api.Group("/users")
	users.POST("", authH.Register)
	users.POST("/auth", authH.Login)
	users.POST("/logout", authH.Logout)
	users.GET("/profile", userH.Profile, gate.RequireLogin)
	users.PUT("/profile", userH.UpdateProfile, gate.RequireLogin)
	users.GET("", userH.List, gate.AdminOnly)
	users.GET("/:id", userH.Get, gate.AdminOnly)
	users.PUT("/:id", userH.Update, gate.AdminOnly)
	users.DELETE("/:id", userH.Delete, gate.AdminOnly)

	products := api.Group("/products")
	products.GET("/fetch-products/search", productH.List)
	products.GET("/get-all-products", productH.All)
	products.GET("/fetch-new-products", productH.Newest)
	products.GET("/get-top-products", productH.Top)
	products.GET("/get-product/:id", productH.Get)
	products.POST("/get-filtered-products", productH.Filter)
	products.POST("/add-product", productH.Create, gate.AdminOnly)
	products.PUT("/update-product/:id", productH.Update, gate.AdminOnly)
	products.DELETE("/delete-product/:id", productH.Delete, gate.AdminOnly)
	products.POST("/add-review/:id/reviews", productH.AddReview, gate.RequireLogin)

	api.GET("/search", searchH.Search)

	categories := api.Group("/category")
	categories.GET("/categories", categoryH.List)
	categories.GET("/:categoryId", categoryH.Get)
	categories.POST("", categoryH.Create, gate.AdminOnly)
	categories.PUT("/:categoryId", categoryH.Update, gate.AdminOnly)
	categories.DELETE("/:categoryId", categoryH.Delete, gate.AdminOnly)

	orders := api.Group("/orders")
	orders.POST("/create-order", orderH.Create, gate.RequireLogin)
	orders.GET("/get-user-orders", orderH.Mine, gate.RequireLogin)
	orders.GET("/fetch-all-orders", orderH.All, gate.AdminOnly)
	orders.GET("/total-orders", orderH.TotalOrders, gate.AdminOnly)
	orders.GET("/total-sales", orderH.TotalSales, gate.AdminOnly)
	orders.GET("/total-sales-by-date", orderH.TotalSalesByDate, gate.AdminOnly)
	orders.GET("/get-order/:id", orderH.Get, gate.RequireLogin)
	orders.PUT("/get-order/:id/pay", orderH.Pay, gate.RequireLogin)
	orders.PUT("/get-order/:id/deliver", orderH.Deliver, gate.AdminOnly)

	stripe := api.Group("/config/stripe")
	stripe.POST("/create-payment-intent", paymentH.CreatePaymentIntent, gate.RequireLogin)
	stripe.POST("/create-checkout-session", paymentH.CreateCheckoutSession, gate.RequireLogin)
	stripe.POST("/webhook", paymentH.Webhook)
}

// errorHandler renders every error as {"error": string}, the shape the
// storefront client expects.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": message})
}
