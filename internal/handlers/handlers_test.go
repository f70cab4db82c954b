package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/config"
	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/pricing"
	"github.com/kofiasare/storefront/internal/service/catalog"
	"github.com/kofiasare/storefront/internal/service/checkout"
	"github.com/kofiasare/storefront/internal/service/user"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Auth     *AuthHandler
	Orders   *OrderHandler
	Products *ProductHandler
	Users    *UserHandler
	Payments *PaymentHandler
	Secret   []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	secret := []byte("test-secret")
	catalogSvc := &catalog.Service{DB: db}
	checkoutSvc := &checkout.Service{DB: db, Pricing: pricing.Default()}

	return &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Auth:     &AuthHandler{DB: db, JWTSecret: secret},
		Orders:   &OrderHandler{Checkout: checkoutSvc},
		Products: &ProductHandler{Catalog: catalogSvc},
		Users:    &UserHandler{Users: &user.Service{DB: db}},
		Payments: &PaymentHandler{Checkout: checkoutSvc, Catalog: catalogSvc, WebhookSecret: "whsec_test"},
		Secret:   secret,
	}
}

func (env *testEnv) doJSONRequest(method, target string, payload interface{}) (*httptest.ResponseRecorder, *http.Request, echo.Context) {
	env.T.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(env.T, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, req, c
}

func (env *testEnv) seedProduct(name string, price float64, stock int) models.Product {
	env.T.Helper()
	cat := models.Category{Name: "cat-" + name}
	require.NoError(env.T, env.DB.Create(&cat).Error)
	p := models.Product{
		Name:         name,
		Brand:        "Acme",
		Description:  "test product",
		CategoryID:   cat.ID,
		Price:        price,
		CountInStock: stock,
		Quantity:     stock,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p
}

func (env *testEnv) seedUser(email string, admin bool) models.User {
	env.T.Helper()
	u := models.User{
		Username:     "user-" + email,
		Email:        email,
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(env.T, env.DB.Create(&u).Error)
	return u
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return he
}
