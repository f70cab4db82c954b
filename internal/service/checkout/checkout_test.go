package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/config"
	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/pricing"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second connection to :memory: would be a second empty database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

func newService(t *testing.T) *Service {
	return &Service{DB: newTestDB(t), Pricing: pricing.Default()}
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()
	cat := models.Category{Name: "test-" + name}
	require.NoError(t, db.Create(&cat).Error)
	p := models.Product{
		Name:         name,
		Brand:        "Acme",
		Description:  "test product",
		CategoryID:   cat.ID,
		Price:        price,
		CountInStock: stock,
		Quantity:     stock,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func usAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Address:    "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func TestCreateOrder(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 2}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)

	require.Equal(t, uint(1), order.UserID)
	require.Len(t, order.Items, 1)
	require.Equal(t, p.ID, order.Items[0].ProductID)
	require.Equal(t, "widget", order.Items[0].Name)
	require.Equal(t, 25.0, order.Items[0].Price)
	require.Equal(t, 2, order.Items[0].Qty)

	// US: no tax, under the free-shipping threshold
	require.Equal(t, 50.0, order.ItemsPrice)
	require.Equal(t, 0.0, order.TaxPrice)
	require.Equal(t, 10.0, order.ShippingPrice)
	require.Equal(t, 60.0, order.TotalPrice)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.False(t, order.IsPaid)

	var reloaded models.Product
	require.NoError(t, s.DB.First(&reloaded, p.ID).Error)
	require.Equal(t, 8, reloaded.CountInStock)
}

func TestCreateOrderFreeShippingAndTax(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 60, 10)

	addr := usAddress()
	addr.Country = "GH"
	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 2}},
		ShippingAddress: addr,
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)

	require.Equal(t, 120.0, order.ItemsPrice)
	require.Equal(t, 0.0, order.ShippingPrice)
	require.Equal(t, 15.0, order.TaxPrice)
	require.Equal(t, 135.0, order.TotalPrice)
	require.Equal(t, 0.125, order.TaxRate)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	s := newService(t)

	_, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderMissingProduct(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	_, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}, {ProductID: 9999, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.ErrorIs(t, err, ErrNotFound)

	// nothing was decremented
	var reloaded models.Product
	require.NoError(t, s.DB.First(&reloaded, p.ID).Error)
	require.Equal(t, 10, reloaded.CountInStock)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 3)

	_, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 5}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, p.ID, stockErr.ProductID)
	require.Equal(t, 5, stockErr.Requested)
	require.Equal(t, 3, stockErr.Available)
}

func TestCreateOrderOversubscribedStock(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 3)

	in := CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 2}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	}
	_, err := s.CreateOrder(context.Background(), 1, in)
	require.NoError(t, err)

	// only 1 left, second order for 2 must lose
	_, err = s.CreateOrder(context.Background(), 2, in)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var reloaded models.Product
	require.NoError(t, s.DB.First(&reloaded, p.ID).Error)
	require.Equal(t, 1, reloaded.CountInStock)
}

func TestCreateOrderRollbackRestoresStock(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	// force the order insert to fail after the decrement ran
	require.NoError(t, s.DB.Migrator().DropTable(&models.Order{}))

	_, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 2}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.ErrorIs(t, err, ErrInternal)

	var reloaded models.Product
	require.NoError(t, s.DB.First(&reloaded, p.ID).Error)
	require.Equal(t, 10, reloaded.CountInStock)
}

func TestOrderSnapshotSurvivesPriceChange(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)

	require.NoError(t, s.DB.Model(&models.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{"price": 99.0, "name": "renamed"}).Error)

	stored, err := s.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, "widget", stored.Items[0].Name)
	require.Equal(t, 25.0, stored.Items[0].Price)
	require.Equal(t, order.TotalPrice, stored.TotalPrice)
}

func TestMarkPaidIdempotent(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)

	result := models.PaymentResult{ID: "pi_123", Status: "succeeded", EmailAddress: "a@b.com"}
	paid, already, err := s.MarkPaid(context.Background(), order.ID, result)
	require.NoError(t, err)
	require.False(t, already)
	require.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	require.Equal(t, "pi_123", paid.PaymentResult.ID)

	firstPaidAt := *paid.PaidAt

	again, already, err := s.MarkPaid(context.Background(), order.ID, models.PaymentResult{ID: "pi_other"})
	require.NoError(t, err)
	require.True(t, already)
	require.True(t, again.IsPaid)
	require.Equal(t, firstPaidAt, *again.PaidAt)
	require.Equal(t, "pi_123", again.PaymentResult.ID)
}

func TestMarkPaidByIntent(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)
	require.NoError(t, s.AttachPaymentIntent(context.Background(), order.ID, "pi_abc"))

	paid, already, err := s.MarkPaidByIntent(context.Background(), "pi_abc", models.PaymentResult{Status: "succeeded"})
	require.NoError(t, err)
	require.False(t, already)
	require.Equal(t, order.ID, paid.ID)
	require.True(t, paid.IsPaid)

	_, _, err = s.MarkPaidByIntent(context.Background(), "pi_unknown", models.PaymentResult{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkDelivered(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateOrder(context.Background(), 1, CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	})
	require.NoError(t, err)

	_, _, err = s.MarkDelivered(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrNotPaid)

	_, _, err = s.MarkPaid(context.Background(), order.ID, models.PaymentResult{ID: "pi_1"})
	require.NoError(t, err)

	delivered, already, err := s.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	require.False(t, already)
	require.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)

	firstDeliveredAt := *delivered.DeliveredAt
	again, already, err := s.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, already)
	require.Equal(t, firstDeliveredAt, *again.DeliveredAt)
}

func TestCreateFromSession(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	order, err := s.CreateFromSession(context.Background(), SessionOrderInput{
		UserID:          7,
		Items:           []Line{{ProductID: p.ID, Qty: 3}},
		ShippingAddress: usAddress(),
		PaymentResult:   models.PaymentResult{ID: "pi_sess", Status: "paid"},
		Paid:            true,
	})
	require.NoError(t, err)

	require.Equal(t, uint(7), order.UserID)
	require.True(t, order.IsPaid)
	require.NotNil(t, order.PaidAt)
	require.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(t, "pi_sess", order.PaymentResult.ID)
	require.Equal(t, "Stripe", order.PaymentMethod)

	var reloaded models.Product
	require.NoError(t, s.DB.First(&reloaded, p.ID).Error)
	require.Equal(t, 7, reloaded.CountInStock)
}

func TestSalesAggregates(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 100)

	in := CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 2}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	}
	first, err := s.CreateOrder(context.Background(), 1, in)
	require.NoError(t, err)
	second, err := s.CreateOrder(context.Background(), 2, in)
	require.NoError(t, err)
	_, err = s.CreateOrder(context.Background(), 3, in)
	require.NoError(t, err)

	_, _, err = s.MarkPaid(context.Background(), first.ID, models.PaymentResult{ID: "pi_1"})
	require.NoError(t, err)
	_, _, err = s.MarkPaid(context.Background(), second.ID, models.PaymentResult{ID: "pi_2"})
	require.NoError(t, err)

	count, err := s.CountOrders(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	total, paidCount, err := s.TotalSales(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, paidCount)
	require.Equal(t, 2*first.TotalPrice, total)

	buckets, err := s.TotalSalesByDate(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, 2*first.TotalPrice, buckets[0].TotalSales)
	require.EqualValues(t, 2, buckets[0].Count)
}

func TestUserOrderScoping(t *testing.T) {
	s := newService(t)
	p := seedProduct(t, s.DB, "widget", 25, 10)

	in := CreateOrderInput{
		Items:           []Line{{ProductID: p.ID, Qty: 1}},
		ShippingAddress: usAddress(),
		PaymentMethod:   "Stripe",
	}
	mine, err := s.CreateOrder(context.Background(), 1, in)
	require.NoError(t, err)
	_, err = s.CreateOrder(context.Background(), 2, in)
	require.NoError(t, err)

	_, err = s.GetUserOrder(context.Background(), mine.ID, 2)
	require.ErrorIs(t, err, ErrNotFound)

	orders, err := s.ListUserOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, mine.ID, orders[0].ID)

	all, err := s.ListAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}
