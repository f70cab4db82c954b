// Package checkout turns a client-submitted cart into a durable,
// stock-consistent order and keeps payment and delivery state consistent
// across the direct confirmation path and the provider webhook path.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/pricing"
)

type Service struct {
	DB      *gorm.DB
	Pricing pricing.Config
}

type Line struct {
	ProductID uint `json:"product"`
	Qty       int  `json:"qty"`
}

type CreateOrderInput struct {
	Items           []Line
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	Currency        string
}

// SessionOrderInput carries what a completed checkout session provides.
// Only product ids and quantities are taken from provider metadata; prices
// are re-fetched from the catalog.
type SessionOrderInput struct {
	UserID          uint
	Items           []Line
	ShippingAddress models.ShippingAddress
	PaymentResult   models.PaymentResult
	Currency        string
	Paid            bool
}

// CreateOrder revalidates the cart against the catalog, snapshots prices,
// decrements stock and persists the order as one transaction. Validation
// order is fixed: empty cart, then missing products, then insufficient
// stock.
func (s *Service) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*models.Order, error) {
	if err := validateInput(in.Items, in.ShippingAddress); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}

	var order *models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		built, err := s.buildOrder(tx, userID, in.Items, in.ShippingAddress, in.PaymentMethod, in.Currency)
		if err != nil {
			return err
		}
		if err := tx.Create(built).Error; err != nil {
			return err
		}
		order = built
		return nil
	})
	if txErr != nil {
		return nil, classify(txErr)
	}
	return order, nil
}

// CreateFromSession is the webhook-driven order path. It converges on the
// same order shape and the same stock decrement as CreateOrder.
func (s *Service) CreateFromSession(ctx context.Context, in SessionOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: no order items", ErrValidation)
	}
	for _, it := range in.Items {
		if it.ProductID == 0 || it.Qty <= 0 {
			return nil, fmt.Errorf("%w: malformed line item", ErrValidation)
		}
	}

	var order *models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		built, err := s.buildOrder(tx, in.UserID, in.Items, in.ShippingAddress, "Stripe", in.Currency)
		if err != nil {
			return err
		}
		built.PaymentResult = in.PaymentResult
		if in.Paid {
			now := time.Now().UTC()
			built.IsPaid = true
			built.PaidAt = &now
			built.PaymentStatus = models.PaymentStatusPaid
		}
		if err := tx.Create(built).Error; err != nil {
			return err
		}
		order = built
		return nil
	})
	if txErr != nil {
		return nil, classify(txErr)
	}
	return order, nil
}

// buildOrder runs the shared checkout steps inside tx: resolve products,
// check stock, snapshot line items, decrement stock conditionally and price
// the order. The caller persists the returned order; any error aborts the
// transaction and restores the decrements.
func (s *Service) buildOrder(tx *gorm.DB, userID uint, lines []Line, addr models.ShippingAddress, method, currency string) (*models.Order, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, l := range lines {
		if _, ok := byID[l.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, l.ProductID)
		}
	}

	items := make([]models.OrderItem, 0, len(lines))
	priced := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		p := byID[l.ProductID]
		if p.CountInStock < l.Qty {
			return nil, &StockError{ProductID: p.ID, Name: p.Name, Requested: l.Qty, Available: p.CountInStock}
		}
		// Server-side price is authoritative; the client-submitted price
		// never reaches the total.
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Qty:       l.Qty,
		})
		priced = append(priced, pricing.LineItem{Price: p.Price, Qty: l.Qty})
	}

	for _, it := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND count_in_stock >= ?", it.ProductID, it.Qty).
			UpdateColumn("count_in_stock", gorm.Expr("count_in_stock - ?", it.Qty))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent order between the read above
			// and this conditional decrement.
			var p models.Product
			available := 0
			if err := tx.First(&p, it.ProductID).Error; err == nil {
				available = p.CountInStock
			}
			return nil, &StockError{ProductID: it.ProductID, Name: it.Name, Requested: it.Qty, Available: available}
		}
	}

	breakdown := pricing.Calc(priced, addr.Country, s.Pricing)

	if currency == "" {
		currency = "usd"
	}

	return &models.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   method,
		Currency:        currency,
		ItemsPrice:      breakdown.ItemsPrice,
		TaxPrice:        breakdown.TaxPrice,
		ShippingPrice:   breakdown.ShippingPrice,
		TotalPrice:      breakdown.TotalPrice,
		Subtotal:        breakdown.Subtotal,
		TaxRate:         breakdown.TaxRate,
		PaymentStatus:   models.PaymentStatusPending,
	}, nil
}

func validateInput(lines []Line, addr models.ShippingAddress) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: no order items", ErrValidation)
	}
	for _, l := range lines {
		if l.ProductID == 0 {
			return fmt.Errorf("%w: malformed product id", ErrValidation)
		}
		if l.Qty <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
	}
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		return fmt.Errorf("%w: shipping address, city, postal code and country are required", ErrValidation)
	}
	return nil
}

// classify maps storage failures to the internal kind while keeping the
// service's own error kinds intact.
func classify(err error) error {
	var stockErr *StockError
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.As(err, &stockErr):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

// MarkPaid is the direct confirmation path. Marking an already-paid order
// again is a no-op success; the stored paidAt never changes after the first
// transition.
func (s *Service) MarkPaid(ctx context.Context, orderID uint, result models.PaymentResult) (*models.Order, bool, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if order.IsPaid {
		return order, true, nil
	}

	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", orderID, false).
		Updates(map[string]interface{}{
			"is_paid":                      true,
			"paid_at":                      now,
			"payment_status":               models.PaymentStatusPaid,
			"payment_result_id":            result.ID,
			"payment_result_status":        result.Status,
			"payment_result_update_time":   result.UpdateTime,
			"payment_result_email_address": result.EmailAddress,
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInternal, res.Error)
	}
	order, err = s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	// Zero rows means another confirmation won the transition in between;
	// that is the same benign already-paid outcome.
	return order, res.RowsAffected == 0, nil
}

// MarkPaidByIntent applies a provider payment notification to the order
// holding that payment intent. Idempotent like MarkPaid.
func (s *Service) MarkPaidByIntent(ctx context.Context, intentID string, result models.PaymentResult) (*models.Order, bool, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Where("payment_result_id = ?", intentID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: order for payment %s", ErrNotFound, intentID)
		}
		return nil, false, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if result.ID == "" {
		result.ID = intentID
	}
	return s.MarkPaid(ctx, order.ID, result)
}

// MarkDelivered requires the order to be paid first; repeating it on a
// delivered order is a no-op success.
func (s *Service) MarkDelivered(ctx context.Context, orderID uint) (*models.Order, bool, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if !order.IsPaid {
		return nil, false, fmt.Errorf("%w: order must be paid before delivery", ErrNotPaid)
	}
	if order.IsDelivered {
		return order, true, nil
	}

	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_delivered = ?", orderID, false).
		Updates(map[string]interface{}{
			"is_delivered": true,
			"delivered_at": now,
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInternal, res.Error)
	}
	order, err = s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return order, res.RowsAffected == 0, nil
}

// AttachPaymentIntent records the provider intent id so the webhook can
// find the order later.
func (s *Service) AttachPaymentIntent(ctx context.Context, orderID uint, intentID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("payment_result_id", intentID)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrInternal, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &order, nil
}

func (s *Service) GetUserOrder(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &order, nil
}

func (s *Service) ListUserOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return orders, nil
}

func (s *Service) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return orders, nil
}

func (s *Service) CountOrders(ctx context.Context) (int64, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return total, nil
}

// TotalSales sums totalPrice over paid orders.
func (s *Service) TotalSales(ctx context.Context) (float64, int64, error) {
	var row struct {
		TotalSales  float64
		TotalOrders int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total_price), 0) AS total_sales, COUNT(*) AS total_orders").
		Where("is_paid = ?", true).
		Scan(&row).Error; err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return row.TotalSales, row.TotalOrders, nil
}

type DailySales struct {
	Date       string  `json:"_id"`
	TotalSales float64 `json:"totalSales"`
	Count      int64   `json:"count"`
}

// TotalSalesByDate buckets paid orders by UTC calendar day of paidAt.
func (s *Service) TotalSalesByDate(ctx context.Context) ([]DailySales, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Where("is_paid = ?", true).
		Order("paid_at ASC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	out := make([]DailySales, 0)
	index := make(map[string]int)
	for _, o := range orders {
		if o.PaidAt == nil {
			continue
		}
		day := o.PaidAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			index[day] = len(out)
			out = append(out, DailySales{Date: day})
			i = index[day]
		}
		out[i].TotalSales += o.TotalPrice
		out[i].Count++
	}
	return out, nil
}
