package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"not null"                 json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"   json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"unique;not null"          json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Image        string    `json:"image"`
	Brand        string    `gorm:"not null"                 json:"brand"`
	Quantity     int       `gorm:"not null"                 json:"quantity"`
	CategoryID   uint      `gorm:"index;not null"           json:"category"`
	Description  string    `gorm:"not null"                 json:"description"`
	Reviews      []Review  `gorm:"foreignKey:ProductID"     json:"reviews"`
	Rating       float64   `gorm:"not null;default:0"       json:"rating"`
	NumReviews   int       `gorm:"not null;default:0"       json:"numReviews"`
	Price        float64   `gorm:"not null;default:0;check:price >= 0"          json:"price"`
	CountInStock int       `gorm:"not null;default:0;check:count_in_stock >= 0" json:"countInStock"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                     json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"product"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user"`
	Name      string    `gorm:"not null"                                     json:"name"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"   json:"rating"`
	Comment   string    `gorm:"not null"                                     json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type ShippingAddress struct {
	Address    string `gorm:"not null" json:"address"`
	City       string `gorm:"not null" json:"city"`
	PostalCode string `gorm:"not null" json:"postalCode"`
	Country    string `gorm:"not null" json:"country"`
}

type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// OrderItem is a snapshot of the product at order time. Name, image and
// price are copied, not referenced: later catalog edits must not alter
// historical orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"-"`
	ProductID uint    `gorm:"not null"                 json:"product"`
	Name      string  `gorm:"not null"                 json:"name"`
	Image     string  `json:"image"`
	Price     float64 `gorm:"not null"                 json:"price"`
	Qty       int     `gorm:"not null;check:qty > 0"   json:"qty"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID          uint            `gorm:"index;not null"                    json:"user"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"                json:"orderItems"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	PaymentMethod   string          `gorm:"not null"                          json:"paymentMethod"`
	PaymentResult   PaymentResult   `gorm:"embedded;embeddedPrefix:payment_result_" json:"paymentResult"`
	Currency        string          `gorm:"not null;default:usd"              json:"currency"`
	ItemsPrice      float64         `gorm:"not null;default:0"                json:"itemsPrice"`
	TaxPrice        float64         `gorm:"not null;default:0"                json:"taxPrice"`
	ShippingPrice   float64         `gorm:"not null;default:0"                json:"shippingPrice"`
	TotalPrice      float64         `gorm:"not null;default:0"                json:"totalPrice"`
	Subtotal        float64         `gorm:"not null;default:0"                json:"subtotal"`
	TaxRate         float64         `gorm:"not null;default:0"                json:"taxRate"`
	PaymentStatus   string          `gorm:"not null;default:pending"          json:"payment_status"`
	IsPaid          bool            `gorm:"not null;default:false;index"      json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt"`
	IsDelivered     bool            `gorm:"not null;default:false;index"      json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt"`
	CreatedAt       time.Time       `gorm:"index"                             json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
