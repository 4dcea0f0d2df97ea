// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents order lifecycle status
type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// IsValid reports whether the status is a known lifecycle state
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Amounts holds the monetary breakdown of an order, in cents
type Amounts struct {
	Subtotal int64 `gorm:"not null" json:"subtotal"`
	Shipping int64 `gorm:"not null;default:0" json:"shipping"`
	Total    int64 `gorm:"not null" json:"total"`
}

// Address is a shipping destination, embedded into the order at placement
// time so later address-book edits never rewrite history.
type Address struct {
	Label   string `gorm:"size:50" json:"label"`
	Line1   string `gorm:"size:255" json:"line1"`
	Line2   string `gorm:"size:255" json:"line2,omitempty"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	Zip     string `gorm:"size:20" json:"zip"`
	Country string `gorm:"size:2;default:'IN'" json:"country"`
	Phone   string `gorm:"size:20" json:"phone"`
}

// Order represents a placed order
type Order struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OrderNumber string         `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus    `gorm:"not null;size:20;default:'created';index" json:"status"`
	Amounts     Amounts        `gorm:"embedded" json:"amounts"`
	Address     Address        `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Notes       string         `gorm:"size:500" json:"notes,omitempty"`
	Items       []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// OrderItem is one purchased line, snapshotted from the cart at placement
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	VariantSKU string    `gorm:"size:100;not null;default:''" json:"variant_sku,omitempty"`
	Title      string    `gorm:"not null;size:255" json:"title"`
	Thumb      string    `gorm:"size:500" json:"thumb"`
	Price      int64     `gorm:"not null" json:"price"` // Unit price in cents at placement
	Quantity   int       `gorm:"not null" json:"quantity"`
	TotalPrice int64     `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }
