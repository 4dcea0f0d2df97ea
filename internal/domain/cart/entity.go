// internal/domain/cart/entity.go
package cart

import (
	"time"

	"gorm.io/gorm"
)

// Cart represents a user's shopping cart. Exactly one exists per user,
// enforced by the unique index on the owning user.
type Cart struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem     `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CartItem is one line in a cart. Lines are keyed by (product, variant SKU);
// the composite unique index makes merge-by-key a single conditional update.
// Title, thumb and price are snapshots taken when the line was added and are
// deliberately not re-synced to the live catalog.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CartID     uint      `gorm:"not null;index;uniqueIndex:idx_cart_items_key" json:"cart_id"`
	ProductID  uint      `gorm:"not null;index;uniqueIndex:idx_cart_items_key" json:"product_id"`
	VariantSKU string    `gorm:"size:100;not null;default:'';uniqueIndex:idx_cart_items_key" json:"variant_sku"`
	Title      string    `gorm:"not null;size:255" json:"title"`
	Thumb      string    `gorm:"size:500" json:"thumb"`
	Price      int64     `gorm:"not null" json:"price"` // Price in cents at time of adding
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	Meta       string    `gorm:"size:500" json:"meta,omitempty"` // JSON-encoded display attributes, e.g. {"color":"Red"}
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Subtotal sums price x quantity across all lines
func (c *Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique lines
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	Subtotal      int64 `json:"subtotal"`       // Sum of snapshot price x quantity
}
