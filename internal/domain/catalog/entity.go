// internal/domain/catalog/entity.go
package catalog

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null;size:255;index" json:"title"`
	Brand       string         `gorm:"not null;size:255;index" json:"brand"`
	CategoryID  uint           `gorm:"not null;index" json:"category_id"`
	Description string         `gorm:"type:text" json:"description"`
	Keywords    string         `gorm:"size:500" json:"keywords"` // Comma-separated search aliases
	Price       int64          `gorm:"not null;index" json:"price"` // Price in cents
	MRP         int64          `json:"mrp"`                         // List price for strike-through
	Stock       int            `gorm:"default:0;index" json:"stock"`
	Thumb       string         `gorm:"size:500" json:"thumb"`
	RatingAvg   float64        `gorm:"default:0" json:"rating_avg"`
	RatingCount int            `gorm:"default:0" json:"rating_count"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	Popularity  int            `gorm:"default:0;index" json:"popularity"`
	Tags        string         `gorm:"size:500" json:"tags"` // Comma-separated tags
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category Category         `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant represents a purchasable sub-configuration of a product.
// When a product has variants, lines carrying a SKU consume variant stock;
// product-level stock only backs lines without a SKU.
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_product_variants_key" json:"product_id"`
	SKU       string    `gorm:"not null;size:100;uniqueIndex:idx_product_variants_key" json:"sku"`
	Color     string    `gorm:"size:50" json:"color"`
	Size      string    `gorm:"size:50" json:"size"`
	Stock     int       `gorm:"default:0" json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductImage represents product images
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	Alt       string    `gorm:"size:255" json:"alt"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	Image       string         `gorm:"size:500" json:"image"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }
func (ProductImage) TableName() string   { return "product_images" }
func (Category) TableName() string       { return "categories" }

// Business methods for Product

// FindVariant returns the variant with the given SKU, nil if absent
func (p *Product) FindVariant(sku string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// InStock reports whether any unit is purchasable across product and variant pools
func (p *Product) InStock() bool {
	total := p.Stock
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total > 0
}

// DiscountPercent returns the strike-through discount relative to MRP
func (p *Product) DiscountPercent() int {
	if p.MRP > 0 && p.Price < p.MRP {
		return int(((p.MRP - p.Price) * 100) / p.MRP)
	}
	return 0
}

// TagList splits the comma-separated tags field
func (p *Product) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
