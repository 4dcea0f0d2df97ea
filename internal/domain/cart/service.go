// internal/domain/cart/service.go
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID  uint              `json:"productId" binding:"required"`
	Quantity   int               `json:"qty" binding:"required,min=1"`
	VariantSKU string            `json:"variantSku"`
	Meta       map[string]string `json:"meta"`
}

// RemoveFromCartRequest represents remove from cart request
type RemoveFromCartRequest struct {
	ProductID  uint   `json:"productId" binding:"required"`
	VariantSKU string `json:"variantSku"`
}

// CartItemView is a cart line populated with live product details for display
type CartItemView struct {
	CartItem
	Product *catalog.Product `json:"product,omitempty"`
}

// CartView represents a shopping cart with populated items and totals
type CartView struct {
	UserID    uint           `json:"user_id"`
	Items     []CartItemView `json:"items"`
	Totals    CartTotals     `json:"totals"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GetCart returns the user's cart, an empty in-memory one if none persisted
func (s *Service) GetCart(userID uint) (*CartView, error) {
	userCart, err := s.loadCart(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now().UTC()
			return &CartView{
				UserID:    userID,
				Items:     []CartItemView{},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve cart: %w", err))
	}

	return s.buildView(userCart)
}

// AddToCart adds an item to the cart, merging quantities by (product, variant) key
func (s *Service) AddToCart(userID uint, req *AddToCartRequest) (*CartView, error) {
	if req.Quantity <= 0 {
		return nil, apperror.InvalidInput("Quantity must be a positive integer")
	}

	// Validate product exists and is active
	var prod catalog.Product
	result := s.db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve product: %w", result.Error))
	}

	// Load or lazily create the user's cart
	userCart := Cart{UserID: userID}
	if err := s.db.Where(Cart{UserID: userID}).FirstOrCreate(&userCart).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to load cart: %w", err))
	}

	if err := s.mergeItem(&userCart, &prod, req); err != nil {
		return nil, err
	}

	return s.GetCart(userID)
}

// RemoveFromCart removes the line matching the (product, variant) key.
// Removing an absent line is a no-op, but a missing cart is an error.
func (s *Service) RemoveFromCart(userID, productID uint, variantSKU string) (*CartView, error) {
	var userCart Cart
	if err := s.db.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Cart not found")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve cart: %w", err))
	}

	err := s.db.
		Where("cart_id = ? AND product_id = ? AND variant_sku = ?", userCart.ID, productID, variantSKU).
		Delete(&CartItem{}).Error
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to remove cart item: %w", err))
	}

	return s.GetCart(userID)
}

// Private helper methods

// mergeItem applies the merge-by-key invariant: at most one line per
// (product, variant) key. The increment is a single keyed UPDATE so two
// concurrent adds cannot overwrite each other; a concurrent insert loses
// to the unique index and falls back to the increment.
func (s *Service) mergeItem(userCart *Cart, prod *catalog.Product, req *AddToCartRequest) error {
	increment := func() (int64, error) {
		result := s.db.Model(&CartItem{}).
			Where("cart_id = ? AND product_id = ? AND variant_sku = ?", userCart.ID, req.ProductID, req.VariantSKU).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", req.Quantity))
		return result.RowsAffected, result.Error
	}

	rows, err := increment()
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to update cart item: %w", err))
	}
	if rows > 0 {
		return nil
	}

	// No existing line: append one, snapshotting the product's current state
	newItem := CartItem{
		CartID:     userCart.ID,
		ProductID:  req.ProductID,
		VariantSKU: req.VariantSKU,
		Title:      prod.Title,
		Thumb:      prod.Thumb,
		Price:      prod.Price,
		Quantity:   req.Quantity,
		Meta:       encodeMeta(req.Meta),
	}
	createErr := s.db.Create(&newItem).Error
	if createErr == nil {
		return nil
	}

	// Lost the insert race against a concurrent add for the same key
	rows, err = increment()
	if err == nil && rows == 0 {
		// No row appeared either, so the insert failed on its own merits
		err = createErr
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to add cart item: %w", err))
	}
	return nil
}

func (s *Service) loadCart(userID uint) (*Cart, error) {
	var userCart Cart
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("user_id = ?", userID).
		First(&userCart).Error
	if err != nil {
		return nil, err
	}
	return &userCart, nil
}

// buildView populates lines with live product details and computes totals
func (s *Service) buildView(userCart *Cart) (*CartView, error) {
	items := make([]CartItemView, len(userCart.Items))
	for i, item := range userCart.Items {
		items[i] = CartItemView{CartItem: item}

		var prod catalog.Product
		err := s.db.Preload("Variants").Where("id = ?", item.ProductID).First(&prod).Error
		if err != nil {
			continue // Line survives even if the product has since vanished
		}
		items[i].Product = &prod
	}

	totals := CartTotals{ItemCount: len(userCart.Items)}
	for _, item := range userCart.Items {
		totals.TotalQuantity += item.Quantity
		totals.Subtotal += item.Price * int64(item.Quantity)
	}

	return &CartView{
		UserID:    userCart.UserID,
		Items:     items,
		Totals:    totals,
		CreatedAt: userCart.CreatedAt,
		UpdatedAt: userCart.UpdatedAt,
	}, nil
}

func encodeMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(data)
}
