// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// PlaceOrderRequest represents order placement request
type PlaceOrderRequest struct {
	ShippingAddress Address `json:"shippingAddress" binding:"required"`
	Notes           string  `json:"notes"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// OrderListResponse represents order list response with pagination
type OrderListResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination catalog.Pagination `json:"pagination"`
}

// PlaceOrder converts the user's cart into an order.
//
// It runs in two passes. The validation pass reads every product once and
// checks the lines in cart order, so the caller gets the first failure
// without any write. The commit pass runs in a single transaction and
// re-checks stock with conditional decrements, so two placements racing
// past the same validation cannot both take the last unit.
func (s *Service) PlaceOrder(userID uint, req *PlaceOrderRequest) (*Order, error) {
	if err := validateAddress(&req.ShippingAddress); err != nil {
		metrics.RecordOrderRejected("invalid_address")
		return nil, err
	}
	if req.ShippingAddress.Country == "" {
		req.ShippingAddress.Country = "IN"
	}
	if req.ShippingAddress.Label == "" {
		req.ShippingAddress.Label = "Home"
	}

	userCart, err := s.loadCart(userID)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeEmptyCart) {
			metrics.RecordOrderRejected(apperror.CodeEmptyCart)
		}
		return nil, err
	}
	if len(userCart.Items) == 0 {
		metrics.RecordOrderRejected(apperror.CodeEmptyCart)
		return nil, apperror.Conflict(apperror.CodeEmptyCart, "Cart is empty", nil)
	}

	products, err := s.fetchProducts(userCart.Items)
	if err != nil {
		return nil, err
	}

	// Validation pass: first failing line wins, nothing is written
	for _, item := range userCart.Items {
		if err := validateLine(&item, products[item.ProductID]); err != nil {
			metrics.RecordOrderRejected(apperror.From(err).Code)
			return nil, err
		}
	}

	var placed *Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range userCart.Items {
			if err := s.reserveStock(tx, &item); err != nil {
				return err
			}
		}

		newOrder := &Order{
			OrderNumber: provisionalOrderNumber(),
			UserID:      userID,
			Status:      StatusCreated,
			Address:     req.ShippingAddress,
			Notes:       req.Notes,
			Items:       make([]OrderItem, 0, len(userCart.Items)),
		}

		for _, item := range userCart.Items {
			lineTotal := item.Price * int64(item.Quantity)
			newOrder.Items = append(newOrder.Items, OrderItem{
				ProductID:  item.ProductID,
				VariantSKU: item.VariantSKU,
				Title:      item.Title,
				Thumb:      item.Thumb,
				Price:      item.Price,
				Quantity:   item.Quantity,
				TotalPrice: lineTotal,
			})
			newOrder.Amounts.Subtotal += lineTotal
		}
		newOrder.Amounts.Shipping = 0
		newOrder.Amounts.Total = newOrder.Amounts.Subtotal + newOrder.Amounts.Shipping

		if err := tx.Create(newOrder).Error; err != nil {
			return apperror.Internal(fmt.Errorf("failed to create order: %w", err))
		}

		// Stamp the final number from the assigned ID. Deriving it from the
		// primary key keeps numbers unique without coordinating a per-day
		// counter across concurrent placements.
		newOrder.OrderNumber = generateOrderNumber(newOrder.ID)
		if err := tx.Model(newOrder).UpdateColumn("order_number", newOrder.OrderNumber).Error; err != nil {
			return apperror.Internal(fmt.Errorf("failed to stamp order number: %w", err))
		}

		if err := tx.Where("cart_id = ?", userCart.ID).Delete(&cart.CartItem{}).Error; err != nil {
			return apperror.Internal(fmt.Errorf("failed to clear cart: %w", err))
		}

		placed = newOrder
		return nil
	})
	if err != nil {
		appErr := apperror.From(err)
		if appErr.Kind == apperror.KindConflict {
			metrics.RecordOrderRejected(appErr.Code)
		}
		return nil, appErr
	}

	metrics.RecordOrderPlaced()
	return placed, nil
}

// GetOrder retrieves an order readable by the caller: the owner or an admin
func (s *Service) GetOrder(userID uint, isAdmin bool, orderID uint) (*Order, error) {
	var ord Order
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("id = ?", orderID).
		First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Order not found")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve order: %w", err))
	}

	// Non-owners see the same NotFound as a missing order
	if ord.UserID != userID && !isAdmin {
		return nil, apperror.NotFound("Order not found")
	}

	return &ord, nil
}

// GetUserOrders retrieves the user's orders, newest first
func (s *Service) GetUserOrders(userID uint, req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 1
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	var orders []Order
	var total int64

	query := s.db.Model(&Order{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to count orders: %w", err))
	}

	offset := (req.Page - 1) * req.Limit
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve orders: %w", err))
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: catalog.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// Private helper methods

func validateAddress(addr *Address) error {
	missing := []string{}
	if strings.TrimSpace(addr.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(addr.State) == "" {
		missing = append(missing, "state")
	}
	if strings.TrimSpace(addr.Zip) == "" {
		missing = append(missing, "zip")
	}
	if len(missing) > 0 {
		return apperror.InvalidInput("Shipping address is missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) loadCart(userID uint) (*cart.Cart, error) {
	var userCart cart.Cart
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("user_id = ?", userID).
		First(&userCart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Conflict(apperror.CodeEmptyCart, "Cart is empty", nil)
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve cart: %w", err))
	}
	return &userCart, nil
}

// fetchProducts loads each distinct product referenced by the cart exactly
// once, variants preloaded. Inactive and missing products are simply absent
// from the map; validateLine turns that into a conflict.
func (s *Service) fetchProducts(items []cart.CartItem) (map[uint]*catalog.Product, error) {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	var products []catalog.Product
	err := s.db.
		Preload("Variants").
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve products: %w", err))
	}

	byID := make(map[uint]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

func validateLine(item *cart.CartItem, prod *catalog.Product) error {
	if prod == nil {
		return apperror.Conflict(apperror.CodeProductUnavailable, "Product is no longer available",
			&apperror.ConflictDetail{ProductID: item.ProductID})
	}

	available := prod.Stock
	if item.VariantSKU != "" {
		variant := prod.FindVariant(item.VariantSKU)
		if variant == nil {
			return apperror.Conflict(apperror.CodeVariantNotFound, "Product variant not found",
				&apperror.ConflictDetail{ProductID: item.ProductID, VariantSKU: item.VariantSKU})
		}
		available = variant.Stock
	}

	if available < item.Quantity {
		avail := available
		return apperror.Conflict(apperror.CodeInsufficientStock, "Insufficient stock",
			&apperror.ConflictDetail{ProductID: item.ProductID, VariantSKU: item.VariantSKU, Available: &avail})
	}
	return nil
}

// reserveStock decrements the line's stock pool only if enough remains.
// A zero-rows-affected update means another transaction got there first;
// the failure is re-read and classified, and the caller rolls back.
func (s *Service) reserveStock(tx *gorm.DB, item *cart.CartItem) error {
	defer metrics.TrackDBOperation("reserve_stock")(time.Now())

	var result *gorm.DB
	if item.VariantSKU != "" {
		result = tx.Model(&catalog.ProductVariant{}).
			Where("product_id = ? AND sku = ? AND stock >= ?", item.ProductID, item.VariantSKU, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
	} else {
		result = tx.Model(&catalog.Product{}).
			Where("id = ? AND is_active = ? AND stock >= ?", item.ProductID, true, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
	}
	if result.Error != nil {
		return apperror.Internal(fmt.Errorf("failed to reserve stock: %w", result.Error))
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return s.classifyReserveFailure(tx, item)
}

// classifyReserveFailure re-reads the failed line's stock pool to decide
// which conflict to report
func (s *Service) classifyReserveFailure(tx *gorm.DB, item *cart.CartItem) error {
	if item.VariantSKU != "" {
		var variant catalog.ProductVariant
		err := tx.Where("product_id = ? AND sku = ?", item.ProductID, item.VariantSKU).First(&variant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Conflict(apperror.CodeVariantNotFound, "Product variant not found",
					&apperror.ConflictDetail{ProductID: item.ProductID, VariantSKU: item.VariantSKU})
			}
			return apperror.Internal(fmt.Errorf("failed to re-check variant: %w", err))
		}
		avail := variant.Stock
		return apperror.Conflict(apperror.CodeInsufficientStock, "Insufficient stock",
			&apperror.ConflictDetail{ProductID: item.ProductID, VariantSKU: item.VariantSKU, Available: &avail})
	}

	var prod catalog.Product
	err := tx.Where("id = ? AND is_active = ?", item.ProductID, true).First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Conflict(apperror.CodeProductUnavailable, "Product is no longer available",
				&apperror.ConflictDetail{ProductID: item.ProductID})
		}
		return apperror.Internal(fmt.Errorf("failed to re-check product: %w", err))
	}
	avail := prod.Stock
	return apperror.Conflict(apperror.CodeInsufficientStock, "Insufficient stock",
		&apperror.ConflictDetail{ProductID: item.ProductID, Available: &avail})
}

// generateOrderNumber produces ORD-YYYYMMDD-NNNNN from the order's ID
func generateOrderNumber(orderID uint) string {
	return fmt.Sprintf("ORD-%s-%05d", time.Now().UTC().Format("20060102"), orderID)
}

// provisionalOrderNumber satisfies the unique not-null column until the
// insert has assigned the ID the real number is derived from
func provisionalOrderNumber() string {
	return "PND-" + uuid.New().String()
}
