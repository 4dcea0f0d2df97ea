// internal/domain/order/service_test.go
package order

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&catalog.ProductVariant{},
		&cart.Cart{},
		&cart.CartItem{},
		&Order{},
		&OrderItem{},
	))

	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(db, &config.Config{}), db
}

func seedProduct(t *testing.T, db *gorm.DB, title string, price int64, stock int) *catalog.Product {
	t.Helper()

	cat := catalog.Category{Name: "Category for " + title, IsActive: true}
	require.NoError(t, db.Create(&cat).Error)

	prod := catalog.Product{
		Title:      title,
		Brand:      "TestBrand",
		CategoryID: cat.ID,
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&prod).Error)
	return &prod
}

func seedCartLine(t *testing.T, db *gorm.DB, userID uint, prod *catalog.Product, sku string, qty int) {
	t.Helper()

	userCart := cart.Cart{UserID: userID}
	require.NoError(t, db.Where(cart.Cart{UserID: userID}).FirstOrCreate(&userCart).Error)

	require.NoError(t, db.Create(&cart.CartItem{
		CartID:     userCart.ID,
		ProductID:  prod.ID,
		VariantSKU: sku,
		Title:      prod.Title,
		Thumb:      prod.Thumb,
		Price:      prod.Price,
		Quantity:   qty,
	}).Error)
}

func validAddress() Address {
	return Address{
		Line1: "12 MG Road",
		City:  "Bengaluru",
		State: "Karnataka",
		Zip:   "560001",
		Phone: "9876543210",
	}
}

func productStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var prod catalog.Product
	require.NoError(t, db.First(&prod, id).Error)
	return prod.Stock
}

func variantStock(t *testing.T, db *gorm.DB, productID uint, sku string) int {
	t.Helper()
	var variant catalog.ProductVariant
	require.NoError(t, db.Where("product_id = ? AND sku = ?", productID, sku).First(&variant).Error)
	return variant.Stock
}

func cartLineCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var userCart cart.Cart
	require.NoError(t, db.Where("user_id = ?", userID).First(&userCart).Error)
	var count int64
	require.NoError(t, db.Model(&cart.CartItem{}).Where("cart_id = ?", userCart.ID).Count(&count).Error)
	return count
}

func TestPlaceOrderTwoLineSuccess(t *testing.T) {
	svc, db := newTestService(t)

	prodA := seedProduct(t, db, "Product A", 49900, 5)
	prodB := seedProduct(t, db, "Product B", 29900, 0)
	require.NoError(t, db.Create(&catalog.ProductVariant{
		ProductID: prodB.ID, SKU: "red-M", Color: "Red", Size: "M", Stock: 1,
	}).Error)

	seedCartLine(t, db, 1, prodA, "", 2)
	seedCartLine(t, db, 1, prodB, "red-M", 1)

	placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	require.Len(t, placed.Items, 2)
	assert.Equal(t, StatusCreated, placed.Status)
	assert.Equal(t, uint(1), placed.UserID)

	wantSubtotal := int64(2*49900 + 1*29900)
	assert.Equal(t, wantSubtotal, placed.Amounts.Subtotal)
	assert.Equal(t, int64(0), placed.Amounts.Shipping)
	assert.Equal(t, wantSubtotal, placed.Amounts.Total)

	expectedNumber := fmt.Sprintf("ORD-%s-00001", time.Now().UTC().Format("20060102"))
	assert.Equal(t, expectedNumber, placed.OrderNumber)

	assert.Equal(t, 3, productStock(t, db, prodA.ID))
	assert.Equal(t, 0, variantStock(t, db, prodB.ID, "red-M"))
	assert.Equal(t, int64(0), cartLineCount(t, db, 1))
}

func TestOrderNumbersDeriveFromOrderID(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Numbered", 1000, 10)
	today := time.Now().UTC().Format("20060102")

	// Pre-existing order whose number is exactly what a count-of-today
	// sequencer would hand out next. A placement must neither collide with
	// it nor fail.
	existing := Order{
		ID:          7,
		OrderNumber: fmt.Sprintf("ORD-%s-%05d", today, 2),
		UserID:      99,
		Status:      StatusCreated,
		Address:     validAddress(),
	}
	require.NoError(t, db.Create(&existing).Error)

	seedCartLine(t, db, 1, prod, "", 1)
	placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ORD-%s-%05d", today, placed.ID), placed.OrderNumber)
	assert.NotEqual(t, existing.OrderNumber, placed.OrderNumber)

	// And two placements on the same day stay distinct
	seedCartLine(t, db, 1, prod, "", 1)
	second, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)
	assert.NotEqual(t, placed.OrderNumber, second.OrderNumber)
}

func TestPlaceOrderAmountsInvariant(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Widget", 1234, 100)
	seedCartLine(t, db, 1, prod, "", 7)

	placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	var sum int64
	for _, item := range placed.Items {
		assert.Equal(t, item.Price*int64(item.Quantity), item.TotalPrice)
		sum += item.TotalPrice
	}
	assert.Equal(t, sum, placed.Amounts.Subtotal)
	assert.Equal(t, placed.Amounts.Subtotal+placed.Amounts.Shipping, placed.Amounts.Total)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	svc, db := newTestService(t)

	// No cart at all
	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	assert.True(t, apperror.IsCode(err, apperror.CodeEmptyCart))

	// Cart exists but has no lines
	require.NoError(t, db.Create(&cart.Cart{UserID: 2}).Error)
	_, err = svc.PlaceOrder(2, &PlaceOrderRequest{ShippingAddress: validAddress()})
	assert.True(t, apperror.IsCode(err, apperror.CodeEmptyCart))
}

func TestPlaceOrderInvalidAddress(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Thing", 1000, 10)
	seedCartLine(t, db, 1, prod, "", 1)

	addr := validAddress()
	addr.City = ""
	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: addr})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidInput))

	// Nothing was touched
	assert.Equal(t, 10, productStock(t, db, prod.ID))
	assert.Equal(t, int64(1), cartLineCount(t, db, 1))
}

func TestPlaceOrderInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	svc, db := newTestService(t)

	prodA := seedProduct(t, db, "Plentiful", 2000, 50)
	prodB := seedProduct(t, db, "Scarce", 3000, 1)

	seedCartLine(t, db, 1, prodA, "", 2)
	seedCartLine(t, db, 1, prodB, "", 5)

	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	appErr := apperror.From(err)
	require.NotNil(t, appErr.Detail)
	assert.Equal(t, prodB.ID, appErr.Detail.ProductID)
	require.NotNil(t, appErr.Detail.Available)
	assert.Equal(t, 1, *appErr.Detail.Available)

	// First failure aborts before any write
	assert.Equal(t, 50, productStock(t, db, prodA.ID))
	assert.Equal(t, 1, productStock(t, db, prodB.ID))
	assert.Equal(t, int64(2), cartLineCount(t, db, 1))

	var orderCount int64
	require.NoError(t, db.Model(&Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
}

func TestPlaceOrderVariantNotFound(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Shirt", 4000, 10)
	require.NoError(t, db.Create(&catalog.ProductVariant{
		ProductID: prod.ID, SKU: "blue-S", Stock: 3,
	}).Error)

	seedCartLine(t, db, 1, prod, "blue-XL", 1)

	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	assert.True(t, apperror.IsCode(err, apperror.CodeVariantNotFound))

	appErr := apperror.From(err)
	require.NotNil(t, appErr.Detail)
	assert.Equal(t, "blue-XL", appErr.Detail.VariantSKU)
}

func TestPlaceOrderProductUnavailable(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Retired", 4000, 10)
	seedCartLine(t, db, 1, prod, "", 1)

	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", prod.ID).
		UpdateColumn("is_active", false).Error)

	_, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	assert.True(t, apperror.IsCode(err, apperror.CodeProductUnavailable))
}

func TestPlaceOrderSnapshotPriceSurvivesCatalogChange(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Drifter", 10000, 10)
	seedCartLine(t, db, 1, prod, "", 2)

	// Price changes after the line was added
	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", prod.ID).
		UpdateColumn("price", 99999).Error)

	placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	require.Len(t, placed.Items, 1)
	assert.Equal(t, int64(10000), placed.Items[0].Price)
	assert.Equal(t, int64(20000), placed.Amounts.Subtotal)
}

func TestPlaceOrderConcurrentPlacements(t *testing.T) {
	svc, db := newTestService(t)

	const users = 10
	const stock = 3

	prod := seedProduct(t, db, "Limited", 5000, stock)
	for i := 1; i <= users; i++ {
		seedCartLine(t, db, uint(i), prod, "", 1)
	}

	errs := make(chan error, users)
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := svc.PlaceOrder(userID, &PlaceOrderRequest{ShippingAddress: validAddress()})
			errs <- err
		}(uint(i))
	}
	wg.Wait()
	close(errs)

	successes, rejections := 0, 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		rejections++
		assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock),
			"every rejection must be an insufficient stock conflict, got %v", err)
	}

	assert.Equal(t, stock, successes, "exactly one order per unit of stock")
	assert.Equal(t, users-stock, rejections)
	assert.Equal(t, 0, productStock(t, db, prod.ID), "stock must end at zero, never negative")

	var orderCount int64
	require.NoError(t, db.Model(&Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(stock), orderCount)
}

func TestGetOrderOwnership(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Gift", 2500, 5)
	seedCartLine(t, db, 1, prod, "", 1)

	placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	// Owner reads it
	got, err := svc.GetOrder(1, false, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderNumber, got.OrderNumber)
	require.Len(t, got.Items, 1)

	// A stranger gets NotFound, same as a missing order
	_, err = svc.GetOrder(2, false, placed.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// Admin reads anything
	_, err = svc.GetOrder(2, true, placed.ID)
	require.NoError(t, err)

	_, err = svc.GetOrder(1, false, 9999)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestGetUserOrdersNewestFirst(t *testing.T) {
	svc, db := newTestService(t)

	prod := seedProduct(t, db, "Repeat", 1000, 100)

	var numbers []string
	for i := 0; i < 3; i++ {
		seedCartLine(t, db, 1, prod, "", 1)
		placed, err := svc.PlaceOrder(1, &PlaceOrderRequest{ShippingAddress: validAddress()})
		require.NoError(t, err)
		numbers = append(numbers, placed.OrderNumber)
	}

	resp, err := svc.GetUserOrders(1, &OrderListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, numbers[2], resp.Orders[0].OrderNumber)
	assert.Equal(t, numbers[1], resp.Orders[1].OrderNumber)

	// Another user sees nothing
	other, err := svc.GetUserOrders(2, &OrderListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, other.Orders)
}
