// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("running database auto-migrations")

	// Models in dependency order
	models := []interface{}{
		&user.User{},
		&user.UserAddress{},

		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&catalog.ProductVariant{},

		&cart.Cart{},
		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_popularity ON products(popularity DESC, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",

		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("database indexes created")
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("seeding initial data")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Println("initial data seeded")
	return nil
}

func (m *Migration) seedAdminUser() error {
	var count int64
	if err := m.db.Model(&user.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("Admin@12345"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := user.User{
		Name:     "Administrator",
		Email:    "admin@example.com",
		Password: string(hashed),
		Phone:    "9999999999",
		IsAdmin:  true,
	}
	return m.db.Create(&admin).Error
}

func (m *Migration) seedCatalog() error {
	var count int64
	if err := m.db.Model(&catalog.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []catalog.Category{
		{Name: "Apparel", Description: "Clothing and accessories", SortOrder: 1, IsActive: true},
		{Name: "Electronics", Description: "Devices and gadgets", SortOrder: 2, IsActive: true},
		{Name: "Home", Description: "Home and kitchen", SortOrder: 3, IsActive: true},
	}
	if err := m.db.Create(&categories).Error; err != nil {
		return err
	}

	products := []catalog.Product{
		{
			Title:      "Classic Cotton T-Shirt",
			Brand:      "Heritage",
			CategoryID: categories[0].ID,
			Keywords:   "tee,tshirt,cotton",
			Price:      49900,
			MRP:        69900,
			Stock:      0,
			IsActive:   true,
			Popularity: 80,
			Tags:       "casual,summer",
			Variants: []catalog.ProductVariant{
				{SKU: "red-M", Color: "Red", Size: "M", Stock: 10},
				{SKU: "red-L", Color: "Red", Size: "L", Stock: 5},
				{SKU: "blue-M", Color: "Blue", Size: "M", Stock: 8},
			},
		},
		{
			Title:      "Wireless Earbuds",
			Brand:      "Acousta",
			CategoryID: categories[1].ID,
			Keywords:   "earbuds,headphones,audio",
			Price:      299900,
			MRP:        349900,
			Stock:      25,
			IsActive:   true,
			Popularity: 95,
			Tags:       "audio,wireless",
		},
		{
			Title:      "Ceramic Coffee Mug",
			Brand:      "Hearth",
			CategoryID: categories[2].ID,
			Keywords:   "mug,coffee,cup",
			Price:      24900,
			MRP:        24900,
			Stock:      50,
			IsActive:   true,
			Popularity: 40,
			Tags:       "kitchen",
		},
	}
	return m.db.Create(&products).Error
}
