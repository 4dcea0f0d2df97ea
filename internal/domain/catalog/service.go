// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/metrics"
	"gorm.io/gorm"
)

const homeCacheKey = "catalog:home"

// Service handles catalog read-side queries
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	Query      string `form:"q"`
	Brand      string `form:"brand"` // comma-separated, ORed
	Tags       string `form:"tags"`  // comma-separated, ORed
	CategoryID uint   `form:"categoryId"`
	MinPrice   int64  `form:"minPrice"`
	MaxPrice   int64  `form:"maxPrice"`
	SortBy     string `form:"sort,default=created_at"`
	SortOrder  string `form:"order,default=desc"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ProductListResponse represents product list response with pagination
type ProductListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// HomeSection is one category block on the home page
type HomeSection struct {
	Category Category  `json:"category"`
	Products []Product `json:"products"`
}

// HomeResponse is the aggregated home page payload
type HomeResponse struct {
	Sections    []HomeSection `json:"sections"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// GetProducts retrieves active products with filtering and pagination.
// Filters are ANDed together; multi-value filters are ORed within themselves.
func (s *Service) GetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	defer metrics.TrackDBOperation("product_list")(time.Now())

	var products []Product
	var total int64

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 1
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	query := s.db.Model(&Product{}).
		Where("is_active = ?", true).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Variants")

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}

	if req.Query != "" {
		search := "%" + strings.ToLower(req.Query) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(keywords) LIKE ? OR LOWER(tags) LIKE ?",
			search, search, search, search,
		)
	}

	if brands := splitMulti(req.Brand); len(brands) > 0 {
		or := s.db.Where("LOWER(brand) = ?", brands[0])
		for _, b := range brands[1:] {
			or = or.Or("LOWER(brand) = ?", b)
		}
		query = query.Where(or)
	}

	if tags := splitMulti(req.Tags); len(tags) > 0 {
		or := s.db.Where("LOWER(tags) LIKE ?", "%"+tags[0]+"%")
		for _, t := range tags[1:] {
			or = or.Or("LOWER(tags) LIKE ?", "%"+t+"%")
		}
		query = query.Where(or)
	}

	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}

	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to count products: %w", err))
	}

	// Apply sorting
	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	// Apply pagination
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve products: %w", err))
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &ProductListResponse{
		Products:   products,
		Pagination: pagination,
	}, nil
}

// GetProduct retrieves a single active product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	result := s.db.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Variants").
		Where("id = ? AND is_active = ?", id, true).
		First(&product)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve product: %w", result.Error))
	}

	return &product, nil
}

// GetHome aggregates the top products of every active category, ordered by
// popularity then recency. The payload is cached in Redis for a short TTL.
func (s *Service) GetHome(ctx context.Context) (*HomeResponse, error) {
	if cached := s.homeFromCache(ctx); cached != nil {
		return cached, nil
	}

	var categories []Category
	if err := s.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve categories: %w", err))
	}

	response := &HomeResponse{
		Sections:    make([]HomeSection, 0, len(categories)),
		GeneratedAt: time.Now().UTC(),
	}

	for _, cat := range categories {
		var products []Product
		err := s.db.
			Preload("Variants").
			Where("category_id = ? AND is_active = ?", cat.ID, true).
			Order("popularity DESC, created_at DESC").
			Limit(s.config.Catalog.HomeSectionSize).
			Find(&products).Error
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to retrieve products for category %d: %w", cat.ID, err))
		}

		if len(products) == 0 {
			continue
		}

		response.Sections = append(response.Sections, HomeSection{
			Category: cat,
			Products: products,
		})
	}

	s.homeToCache(ctx, response)

	return response, nil
}

// GetCategories retrieves active categories with their children
func (s *Service) GetCategories() ([]Category, error) {
	var categories []Category
	err := s.db.
		Preload("Children", "is_active = ?", true).
		Where("is_active = ? AND parent_id IS NULL", true).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve categories: %w", err))
	}
	return categories, nil
}

// Private helper methods

// homeFromCache returns the cached home payload, nil on any miss or failure
func (s *Service) homeFromCache(ctx context.Context) *HomeResponse {
	if s.redisClient == nil {
		return nil
	}

	data, err := s.redisClient.Get(ctx, homeCacheKey).Result()
	if err != nil {
		return nil
	}

	var response HomeResponse
	if err := json.Unmarshal([]byte(data), &response); err != nil {
		return nil
	}
	return &response
}

// homeToCache stores the home payload; cache failures are non-fatal
func (s *Service) homeToCache(ctx context.Context, response *HomeResponse) {
	if s.redisClient == nil {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	s.redisClient.Set(ctx, homeCacheKey, data, s.config.Catalog.HomeCacheTTL)
}

// buildOrderClause builds ORDER BY clause for sorting
func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"title":      true,
		"price":      true,
		"popularity": true,
		"rating_avg": true,
		"created_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

// splitMulti splits a comma-separated filter value, lowercased and trimmed
func splitMulti(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
