// internal/domain/user/service.go
package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/auth"
	"gorm.io/gorm"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// Service handles user account business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	jwtManager      *auth.JWTManager
	passwordManager *auth.PasswordManager
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		jwtManager:      auth.NewJWTManager(cfg),
		passwordManager: auth.NewPasswordManager(cfg),
	}
}

// RegisterRequest represents user registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// LoginRequest represents user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AddAddressRequest represents a new address book entry
type AddAddressRequest struct {
	Label     string `json:"label"`
	Line1     string `json:"line1" binding:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	Zip       string `json:"zip" binding:"required"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"isDefault"`
}

// TokenPair holds a freshly issued access and refresh token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// Register creates a new user account and issues tokens
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Name = strings.TrimSpace(req.Name)

	if req.Name == "" {
		return nil, apperror.InvalidInput("Name is required")
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, apperror.InvalidInput("Invalid email address")
	}
	if !phonePattern.MatchString(req.Phone) {
		return nil, apperror.InvalidInput("Phone must be a 10-digit number")
	}

	hashed, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.InvalidInput(err.Error())
	}

	// Duplicate check before insert gives the friendlier error; the unique
	// indexes still win any insert race
	var existing User
	err = s.db.Where("email = ? OR phone = ?", req.Email, req.Phone).First(&existing).Error
	if err == nil {
		field := "email"
		if existing.Email != req.Email {
			field = "phone"
		}
		return nil, apperror.Conflict(apperror.CodeDuplicate,
			fmt.Sprintf("An account with this %s already exists", field),
			&apperror.ConflictDetail{Field: field})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal(fmt.Errorf("failed to check existing user: %w", err))
	}

	newUser := &User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Phone:    req.Phone,
	}
	if err := s.db.Create(newUser).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	return s.issueTokens(newUser)
}

// Login authenticates by email and password. Wrong email and wrong password
// produce the same error so accounts cannot be enumerated.
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var account User
	err := s.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("Invalid email or password")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve user: %w", err))
	}

	if err := s.passwordManager.VerifyPassword(req.Password, account.Password); err != nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	now := time.Now().UTC()
	account.LastLoginAt = &now
	if err := s.db.Model(&account).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to stamp login time: %w", err))
	}

	return s.issueTokens(&account)
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *Service) Refresh(req *RefreshRequest) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid refresh token")
	}

	var account User
	if err := s.db.First(&account, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("Invalid refresh token")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve user: %w", err))
	}

	return s.issueTokens(&account)
}

// GetProfile returns the user with their address book
func (s *Service) GetProfile(userID uint) (*User, error) {
	var account User
	err := s.db.
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_default DESC, id ASC")
		}).
		First(&account, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal(fmt.Errorf("failed to retrieve user: %w", err))
	}
	return &account, nil
}

// AddAddress appends an entry to the user's address book
func (s *Service) AddAddress(userID uint, req *AddAddressRequest) (*User, error) {
	if strings.TrimSpace(req.Line1) == "" || strings.TrimSpace(req.City) == "" ||
		strings.TrimSpace(req.State) == "" || strings.TrimSpace(req.Zip) == "" {
		return nil, apperror.InvalidInput("Address requires line1, city, state and zip")
	}

	addr := UserAddress{
		UserID:    userID,
		Label:     req.Label,
		Line1:     req.Line1,
		Line2:     req.Line2,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
		Phone:     req.Phone,
		IsDefault: req.IsDefault,
	}
	if addr.Label == "" {
		addr.Label = "Home"
	}
	if addr.Country == "" {
		addr.Country = "IN"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := tx.Model(&UserAddress{}).Where("user_id = ?", userID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&addr).Error
	})
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to save address: %w", err))
	}

	return s.GetProfile(userID)
}

func (s *Service) issueTokens(account *User) (*AuthResponse, error) {
	access, err := s.jwtManager.GenerateAccessToken(account.ID, account.Email, account.IsAdmin)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to generate access token: %w", err))
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to generate refresh token: %w", err))
	}

	return &AuthResponse{
		User:   account,
		Tokens: TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}
