// internal/domain/user/entity.go
package user

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered customer account
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Email       string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string         `gorm:"not null;size:255" json:"-"`
	Phone       string         `gorm:"uniqueIndex;not null;size:20" json:"phone"`
	IsAdmin     bool           `gorm:"default:false" json:"is_admin"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	Addresses   []UserAddress  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserAddress is a saved shipping destination in the user's address book
type UserAddress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Label     string    `gorm:"size:50;default:'Home'" json:"label"`
	Line1     string    `gorm:"not null;size:255" json:"line1"`
	Line2     string    `gorm:"size:255" json:"line2,omitempty"`
	City      string    `gorm:"not null;size:100" json:"city"`
	State     string    `gorm:"not null;size:100" json:"state"`
	Zip       string    `gorm:"not null;size:20" json:"zip"`
	Country   string    `gorm:"size:2;default:'IN'" json:"country"`
	Phone     string    `gorm:"size:20" json:"phone"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (User) TableName() string        { return "users" }
func (UserAddress) TableName() string { return "user_addresses" }
