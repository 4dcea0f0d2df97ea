// internal/domain/user/service_test.go
package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/auth"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}, &UserAddress{}))

	cfg := &config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-that-is-long-enough!",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}

	return NewService(db, cfg), db, cfg
}

func validRegistration() *RegisterRequest {
	return &RegisterRequest{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Password: "Str0ng!Pass",
		Phone:    "9876543210",
	}
}

func TestRegisterIssuesValidTokens(t *testing.T) {
	svc, _, cfg := newTestService(t)

	resp, err := svc.Register(validRegistration())
	require.NoError(t, err)

	assert.NotZero(t, resp.User.ID)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.False(t, resp.User.IsAdmin)

	jwtManager := auth.NewJWTManager(cfg)
	claims, err := jwtManager.ValidateAccessToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	refreshClaims, err := jwtManager.ValidateRefreshToken(resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshClaims.UserID)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := validRegistration()
	req.Email = "  Asha@Example.COM "
	resp, err := svc.Register(req)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", resp.User.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"empty name", func(r *RegisterRequest) { r.Name = "  " }},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{"short phone", func(r *RegisterRequest) { r.Phone = "12345" }},
		{"alpha phone", func(r *RegisterRequest) { r.Phone = "98765x3210" }},
		{"weak password", func(r *RegisterRequest) { r.Password = "alllowercase" }},
		{"short password", func(r *RegisterRequest) { r.Password = "Ab1!" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(req)
			_, err := svc.Register(req)
			assert.True(t, apperror.IsKind(err, apperror.KindInvalidInput), "got %v", err)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(validRegistration())
	require.NoError(t, err)

	// Same email, different phone
	req := validRegistration()
	req.Phone = "9000000001"
	_, err = svc.Register(req)
	require.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
	assert.Equal(t, "email", apperror.From(err).Detail.Field)

	// Same phone, different email
	req = validRegistration()
	req.Email = "other@example.com"
	_, err = svc.Register(req)
	require.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
	assert.Equal(t, "phone", apperror.From(err).Detail.Field)
}

func TestLogin(t *testing.T) {
	svc, db, _ := newTestService(t)

	_, err := svc.Register(validRegistration())
	require.NoError(t, err)

	resp, err := svc.Login(&LoginRequest{Email: "asha@example.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)

	var stored User
	require.NoError(t, db.Where("email = ?", "asha@example.com").First(&stored).Error)
	require.NotNil(t, stored.LastLoginAt)
	assert.WithinDuration(t, time.Now().UTC(), *stored.LastLoginAt, time.Minute)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(validRegistration())
	require.NoError(t, err)

	// Wrong password and unknown email produce the same kind of error
	_, err = svc.Login(&LoginRequest{Email: "asha@example.com", Password: "Wr0ng!Pass"})
	wrongPass := apperror.From(err)
	assert.Equal(t, apperror.KindUnauthorized, wrongPass.Kind)

	_, err = svc.Login(&LoginRequest{Email: "ghost@example.com", Password: "Str0ng!Pass"})
	unknown := apperror.From(err)
	assert.Equal(t, apperror.KindUnauthorized, unknown.Kind)

	assert.Equal(t, wrongPass.Message, unknown.Message)
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)

	registered, err := svc.Register(validRegistration())
	require.NoError(t, err)

	resp, err := svc.Refresh(&RefreshRequest{RefreshToken: registered.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)

	// Access tokens are not accepted as refresh tokens
	_, err = svc.Refresh(&RefreshRequest{RefreshToken: registered.Tokens.AccessToken})
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	_, err = svc.Refresh(&RefreshRequest{RefreshToken: "garbage"})
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
}

func TestAddAddress(t *testing.T) {
	svc, _, _ := newTestService(t)

	registered, err := svc.Register(validRegistration())
	require.NoError(t, err)
	userID := registered.User.ID

	profile, err := svc.AddAddress(userID, &AddAddressRequest{
		Line1: "12 MG Road",
		City:  "Bengaluru",
		State: "Karnataka",
		Zip:   "560001",
	})
	require.NoError(t, err)

	require.Len(t, profile.Addresses, 1)
	assert.Equal(t, "Home", profile.Addresses[0].Label, "label defaults")
	assert.Equal(t, "IN", profile.Addresses[0].Country, "country defaults")

	// A new default unsets the previous one
	profile, err = svc.AddAddress(userID, &AddAddressRequest{
		Label:     "Office",
		Line1:     "1 Tech Park",
		City:      "Bengaluru",
		State:     "Karnataka",
		Zip:       "560103",
		IsDefault: true,
	})
	require.NoError(t, err)
	require.Len(t, profile.Addresses, 2)
	assert.Equal(t, "Office", profile.Addresses[0].Label)
	assert.True(t, profile.Addresses[0].IsDefault)
	assert.False(t, profile.Addresses[1].IsDefault)

	_, err = svc.AddAddress(userID, &AddAddressRequest{Line1: "x", City: "", State: "s", Zip: "1"})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidInput))
}

func TestGetProfileMissingUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetProfile(404)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
