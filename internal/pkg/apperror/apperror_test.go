package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	available := 2

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", InvalidInput("qty must be positive"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("login required"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden},
		{"not found", NotFound("product not found"), http.StatusNotFound},
		{"conflict", Conflict(CodeInsufficientStock, "insufficient stock", &ConflictDetail{ProductID: 7, Available: &available}), http.StatusConflict},
		{"internal", Internal(errors.New("db gone")), http.StatusInternalServerError},
		{"plain error", errors.New("anything"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, HTTPStatus(tc.err))
		})
	}
}

func TestFromUnwrapsWrappedError(t *testing.T) {
	orig := Conflict(CodeEmptyCart, "cart is empty", nil)
	wrapped := fmt.Errorf("placing order: %w", orig)

	got := From(wrapped)
	require.Equal(t, KindConflict, got.Kind)
	assert.Equal(t, CodeEmptyCart, got.Code)
	assert.True(t, IsCode(wrapped, CodeEmptyCart))
	assert.True(t, IsKind(wrapped, KindConflict))
}

func TestInternalHidesCause(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))
	assert.Equal(t, "Internal server error", err.Message)
	// cause stays reachable for logging
	assert.ErrorContains(t, err, "connection refused")
}
