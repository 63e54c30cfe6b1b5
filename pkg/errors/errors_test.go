package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeDuplicateIdentity, http.StatusConflict},
		{CodeTokenExpired, http.StatusUnauthorized},
		{CodeTokenRevoked, http.StatusUnauthorized},
		{CodeInsufficientStock, http.StatusConflict},
		{CodeEmptyCart, http.StatusBadRequest},
		{CodeInvalidTransition, http.StatusUnprocessableEntity},
		{CodeInvalidPayment, http.StatusUnprocessableEntity},
		{CodeRateLimit, http.StatusTooManyRequests},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.status, MetadataFor(tc.code).HTTPStatus, string(tc.code))
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("pq: connection refused")
	err := Wrap(CodeDependency, cause, "load cart")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.ErrorIs(t, err, cause)
}

func TestAsFindsNestedTypedError(t *testing.T) {
	inner := New(CodeInsufficientStock, "insufficient stock for product")
	wrapped := fmt.Errorf("checkout: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInsufficientStock, typed.Code())
	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.False(t, IsCode(wrapped, CodeEmptyCart))
}

func TestDumpWalksChain(t *testing.T) {
	cause := fmt.Errorf("driver failure")
	err := Wrap(CodeInternal, cause, "persist order")

	dump := Dump(err)
	assert.Equal(t, string(CodeInternal), dump.Code)
	require.Len(t, dump.Chain, 2)
	assert.Contains(t, dump.Chain[1], "driver failure")
}
