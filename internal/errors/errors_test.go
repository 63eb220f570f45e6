package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := E(KindDateConflict, "car already reserved")
	assert.Equal(t, KindDateConflict, KindOf(err))

	wrapped := fmt.Errorf("request failed: %w", err)
	assert.Equal(t, KindDateConflict, KindOf(wrapped))

	assert.Equal(t, KindUnknown, KindOf(stderrors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(KindUnavailable, "store unreachable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidRange, http.StatusBadRequest},
		{KindInvalidStateTransition, http.StatusBadRequest},
		{KindItemUnavailable, http.StatusConflict},
		{KindDateConflict, http.StatusConflict},
		{KindConcurrencyConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindUnauthorized, http.StatusForbidden},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(E(tt.kind, "x")))
		})
	}
}
