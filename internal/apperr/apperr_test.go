package apperr_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/example/maintdesk/backend/internal/apperr"
)

func TestToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperr.NewNotFound("job", "42"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped validation", errors.WithStack(apperr.NewValidation("outcome", "invalid")), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"permission", apperr.NewPermissionDenied("approve job"), http.StatusForbidden, "PERMISSION_DENIED"},
		{"conflict", apperr.NewConflict("tenant"), http.StatusConflict, "CONFLICT"},
		{"storage", apperr.NewStorage(io.ErrUnexpectedEOF), http.StatusInternalServerError, "STORAGE_ERROR"},
		{"unknown", io.EOF, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := apperr.ToHTTP(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestStorageErrorUnwrapsCause(t *testing.T) {
	err := apperr.NewStorage(io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "could not complete action", err.Error())
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := errors.Wrap(apperr.NewNotFound("complaint", "x"), "submit job")
	assert.True(t, apperr.IsNotFound(err))
	assert.False(t, apperr.IsValidation(err))
	assert.True(t, apperr.IsPermissionDenied(errors.WithStack(apperr.NewPermissionDenied("x"))))
}
