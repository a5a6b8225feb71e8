package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{NewAppError("NOT_FOUND", "class c1", ErrNotFound), codes.NotFound},
		{fmt.Errorf("bad: %w", ErrInvalidInput), codes.InvalidArgument},
		{NewValidator().Field("name", "", Required).Error(), codes.InvalidArgument},
		{ErrUnauthorized, codes.Unauthenticated},
		{ErrForbidden, codes.PermissionDenied},
		{ErrConflict, codes.AlreadyExists},
		{ErrPrecondition, codes.FailedPrecondition},
		{ErrUpstreamFailed, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Aborted, "already a status"), codes.Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppError(t *testing.T) {
	err := NewAppError("DB_ERROR", "list classes", ErrDatabase)
	assert.Equal(t, "DB_ERROR: list classes: database error", err.Error())
	assert.ErrorIs(t, err, ErrDatabase)
	assert.Equal(t, "X: y", NewAppError("X", "y", nil).Error())
}
