package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", apperrors.NewValidationError("comments", "is required"), apperrors.ErrValidation},
		{"invalid state", apperrors.NewInvalidStateError("PR-1", "already decided by this role"), apperrors.ErrInvalidState},
		{"conflict", &apperrors.ConflictError{TransactionID: "PR-1", ExpectedVersion: 3}, apperrors.ErrConflict},
		{"wrapped app error", apperrors.NewAppError(500, "failed", apperrors.ErrNotFound), apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := apperrors.NewValidationError("items[0].quantity", "must be at least %d", 1)
	assert.Equal(t, "items[0].quantity: must be at least 1", err.Error())

	var ve *apperrors.ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &ve))
	assert.Equal(t, "items[0].quantity", ve.Field)
}

func TestInvalidStateErrorMentionsTransactionID(t *testing.T) {
	err := apperrors.NewInvalidStateError("PR-20260101000000-ABC123", "already decided by this role")
	assert.Contains(t, err.Error(), "PR-20260101000000-ABC123")
	assert.Contains(t, err.Error(), "already decided by this role")
}
