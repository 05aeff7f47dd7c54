package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrFlowNotRegistered is not found", ErrFlowNotRegistered, true},
		{"ErrModuleNotRegistered is not found", ErrModuleNotRegistered, true},
		{"wrapped not found error is detected", fmt.Errorf("failed to locate: %w", ErrFlowNotRegistered), true},
		{"ErrTimeout is not a not-found error", ErrTimeout, false},
		{"ErrInvalidConfiguration is not a not-found error", ErrInvalidConfiguration, false},
		{"custom error is not a not-found error", errors.New("something else"), false},
		{"nil error is not a not-found error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFound(tt.err))
		})
	}
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrInvalidConfiguration is configuration error", ErrInvalidConfiguration, true},
		{"ErrMissingConfiguration is configuration error", ErrMissingConfiguration, true},
		{"ErrConfigUnavailable is configuration error", ErrConfigUnavailable, true},
		{"wrapped configuration error is detected", fmt.Errorf("config validation failed: %w", ErrInvalidConfiguration), true},
		{"ErrFlowNotRegistered is not configuration error", ErrFlowNotRegistered, false},
		{"custom error is not configuration error", errors.New("random error"), false},
		{"nil error is not configuration error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsConfigurationError(tt.err))
		})
	}
}

func TestIsStateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrAlreadyStarted is state error", ErrAlreadyStarted, true},
		{"ErrNotInitialized is state error", ErrNotInitialized, true},
		{"ErrAlreadyRegistered is state error", ErrAlreadyRegistered, true},
		{"ErrContextConsumed is state error", ErrContextConsumed, true},
		{"wrapped state error is detected", fmt.Errorf("cannot proceed: %w", ErrNotInitialized), true},
		{"ErrTimeout is not state error", ErrTimeout, false},
		{"ErrFlowNotRegistered is not state error", ErrFlowNotRegistered, false},
		{"custom error is not state error", errors.New("some other error"), false},
		{"nil error is not state error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStateError(tt.err))
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := ErrFlowNotRegistered
	wrappedOnce := fmt.Errorf("failed to find flow 'greet': %w", baseErr)
	wrappedTwice := fmt.Errorf("operation failed: %w", wrappedOnce)

	assert.True(t, IsNotFound(baseErr), "base error should be detected as not-found")
	assert.True(t, IsNotFound(wrappedOnce), "once-wrapped error should be detected as not-found")
	assert.True(t, IsNotFound(wrappedTwice), "twice-wrapped error should be detected as not-found")
	require.True(t, errors.Is(wrappedTwice, ErrFlowNotRegistered), "errors.Is should work through multiple wrapping layers")
}

func TestErrorCombinations(t *testing.T) {
	assert.False(t, IsConfigurationError(ErrTimeout), "ErrTimeout should not be a configuration error")
	assert.False(t, IsStateError(ErrInvalidConfiguration), "ErrInvalidConfiguration should not be a state error")
}

func TestErrorStructFormatting(t *testing.T) {
	e := NewError("plan.Compile", "plan", ErrModuleNotRegistered)
	e.ID = "fetch_user"
	assert.Equal(t, "plan.Compile [fetch_user]: module type not registered", e.Error())
	require.True(t, errors.Is(e, ErrModuleNotRegistered), "errors.Is should see through *Error.Unwrap")
}

func BenchmarkIsNotFound(b *testing.B) {
	err := fmt.Errorf("wrapped: %w", ErrFlowNotRegistered)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsNotFound(err)
	}
}
