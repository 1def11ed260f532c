package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByType(t *testing.T) {
	err := Wrap(ErrorTypeExtractionTimeout, "waiting for title", errors.New("context deadline exceeded"))
	wrapped := fmt.Errorf("entry 4: %w", err)

	assert.True(t, errors.Is(wrapped, ErrExtractionTimeout))
	assert.False(t, errors.Is(wrapped, ErrPanelNotLoaded))
	assert.Equal(t, ErrorTypeExtractionTimeout, TypeOf(wrapped))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestFatalClassification(t *testing.T) {
	tests := []struct {
		errType ErrorType
		fatal   bool
	}{
		{ErrorTypeMissingReference, false},
		{ErrorTypeExtractionTimeout, false},
		{ErrorTypePanelNotLoaded, false},
		{ErrorTypeGeneration, false},
		{ErrorTypeListingUnavailable, true},
		{ErrorTypeSinkUnavailable, true},
		{ErrorTypeStoreUnavailable, true},
		{ErrorTypeCancelled, true},
		{ErrorTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.errType))
		})
	}
}

func TestEntryScopedAndReason(t *testing.T) {
	assert.False(t, IsEntryScoped(nil))
	assert.True(t, IsEntryScoped(ErrMissingReference))
	assert.False(t, IsEntryScoped(errors.New("plain")))
	assert.Equal(t, "sink_unavailable", Reason(fmt.Errorf("append: %w", ErrSinkUnavailable)))
	assert.Equal(t, "", Reason(nil))
}
