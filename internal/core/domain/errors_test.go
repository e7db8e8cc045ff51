package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrNoAccount", ErrNoAccount, "no connected marketplace account"},
		{"ErrMissingSellerID", ErrMissingSellerID, "marketplace account has no seller id"},
		{"ErrNoItems", ErrNoItems, "no marketplace items found"},
		{"ErrInvalidGrant", ErrInvalidGrant, "invalid grant"},
		{"ErrUnknownConfigKey", ErrUnknownConfigKey, "unknown sync config key"},
		{"ErrInvalidConfigValue", ErrInvalidConfigValue, "invalid sync config value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrNoAccount,
		ErrMissingSellerID,
		ErrNoItems,
		ErrInvalidGrant,
		ErrUnknownConfigKey,
		ErrInvalidConfigValue,
	}

	for i, a := range allErrors {
		for j, b := range allErrors {
			if i != j && errors.Is(a, b) {
				t.Errorf("expected %v and %v to be distinct", a, b)
			}
		}
	}
}

func TestErrorsWrap(t *testing.T) {
	wrapped := fmt.Errorf("refresh account acc-1: %w", ErrInvalidGrant)
	if !errors.Is(wrapped, ErrInvalidGrant) {
		t.Error("expected wrapped error to match ErrInvalidGrant")
	}
}
