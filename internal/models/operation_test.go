package models

import "testing"

func TestIsValidOpTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{OpStatusIdle, OpStatusValidating, true},
		{OpStatusValidating, OpStatusBuilding, true},
		{OpStatusBuilding, OpStatusSigning, true},
		{OpStatusSigning, OpStatusSubmitting, true},
		{OpStatusSubmitting, OpStatusSuccess, true},

		// Error exits
		{OpStatusValidating, OpStatusError, true},
		{OpStatusBuilding, OpStatusError, true},
		{OpStatusSigning, OpStatusError, true},
		{OpStatusSubmitting, OpStatusError, true},

		// Back to idle only from terminal states
		{OpStatusSuccess, OpStatusIdle, true},
		{OpStatusError, OpStatusIdle, true},

		// No skipping, no going back, no double submit
		{OpStatusIdle, OpStatusSigning, false},
		{OpStatusIdle, OpStatusSubmitting, false},
		{OpStatusValidating, OpStatusSigning, false},
		{OpStatusSigning, OpStatusBuilding, false},
		{OpStatusSubmitting, OpStatusSubmitting, false},
		{OpStatusSuccess, OpStatusValidating, false},
		{OpStatusError, OpStatusValidating, false},
		{OpStatusIdle, OpStatusError, false},
		{"nonexistent", OpStatusValidating, false},
		{OpStatusIdle, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidOpTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidOpTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}
