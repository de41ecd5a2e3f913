package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44e", true},
		{"0x0000000000000000000000000000000000000000", true},
		{"invalid-address", false},
		{"742d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44", false},
		{"0x742d35Cc6634C0532925a3b844Bc454e4438f44eff", false},
		{"0xZZ2d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidAddress(tt.address), tt.address)
	}
}
