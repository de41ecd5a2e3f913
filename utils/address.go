package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress accepts 0x-prefixed, 40 hex digit addresses only.
func IsValidAddress(address string) bool {
	return len(address) == 42 && strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
