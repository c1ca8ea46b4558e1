// Package wallet holds helpers for on-chain account addresses.
package wallet

import "strings"

// Normalize canonicalises an address for storage and comparison. Sui
// addresses are hex, so case carries no meaning.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
