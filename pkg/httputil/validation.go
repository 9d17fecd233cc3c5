package httputil

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
)

// ValidateCID reports whether s parses as a CIDv0 or CIDv1.
func ValidateCID(s string) bool {
	_, err := cid.Decode(strings.TrimSpace(s))
	return err == nil
}

// ValidateWalletAddress checks if a string is a 20-byte hex address, with or without 0x.
func ValidateWalletAddress(wallet string) bool {
	return common.IsHexAddress(strings.TrimSpace(wallet))
}
