package solana

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const signatureLength = 64

// ParseSignature decodes a base58 transaction signature. Signatures double as
// pagination cursors, so the same check applies to before/until values.
func ParseSignature(signature string) (solana.Signature, error) {
	if err := checkBase58Chars(signature); err != nil {
		return solana.Signature{}, fmt.Errorf("invalid signature: %w", err)
	}

	raw, err := base58.Decode(signature)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid signature (%s): %w", signature, err)
	}
	if len(raw) != signatureLength {
		return solana.Signature{}, fmt.Errorf("invalid signature (%s): decoded to %d bytes, expected %d", signature, len(raw), signatureLength)
	}

	var sig solana.Signature
	copy(sig[:], raw)
	return sig, nil
}

// ParseAddress decodes a base58 account address.
func ParseAddress(address string) (solana.PublicKey, error) {
	if err := checkBase58Chars(address); err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid Solana address: %w", err)
	}

	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid Solana address (%s): %w", address, err)
	}
	return pubKey, nil
}

// ParseSlot parses a decimal slot number.
func ParseSlot(slot string) (uint64, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(slot), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: must be a non-negative integer", slot)
	}
	return value, nil
}

// checkBase58Chars points at the first character base58 cannot encode, which
// gives a better message than the decoder does.
func checkBase58Chars(s string) error {
	if s == "" {
		return fmt.Errorf("value is empty")
	}
	for i, c := range s {
		// Base58 doesn't use 0, O, I, or l
		if c == '0' || c == 'O' || c == 'I' || c == 'l' {
			return fmt.Errorf("invalid character '%c' at position %d: base58 doesn't include 0, O, I, or l", c, i)
		}
	}
	return nil
}
