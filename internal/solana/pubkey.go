package solana

import (
	"crypto/sha256"
	"fmt"
	"regexp"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"token-intel/internal/domain"
)

// Well-known program IDs.
const (
	SystemProgram          = "11111111111111111111111111111111"
	TokenProgram           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022Program       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	MetadataProgram        = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	PumpFunProgram         = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	WrappedSOLMint         = "So11111111111111111111111111111111111111112"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

const pdaMarker = "ProgramDerivedAddress"

var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// IsValidAddress reports whether s is a base58 string decoding to 32 bytes.
func IsValidAddress(s string) bool {
	if !addressPattern.MatchString(s) {
		return false
	}
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// DecodePubkey decodes a base58 address into its 32 raw bytes.
func DecodePubkey(s string) ([]byte, error) {
	if !addressPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: invalid solana address %q", domain.ErrValidation, s)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode address %q: %v", domain.ErrValidation, s, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("%w: address %q is %d bytes", domain.ErrValidation, s, len(decoded))
	}
	return decoded, nil
}

// IsOnCurve reports whether the 32-byte key is a valid ed25519 point.
// Wallet keys are on the curve; program-derived addresses are not.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsOnCurveAddress is IsOnCurve for a base58 address. Invalid addresses are off-curve.
func IsOnCurveAddress(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return IsOnCurve(decoded)
}

// FindProgramAddress derives the canonical PDA for seeds under programID.
// Bumps are tried from 255 down; the first off-curve hash wins.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, err
	}
	for _, seed := range seeds {
		if len(seed) > 32 {
			return "", 0, fmt.Errorf("%w: seed longer than 32 bytes", domain.ErrValidation)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !IsOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no viable bump for program %s", programID)
}

// AnchorDiscriminator returns the 8-byte Anchor discriminator for a
// namespaced name such as "account:BondingCurve" or "event:TradeEvent".
func AnchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
