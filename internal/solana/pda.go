package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

const (
	publicKeyLength = 32
	maxSeeds        = 16
	maxSeedLength   = 32
	pdaMarker       = "ProgramDerivedAddress"
)

var (
	// ErrInvalidPublicKey is returned for strings that are not base58 32-byte keys.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSeeds is returned when seeds exceed runtime limits.
	ErrInvalidSeeds = errors.New("invalid seeds")

	// ErrOnCurve is returned when a candidate program address lies on the ed25519 curve.
	ErrOnCurve = errors.New("address is on curve")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// DecodePublicKey decodes a base58 account address.
func DecodePublicKey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPublicKey, s, err)
	}
	if len(b) != publicKeyLength {
		return nil, fmt.Errorf("%w: %s: length %d", ErrInvalidPublicKey, s, len(b))
	}
	return b, nil
}

// CreateProgramAddress derives a program address from seeds.
// Returns ErrOnCurve if the hash is a valid ed25519 point.
func CreateProgramAddress(seeds [][]byte, programID []byte) ([]byte, error) {
	if len(seeds) > maxSeeds {
		return nil, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, fmt.Errorf("%w: seed length %d", ErrInvalidSeeds, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID)
	h.Write([]byte(pdaMarker))
	hash := h.Sum(nil)

	if isOnCurve(hash) {
		return nil, ErrOnCurve
	}
	return hash, nil
}

// FindProgramAddress searches bump seeds from 255 down for the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID []byte) ([]byte, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return nil, 0, err
		}
	}
	return nil, 0, ErrNoViableBump
}

// FindAssociatedTokenAddress returns the associated token account address of
// (wallet, mint) under the SPL Token program.
func FindAssociatedTokenAddress(wallet, mint string) (string, error) {
	walletKey, err := DecodePublicKey(wallet)
	if err != nil {
		return "", fmt.Errorf("wallet: %w", err)
	}
	mintKey, err := DecodePublicKey(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, err := DecodePublicKey(TokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgram, err := DecodePublicKey(AssociatedTokenProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{walletKey, tokenProgram, mintKey}, ataProgram)
	if err != nil {
		return "", fmt.Errorf("derive associated token address: %w", err)
	}
	return base58.Encode(addr), nil
}

// isOnCurve reports whether b decodes to an ed25519 point.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
