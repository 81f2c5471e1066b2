package ingestion

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateMint checks that a mint address is 32 base58 bytes on the
// ed25519 curve. Launchpad mints come from generated keypairs, so an
// off-curve address means garbage data, not a real mint.
func ValidateMint(mint string) error {
	decoded, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("decode mint %q: %w", mint, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("mint %q: expected 32 bytes, got %d", mint, len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("mint %q not on curve: %w", mint, err)
	}
	return nil
}

// patternSuffixLen is how many trailing address characters identify a
// vanity mint pattern.
const patternSuffixLen = 4

// MintPattern derives the grouping pattern identifier from a mint address:
// its trailing characters, which vanity grinders control.
func MintPattern(mint string) string {
	if len(mint) <= patternSuffixLen {
		return mint
	}
	return mint[len(mint)-patternSuffixLen:]
}
