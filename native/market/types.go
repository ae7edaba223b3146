package market

import (
	"fmt"
	"math/big"
)

// Listing captures the current sale terms for a single asset id. At most one
// active listing exists per asset; a purchase flips Active to false while the
// seller and price fields remain as a historical record.
type Listing struct {
	AssetID   uint64
	Seller    [20]byte
	Price     *big.Int
	Active    bool
	CreatedAt int64
}

// Clone returns a deep copy of the listing so callers can mutate the result
// without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates the supplied listing and returns a cloned instance
// with a non-nil price field. The original value is never mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("market: listing price must be non-negative")
	}
	return clone, nil
}

// RoyaltyEntry records one past seller's chosen royalty percentage for an
// asset. Entries accumulate in the chronological order those owners listed the
// asset and are never removed or reordered.
type RoyaltyEntry struct {
	Owner   [20]byte
	Percent uint8
}

// Valid reports whether the percentage lies within the supported range.
func (r RoyaltyEntry) Valid() bool {
	return r.Percent <= maxRoyaltyPercent
}
