package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"blazemarket/native/market"
	"blazemarket/storage"
)

var (
	listingPrefix = []byte("market/listing:")
	royaltyPrefix = []byte("market/royalty:")
)

func listingKey(assetID uint64) []byte {
	buf := make([]byte, 0, len(listingPrefix)+8)
	buf = append(buf, listingPrefix...)
	buf = append(buf, assetBytes(assetID)...)
	return ethcrypto.Keccak256(buf)
}

func royaltyKey(assetID uint64) []byte {
	buf := make([]byte, 0, len(royaltyPrefix)+8)
	buf = append(buf, royaltyPrefix...)
	buf = append(buf, assetBytes(assetID)...)
	return ethcrypto.Keccak256(buf)
}

// storedListing mirrors market.Listing with RLP-friendly field types.
type storedListing struct {
	AssetID   uint64
	Seller    [20]byte
	Price     *big.Int
	Active    bool
	CreatedAt uint64
}

// storedRoyaltyEntry mirrors market.RoyaltyEntry for the RLP codec.
type storedRoyaltyEntry struct {
	Owner   [20]byte
	Percent uint8
}

// ListingPut persists the listing record, overwriting any previous record for
// the same asset id.
func (m *Manager) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	record := storedListing{
		AssetID:   sanitized.AssetID,
		Seller:    sanitized.Seller,
		Price:     sanitized.Price,
		Active:    sanitized.Active,
		CreatedAt: uint64(sanitized.CreatedAt),
	}
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(listingKey(sanitized.AssetID), encoded)
}

// ListingGet loads the listing record for the asset id.
func (m *Manager) ListingGet(assetID uint64) (*market.Listing, bool, error) {
	data, err := m.db.Get(listingKey(assetID))
	if err == storage.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record := new(storedListing)
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, false, err
	}
	return &market.Listing{
		AssetID:   record.AssetID,
		Seller:    record.Seller,
		Price:     record.Price,
		Active:    record.Active,
		CreatedAt: int64(record.CreatedAt),
	}, true, nil
}

// RoyaltyAppend adds an entry to the end of the asset's royalty log. The log
// is append-only: existing entries are re-encoded untouched and in order.
func (m *Manager) RoyaltyAppend(assetID uint64, entry market.RoyaltyEntry) error {
	if !entry.Valid() || entry.Percent == 0 {
		return fmt.Errorf("state: royalty percent %d not storable", entry.Percent)
	}
	stored, err := m.loadRoyaltyLog(assetID)
	if err != nil {
		return err
	}
	stored = append(stored, storedRoyaltyEntry{Owner: entry.Owner, Percent: entry.Percent})
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(royaltyKey(assetID), encoded)
}

// RoyaltyEntries returns the asset's full royalty log in append order.
func (m *Manager) RoyaltyEntries(assetID uint64) ([]market.RoyaltyEntry, error) {
	stored, err := m.loadRoyaltyLog(assetID)
	if err != nil {
		return nil, err
	}
	entries := make([]market.RoyaltyEntry, len(stored))
	for i, record := range stored {
		entries[i] = market.RoyaltyEntry{Owner: record.Owner, Percent: record.Percent}
	}
	return entries, nil
}

func (m *Manager) loadRoyaltyLog(assetID uint64) ([]storedRoyaltyEntry, error) {
	data, err := m.db.Get(royaltyKey(assetID))
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored []storedRoyaltyEntry
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}
