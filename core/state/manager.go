package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"blazemarket/storage"
)

// Manager reads and writes ledger records through the key-value backend. Keys
// are keccak256 hashes of a typed prefix plus the record coordinates; values
// are RLP encoded. The manager implements the state interfaces of both the
// token and market engines so a single backend carries the whole system.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	balancePrefix   = []byte("balance:")
	supplyPrefix    = []byte("supply:")
	approvalPrefix  = []byte("approval:")
	claimPrefix     = []byte("claim:")
	assetCounterKey = ethcrypto.Keccak256([]byte("asset-id-counter"))
)

func assetBytes(assetID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, assetID)
	return buf
}

func balanceKey(addr [20]byte, assetID uint64) []byte {
	buf := make([]byte, 0, len(balancePrefix)+8+1+20)
	buf = append(buf, balancePrefix...)
	buf = append(buf, assetBytes(assetID)...)
	buf = append(buf, ':')
	buf = append(buf, addr[:]...)
	return ethcrypto.Keccak256(buf)
}

func supplyKey(assetID uint64) []byte {
	buf := make([]byte, 0, len(supplyPrefix)+8)
	buf = append(buf, supplyPrefix...)
	buf = append(buf, assetBytes(assetID)...)
	return ethcrypto.Keccak256(buf)
}

func approvalKey(owner, operator [20]byte) []byte {
	buf := make([]byte, 0, len(approvalPrefix)+41)
	buf = append(buf, approvalPrefix...)
	buf = append(buf, owner[:]...)
	buf = append(buf, ':')
	buf = append(buf, operator[:]...)
	return ethcrypto.Keccak256(buf)
}

func claimKey(addr [20]byte) []byte {
	buf := make([]byte, 0, len(claimPrefix)+20)
	buf = append(buf, claimPrefix...)
	buf = append(buf, addr[:]...)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) getBigInt(key []byte) (*big.Int, error) {
	data, err := m.db.Get(key)
	if err == storage.ErrNotFound {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	value := new(big.Int)
	if err := rlp.DecodeBytes(data, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) putBigInt(key []byte, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("state: amount must be non-negative")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// BalanceGet returns the holder's quantity of the asset; zero when the record
// has never been written.
func (m *Manager) BalanceGet(addr [20]byte, assetID uint64) (*big.Int, error) {
	return m.getBigInt(balanceKey(addr, assetID))
}

// BalancePut stores the holder's quantity of the asset.
func (m *Manager) BalancePut(addr [20]byte, assetID uint64, amount *big.Int) error {
	return m.putBigInt(balanceKey(addr, assetID), amount)
}

// SupplyGet returns the total minted quantity of the asset.
func (m *Manager) SupplyGet(assetID uint64) (*big.Int, error) {
	return m.getBigInt(supplyKey(assetID))
}

// SupplyPut stores the total minted quantity of the asset.
func (m *Manager) SupplyPut(assetID uint64, amount *big.Int) error {
	return m.putBigInt(supplyKey(assetID), amount)
}

// NextAssetID allocates and persists the next collectible asset identifier.
// The first allocation returns 1; id 0 stays reserved for the currency.
func (m *Manager) NextAssetID() (uint64, error) {
	var counter uint64
	data, err := m.db.Get(assetCounterKey)
	switch err {
	case nil:
		if decodeErr := rlp.DecodeBytes(data, &counter); decodeErr != nil {
			return 0, decodeErr
		}
	case storage.ErrNotFound:
	default:
		return 0, err
	}
	counter++
	encoded, err := rlp.EncodeToBytes(counter)
	if err != nil {
		return 0, err
	}
	if err := m.db.Put(assetCounterKey, encoded); err != nil {
		return 0, err
	}
	return counter, nil
}

// ApprovalGet reports whether the operator carries a grant over the owner's
// holdings.
func (m *Manager) ApprovalGet(owner, operator [20]byte) (bool, error) {
	data, err := m.db.Get(approvalKey(owner, operator))
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var approved bool
	if err := rlp.DecodeBytes(data, &approved); err != nil {
		return false, err
	}
	return approved, nil
}

// ApprovalPut stores the operator grant flag.
func (m *Manager) ApprovalPut(owner, operator [20]byte, approved bool) error {
	encoded, err := rlp.EncodeToBytes(approved)
	if err != nil {
		return err
	}
	return m.db.Put(approvalKey(owner, operator), encoded)
}

// ClaimedGet reports whether the identity has taken its one-time currency
// grant.
func (m *Manager) ClaimedGet(addr [20]byte) (bool, error) {
	return m.db.Has(claimKey(addr))
}

// ClaimedPut marks the identity's grant as taken.
func (m *Manager) ClaimedPut(addr [20]byte) error {
	return m.db.Put(claimKey(addr), []byte{1})
}
