package core

import (
	"math/big"
	"sync"

	"blazemarket/config"
	"blazemarket/core/events"
	"blazemarket/core/state"
	"blazemarket/native/market"
	"blazemarket/native/token"
	"blazemarket/storage"
)

// Node is the central controller, wiring the state manager and the ledger and
// marketplace engines together over a single database. All state-mutating
// calls run under one mutex so operations execute in a total order: list and
// buy on the same asset never interleave and concurrent purchases cannot
// overdraw a shared balance.
type Node struct {
	db      storage.Database
	manager *state.Manager
	tokens  *token.Engine
	market  *market.Engine
	stateMu sync.Mutex
}

// NewNode assembles the engines over the supplied database and applies the
// genesis currency float when the store is fresh. The configured fee collector
// doubles as the genesis operator receiving the initial supply.
func NewNode(db storage.Database, cfg *config.Config) (*Node, error) {
	manager := state.NewManager(db)

	operator, err := cfg.FeeCollectorAddress()
	if err != nil {
		return nil, err
	}

	tokens := token.NewEngine()
	tokens.SetState(manager)
	if cfg.FaucetAmount > 0 {
		tokens.SetClaimAmount(new(big.Int).SetUint64(cfg.FaucetAmount))
	}

	mkt := market.NewEngine()
	mkt.SetState(manager)
	mkt.SetLedger(tokens)
	mkt.SetFeeCollector(operator)

	supply, err := tokens.TotalSupply(token.CurrencyID)
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 && cfg.InitialSupply > 0 {
		if err := tokens.InitialSupply(operator, new(big.Int).SetUint64(cfg.InitialSupply)); err != nil {
			return nil, err
		}
	}

	return &Node{
		db:      db,
		manager: manager,
		tokens:  tokens,
		market:  mkt,
	}, nil
}

// SetEmitter wires the emitter into both engines.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.tokens.SetEmitter(emitter)
	n.market.SetEmitter(emitter)
}

// Claim grants the caller's one-time currency allowance.
func (n *Node) Claim(caller [20]byte) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.tokens.Claim(caller)
}

// MintCollectible mints a unique supply-1 asset to the creator.
func (n *Node) MintCollectible(creator [20]byte) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.tokens.MintCollectible(creator)
}

// MintEdition mints a limited run of 2-5 copies to the creator.
func (n *Node) MintEdition(creator [20]byte, copies uint32) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.tokens.MintEdition(creator, copies)
}

// SetApprovalForAll grants or revokes an operator over the owner's holdings.
func (n *Node) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.tokens.SetApprovalForAll(owner, operator, approved)
}

// Transfer moves balances on behalf of an approved operator.
func (n *Node) Transfer(operator, from, to [20]byte, assetID uint64, amount *big.Int) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.tokens.Transfer(operator, from, to, assetID, amount)
}

// List escrows one unit of the asset and records the sale terms.
func (n *Node) List(caller [20]byte, assetID uint64, price *big.Int, royaltyPercent uint8) (*market.Listing, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.market.List(caller, assetID, price, royaltyPercent)
}

// Buy settles the active listing for the asset.
func (n *Node) Buy(caller [20]byte, assetID uint64) (*market.Receipt, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.market.Buy(caller, assetID)
}

// BalanceOf reports the holder's quantity of the asset.
func (n *Node) BalanceOf(holder [20]byte, assetID uint64) (*big.Int, error) {
	return n.tokens.BalanceOf(holder, assetID)
}

// TotalSupply reports the total minted quantity of the asset.
func (n *Node) TotalSupply(assetID uint64) (*big.Int, error) {
	return n.tokens.TotalSupply(assetID)
}

// GetListing returns the stored listing record for the asset.
func (n *Node) GetListing(assetID uint64) (*market.Listing, bool, error) {
	return n.market.GetListing(assetID)
}

// RoyaltyHistory returns the asset's accumulated royalty history.
func (n *Node) RoyaltyHistory(assetID uint64) ([]market.RoyaltyEntry, error) {
	return n.market.RoyaltyHistory(assetID)
}
