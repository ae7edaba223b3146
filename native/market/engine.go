package market

import (
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"blazemarket/core/events"
	"blazemarket/core/types"
	nativecommon "blazemarket/native/common"
)

const (
	moduleName = "market"

	// Protocol-wide sale fee of 2.5%, paid to the configured fee collector.
	feeNumerator   = 25
	feeDenominator = 1000

	maxRoyaltyPercent = 100

	// currencyID is the reserved asset id of the payment currency.
	currencyID uint64 = 0
)

var (
	errNilState  = errors.New("market engine: state not configured")
	errNilLedger = errors.New("market engine: ledger not configured")
)

// EscrowVault returns the address holding custody of every actively listed
// asset. The address is derived from a fixed module tag so all deployments
// agree on it without storing it.
func EscrowVault() [20]byte {
	var addr [20]byte
	digest := ethcrypto.Keccak256([]byte("market/escrow-vault"))
	copy(addr[:], digest[12:])
	return addr
}

// Ledger is the balance-mutation surface the engine needs from the token
// module. The engine verifies authorization itself and settles escrow and
// payment legs through Move.
type Ledger interface {
	BalanceOf(holder [20]byte, assetID uint64) (*big.Int, error)
	Move(from, to [20]byte, assetID uint64, amount *big.Int) error
	ApprovedForAll(owner, operator [20]byte) (bool, error)
}

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(assetID uint64) (*Listing, bool, error)
	RoyaltyAppend(assetID uint64, entry RoyaltyEntry) error
	RoyaltyEntries(assetID uint64) ([]RoyaltyEntry, error)
}

// Engine orchestrates listing creation, escrow custody, purchase settlement
// and the royalty fan-out across the full accumulated seller history.
type Engine struct {
	state        engineState
	ledger       Ledger
	emitter      events.Emitter
	nowFn        func() int64
	pauses       nativecommon.PauseView
	feeCollector [20]byte
}

// NewEngine constructs a marketplace engine with a no-op emitter. The state
// backend and ledger must be configured before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the balance ledger the engine settles against.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetFeeCollector configures the address receiving the protocol fee.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the administrative pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// List puts one unit of the asset up for sale at the supplied price. The unit
// moves into escrow custody for the duration of the listing, and a non-zero
// royalty percentage is locked into the asset's history immediately so the
// terms cannot change once a buyer commits funds. The current seller may
// relist while the listing is still active to adjust price or royalty; the
// escrowed unit stays where it is.
func (e *Engine) List(caller [20]byte, assetID uint64, price *big.Int, royaltyPercent uint8) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if assetID == currencyID {
		return nil, ErrInvalidOperation
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if royaltyPercent > maxRoyaltyPercent {
		return nil, ErrInvalidRoyalty
	}

	existing, ok, err := e.state.ListingGet(assetID)
	if err != nil {
		return nil, err
	}
	if ok && existing.Active {
		// Relist by the current custodian: the asset already sits in
		// escrow, only the terms change.
		if existing.Seller != caller {
			return nil, ErrNotOwner
		}
		return e.writeListing(existing.Seller, assetID, price, royaltyPercent, false)
	}

	balance, err := e.ledger.BalanceOf(caller, assetID)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrNotOwner
	}
	approved, err := e.ledger.ApprovedForAll(caller, EscrowVault())
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrUnauthorized
	}
	if err := e.ledger.Move(caller, EscrowVault(), assetID, big.NewInt(1)); err != nil {
		return nil, err
	}
	listing, err := e.writeListing(caller, assetID, price, royaltyPercent, true)
	if err != nil {
		// Return the escrowed unit so a failed write leaves balances
		// untouched.
		_ = e.ledger.Move(EscrowVault(), caller, assetID, big.NewInt(1))
		return nil, err
	}
	return listing, nil
}

func (e *Engine) writeListing(seller [20]byte, assetID uint64, price *big.Int, royaltyPercent uint8, escrowed bool) (*Listing, error) {
	listing := &Listing{
		AssetID:   assetID,
		Seller:    seller,
		Price:     new(big.Int).Set(price),
		Active:    true,
		CreatedAt: e.now(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	// Zero-percent listings leave no trace in the royalty history.
	if royaltyPercent > 0 {
		entry := RoyaltyEntry{Owner: seller, Percent: royaltyPercent}
		if err := e.state.RoyaltyAppend(assetID, entry); err != nil {
			// Deactivate the record just written so a failed append
			// cannot leave an active listing behind.
			closed := listing.Clone()
			closed.Active = false
			_ = e.state.ListingPut(closed)
			return nil, err
		}
	}
	e.emit(NewListedEvent(listing, royaltyPercent, escrowed))
	return listing.Clone(), nil
}

// Buy settles the active listing for the supplied asset: the protocol fee goes
// to the fee collector, every royalty entry in the asset's history receives
// its cut in chronological listing order, the seller keeps the residual, and
// the escrowed unit transfers to the buyer. The current seller's own history
// entry pays out alongside the residual; that double payment is part of the
// pricing terms, not an accident. Settlement is all-or-nothing: a failure on
// any leg rewinds every previously applied leg.
func (e *Engine) Buy(caller [20]byte, assetID uint64) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(assetID)
	if err != nil {
		return nil, err
	}
	if !ok || !listing.Active {
		return nil, ErrNotListed
	}
	if listing.Seller == caller {
		return nil, ErrSelfPurchase
	}
	approved, err := e.ledger.ApprovedForAll(caller, EscrowVault())
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrUnauthorized
	}
	price := new(big.Int).Set(listing.Price)
	buyerFunds, err := e.ledger.BalanceOf(caller, currencyID)
	if err != nil {
		return nil, err
	}
	if buyerFunds.Cmp(price) < 0 {
		return nil, ErrInsufficientFunds
	}

	entries, err := e.state.RoyaltyEntries(assetID)
	if err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(price, big.NewInt(feeNumerator))
	fee.Div(fee, big.NewInt(feeDenominator))
	royalties := make([]*big.Int, len(entries))
	obligations := new(big.Int).Set(fee)
	for i, entry := range entries {
		amount := new(big.Int).Mul(price, big.NewInt(int64(entry.Percent)))
		amount.Div(amount, big.NewInt(maxRoyaltyPercent))
		royalties[i] = amount
		obligations.Add(obligations, amount)
	}
	// A deep history can promise more than the sale price; the purchase must
	// fail before any leg settles rather than mint currency out of thin air.
	if obligations.Cmp(price) > 0 {
		return nil, ErrInvalidOperation
	}
	// Flooring remainders accrue to the seller residual, never dropped, so
	// fee + royalties + residual reconstructs the price exactly.
	residual := new(big.Int).Sub(price, obligations)

	var applied []func() error
	revert := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			_ = applied[i]()
		}
	}
	pay := func(from, to [20]byte, id uint64, amount *big.Int) error {
		if amount.Sign() == 0 {
			return nil
		}
		if err := e.ledger.Move(from, to, id, amount); err != nil {
			return err
		}
		applied = append(applied, func() error {
			return e.ledger.Move(to, from, id, amount)
		})
		return nil
	}

	if err := pay(caller, e.feeCollector, currencyID, fee); err != nil {
		revert()
		return nil, err
	}
	for i, entry := range entries {
		if err := pay(caller, entry.Owner, currencyID, royalties[i]); err != nil {
			revert()
			return nil, err
		}
	}
	if err := pay(caller, listing.Seller, currencyID, residual); err != nil {
		revert()
		return nil, err
	}
	if err := pay(EscrowVault(), caller, assetID, big.NewInt(1)); err != nil {
		revert()
		return nil, err
	}

	closed := listing.Clone()
	closed.Active = false
	if err := e.state.ListingPut(closed); err != nil {
		revert()
		return nil, err
	}

	royaltyTotal := new(big.Int).Sub(obligations, fee)
	receipt := &Receipt{
		AssetID:        assetID,
		Seller:         listing.Seller,
		Buyer:          caller,
		Price:          price,
		Fee:            fee,
		RoyaltiesPaid:  royaltyTotal,
		SellerProceeds: new(big.Int).Set(residual),
	}
	e.emit(NewSoldEvent(receipt))
	return receipt, nil
}

// GetListing returns a copy of the stored listing record for the asset.
func (e *Engine) GetListing(assetID uint64) (*Listing, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	listing, ok, err := e.state.ListingGet(assetID)
	if err != nil || !ok {
		return nil, false, err
	}
	return listing.Clone(), true, nil
}

// RoyaltyHistory returns the full accumulated royalty history for the asset in
// append order. The slice is a copy; mutating it does not affect state.
func (e *Engine) RoyaltyHistory(assetID uint64) ([]RoyaltyEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	entries, err := e.state.RoyaltyEntries(assetID)
	if err != nil {
		return nil, err
	}
	return append([]RoyaltyEntry(nil), entries...), nil
}

// Receipt summarises the exact split of a settled purchase. The invariant
// Fee + RoyaltiesPaid + SellerProceeds == Price holds for every receipt.
type Receipt struct {
	AssetID        uint64
	Seller         [20]byte
	Buyer          [20]byte
	Price          *big.Int
	Fee            *big.Int
	RoyaltiesPaid  *big.Int
	SellerProceeds *big.Int
}
