package token

import (
	"errors"
	"math/big"
	"time"

	"blazemarket/core/events"
	"blazemarket/core/types"
	nativecommon "blazemarket/native/common"
)

// CurrencyID is the reserved asset identifier of the fungible currency used to
// price and settle every listing. Collectible ids are allocated from 1 upwards.
const CurrencyID uint64 = 0

const (
	moduleName = "token"

	// Edition mints carry a small fixed supply; anything outside this window
	// is rejected.
	minEditionCopies = 2
	maxEditionCopies = 5
)

// defaultClaimAmount mirrors the one-time faucet grant of the original
// deployment: 50,000 currency units per identity.
var defaultClaimAmount = big.NewInt(50_000)

var errNilState = errors.New("token engine: state not configured")

type engineState interface {
	BalanceGet(addr [20]byte, assetID uint64) (*big.Int, error)
	BalancePut(addr [20]byte, assetID uint64, amount *big.Int) error
	SupplyGet(assetID uint64) (*big.Int, error)
	SupplyPut(assetID uint64, amount *big.Int) error
	NextAssetID() (uint64, error)
	ApprovalGet(owner, operator [20]byte) (bool, error)
	ApprovalPut(owner, operator [20]byte, approved bool) error
	ClaimedGet(addr [20]byte) (bool, error)
	ClaimedPut(addr [20]byte) error
}

// Engine implements the multi-asset balance ledger: collectible and edition
// minting, the one-time currency claim, operator approvals and transfers. It
// owns no balances itself; all state flows through the configured backend.
type Engine struct {
	state       engineState
	emitter     events.Emitter
	nowFn       func() int64
	pauses      nativecommon.PauseView
	claimAmount *big.Int
}

// NewEngine constructs a ledger engine with a no-op emitter and the default
// faucet grant.
func NewEngine() *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
		claimAmount: new(big.Int).Set(defaultClaimAmount),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// SetClaimAmount overrides the faucet grant, typically from configuration.
func (e *Engine) SetClaimAmount(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		e.claimAmount = new(big.Int).Set(defaultClaimAmount)
		return
	}
	e.claimAmount = new(big.Int).Set(amount)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(tokenEvent{evt: evt})
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// InitialSupply mints the genesis currency float to the supplied owner. It may
// run once: a second call fails because the supply already exists.
func (e *Engine) InitialSupply(owner [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	supply, err := e.state.SupplyGet(CurrencyID)
	if err != nil {
		return err
	}
	if supply.Sign() > 0 {
		return ErrSupplyExists
	}
	return e.mint(owner, CurrencyID, amount)
}

// Claim grants the one-time faucet amount of currency to the caller. A second
// claim by the same identity fails with ErrAlreadyClaimed.
func (e *Engine) Claim(caller [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	claimed, err := e.state.ClaimedGet(caller)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	amount := cloneBigInt(e.claimAmount)
	if err := e.mint(caller, CurrencyID, amount); err != nil {
		return nil, err
	}
	if err := e.state.ClaimedPut(caller); err != nil {
		return nil, err
	}
	e.emit(NewClaimedEvent(caller, amount))
	return amount, nil
}

// MintCollectible allocates the next free asset id and mints a single unit to
// the creator.
func (e *Engine) MintCollectible(creator [20]byte) (uint64, error) {
	return e.mintAsset(creator, 1)
}

// MintEdition allocates the next free asset id and mints a limited run of
// identical copies. The copy count must lie in [2,5].
func (e *Engine) MintEdition(creator [20]byte, copies uint32) (uint64, error) {
	if copies < minEditionCopies || copies > maxEditionCopies {
		return 0, ErrInvalidOperation
	}
	return e.mintAsset(creator, int64(copies))
}

func (e *Engine) mintAsset(creator [20]byte, copies int64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	assetID, err := e.state.NextAssetID()
	if err != nil {
		return 0, err
	}
	amount := big.NewInt(copies)
	if err := e.mint(creator, assetID, amount); err != nil {
		return 0, err
	}
	e.emit(NewMintedEvent(creator, assetID, amount))
	return assetID, nil
}

func (e *Engine) mint(to [20]byte, assetID uint64, amount *big.Int) error {
	balance, err := e.state.BalanceGet(to, assetID)
	if err != nil {
		return err
	}
	supply, err := e.state.SupplyGet(assetID)
	if err != nil {
		return err
	}
	if err := e.state.BalancePut(to, assetID, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	return e.state.SupplyPut(assetID, new(big.Int).Add(supply, amount))
}

// BalanceOf reports the holder's quantity of the supplied asset.
func (e *Engine) BalanceOf(holder [20]byte, assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	balance, err := e.state.BalanceGet(holder, assetID)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(balance), nil
}

// TotalSupply reports the total minted quantity of the supplied asset. The sum
// of all balances for an asset equals this value at every observation point.
func (e *Engine) TotalSupply(assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.state.SupplyGet(assetID)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(supply), nil
}

// SetApprovalForAll grants or revokes an operator's right to move every asset
// held by the owner.
func (e *Engine) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.state.ApprovalPut(owner, operator, approved); err != nil {
		return err
	}
	e.emit(NewApprovalEvent(owner, operator, approved))
	return nil
}

// ApprovedForAll reports whether the operator may move the owner's holdings.
func (e *Engine) ApprovedForAll(owner, operator [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.ApprovalGet(owner, operator)
}

// Transfer moves quantity from one holder to another on behalf of the
// operator. The operator must be the sender or carry an approval grant.
func (e *Engine) Transfer(operator, from, to [20]byte, assetID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if operator != from {
		approved, err := e.state.ApprovalGet(from, operator)
		if err != nil {
			return err
		}
		if !approved {
			return ErrUnauthorized
		}
	}
	return e.Move(from, to, assetID, amount)
}

// Move performs a balance transfer without an operator check. It exists for
// module settlement: the marketplace engine verifies authorization itself and
// then settles escrow and payment legs through this path.
func (e *Engine) Move(from, to [20]byte, assetID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBal, err := e.state.BalanceGet(from, assetID)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	// A self-transfer nets to zero. Writing both legs would let the credit
	// overwrite the debit and mint from nothing, so no balance moves.
	if from == to {
		e.emit(NewTransferredEvent(from, to, assetID, amt))
		return nil
	}
	toBal, err := e.state.BalanceGet(to, assetID)
	if err != nil {
		return err
	}
	if err := e.state.BalancePut(from, assetID, new(big.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	if err := e.state.BalancePut(to, assetID, new(big.Int).Add(toBal, amt)); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(from, to, assetID, amt))
	return nil
}
