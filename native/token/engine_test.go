package token

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

type balanceKey struct {
	addr    [20]byte
	assetID uint64
}

type approvalKey struct {
	owner    [20]byte
	operator [20]byte
}

type mockState struct {
	balances  map[balanceKey]*big.Int
	supplies  map[uint64]*big.Int
	approvals map[approvalKey]bool
	claimed   map[[20]byte]bool
	counter   uint64
}

func newMockState() *mockState {
	return &mockState{
		balances:  make(map[balanceKey]*big.Int),
		supplies:  make(map[uint64]*big.Int),
		approvals: make(map[approvalKey]bool),
		claimed:   make(map[[20]byte]bool),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) BalanceGet(addr [20]byte, assetID uint64) (*big.Int, error) {
	if bal, ok := m.balances[balanceKey{addr, assetID}]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) BalancePut(addr [20]byte, assetID uint64, amount *big.Int) error {
	m.balances[balanceKey{addr, assetID}] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) SupplyGet(assetID uint64) (*big.Int, error) {
	if supply, ok := m.supplies[assetID]; ok {
		return new(big.Int).Set(supply), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SupplyPut(assetID uint64, amount *big.Int) error {
	m.supplies[assetID] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) NextAssetID() (uint64, error) {
	m.counter++
	return m.counter, nil
}

func (m *mockState) ApprovalGet(owner, operator [20]byte) (bool, error) {
	return m.approvals[approvalKey{owner, operator}], nil
}

func (m *mockState) ApprovalPut(owner, operator [20]byte, approved bool) error {
	m.approvals[approvalKey{owner, operator}] = approved
	return nil
}

func (m *mockState) ClaimedGet(addr [20]byte) (bool, error) {
	return m.claimed[addr], nil
}

func (m *mockState) ClaimedPut(addr [20]byte) error {
	m.claimed[addr] = true
	return nil
}

// sumBalances recomputes the total holdings of an asset across every account.
func (m *mockState) sumBalances(assetID uint64) *big.Int {
	total := big.NewInt(0)
	for key, bal := range m.balances {
		if key.assetID == assetID {
			total.Add(total, bal)
		}
	}
	return total
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, state
}

func TestInitialSupplyMintsOnce(t *testing.T) {
	engine, state := newTestEngine(t)
	operator := newTestAddress(0x01)

	if err := engine.InitialSupply(operator, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("initial supply: %v", err)
	}
	balance, err := engine.BalanceOf(operator, CurrencyID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(100_000_000)) != 0 {
		t.Fatalf("unexpected operator balance %s", balance)
	}
	if err := engine.InitialSupply(operator, big.NewInt(1)); !errors.Is(err, ErrSupplyExists) {
		t.Fatalf("expected ErrSupplyExists, got %v", err)
	}
	if got := state.sumBalances(CurrencyID); got.Cmp(big.NewInt(100_000_000)) != 0 {
		t.Fatalf("conservation broken: balances sum to %s", got)
	}
}

func TestClaimGrantsCurrencyOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	claimer := newTestAddress(0x02)

	amount, err := engine.Claim(claimer)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected claim amount %s", amount)
	}
	balance, err := engine.BalanceOf(claimer, CurrencyID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}
	if _, err := engine.Claim(claimer); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	// Supply must have grown in lockstep with the grant.
	supply, err := engine.TotalSupply(CurrencyID)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected supply %s", supply)
	}
}

func TestMintCollectibleAllocatesSequentialIDs(t *testing.T) {
	engine, state := newTestEngine(t)

	for i, fill := range []byte{0x11, 0x22, 0x33} {
		creator := newTestAddress(fill)
		assetID, err := engine.MintCollectible(creator)
		if err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
		if assetID != uint64(i+1) {
			t.Fatalf("expected asset id %d, got %d", i+1, assetID)
		}
		balance, err := engine.BalanceOf(creator, assetID)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("unexpected balance %s for asset %d", balance, assetID)
		}
		if got := state.sumBalances(assetID); got.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("conservation broken for asset %d: %s", assetID, got)
		}
	}
}

func TestMintEditionBoundsCopyCount(t *testing.T) {
	engine, _ := newTestEngine(t)
	creator := newTestAddress(0x04)

	for _, copies := range []uint32{0, 1, 6, 100} {
		if _, err := engine.MintEdition(creator, copies); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("copies=%d: expected ErrInvalidOperation, got %v", copies, err)
		}
	}

	assetID, err := engine.MintEdition(creator, 5)
	if err != nil {
		t.Fatalf("mint edition: %v", err)
	}
	supply, err := engine.TotalSupply(assetID)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("unexpected edition supply %s", supply)
	}
}

func TestTransferRequiresApproval(t *testing.T) {
	engine, _ := newTestEngine(t)
	owner := newTestAddress(0x05)
	operator := newTestAddress(0x06)
	recipient := newTestAddress(0x07)

	assetID, err := engine.MintCollectible(owner)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	err = engine.Transfer(operator, owner, recipient, assetID, big.NewInt(1))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := engine.SetApprovalForAll(owner, operator, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.Transfer(operator, owner, recipient, assetID, big.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	balance, err := engine.BalanceOf(recipient, assetID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected recipient balance %s", balance)
	}

	if err := engine.SetApprovalForAll(owner, operator, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	approved, err := engine.ApprovedForAll(owner, operator)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if approved {
		t.Fatal("grant should be revoked")
	}
}

func TestTransferRejectsOverdraw(t *testing.T) {
	engine, state := newTestEngine(t)
	owner := newTestAddress(0x08)
	recipient := newTestAddress(0x09)

	if _, err := engine.Claim(owner); err != nil {
		t.Fatalf("claim: %v", err)
	}
	err := engine.Transfer(owner, owner, recipient, CurrencyID, big.NewInt(50_001))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// The failed transfer must not move anything.
	if got := state.sumBalances(CurrencyID); got.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("conservation broken: %s", got)
	}
	balance, err := engine.BalanceOf(recipient, CurrencyID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("recipient should hold nothing, has %s", balance)
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	engine, _ := newTestEngine(t)
	owner := newTestAddress(0x0A)

	if _, err := engine.Claim(owner); err != nil {
		t.Fatalf("claim: %v", err)
	}
	err := engine.Transfer(owner, owner, newTestAddress(0x0B), CurrencyID, big.NewInt(0))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSelfTransferDoesNotMint(t *testing.T) {
	engine, state := newTestEngine(t)
	owner := newTestAddress(0x0D)

	if _, err := engine.Claim(owner); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := engine.Move(owner, owner, CurrencyID, big.NewInt(600)); err != nil {
		t.Fatalf("self move: %v", err)
	}
	balance, err := engine.BalanceOf(owner, CurrencyID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// The two legs cancel: the balance must be exactly the claim grant.
	if balance.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("self move changed balance to %s", balance)
	}
	if got := state.sumBalances(CurrencyID); got.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("conservation broken: %s", got)
	}
	// Funds are still validated even though nothing moves.
	err = engine.Move(owner, owner, CurrencyID, big.NewInt(50_001))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

type pauseAll struct{}

func (pauseAll) IsPaused(string) bool { return true }

func TestPausesBlockMutations(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.SetPauses(pauseAll{})

	if _, err := engine.Claim(newTestAddress(0x0C)); err == nil {
		t.Fatal("claim should fail while paused")
	}
	if _, err := engine.MintCollectible(newTestAddress(0x0C)); err == nil {
		t.Fatal("mint should fail while paused")
	}
}
