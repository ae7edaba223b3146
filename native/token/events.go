package token

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"blazemarket/core/types"
)

const (
	EventTypeMinted      = "token.minted"
	EventTypeClaimed     = "token.claimed"
	EventTypeTransferred = "token.transferred"
	EventTypeApproval    = "token.approval"
)

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewMintedEvent returns the canonical payload emitted when an asset run is
// minted to its creator.
func NewMintedEvent(creator [20]byte, assetID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeMinted, Attributes: map[string]string{
		"creator": hexAddr(creator),
		"assetId": strconv.FormatUint(assetID, 10),
		"amount":  amountString(amount),
	}}
}

// NewClaimedEvent returns the canonical payload emitted when an identity takes
// its one-time currency grant.
func NewClaimedEvent(claimer [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeClaimed, Attributes: map[string]string{
		"claimer": hexAddr(claimer),
		"amount":  amountString(amount),
	}}
}

// NewTransferredEvent returns the canonical payload emitted for every settled
// balance movement.
func NewTransferredEvent(from, to [20]byte, assetID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransferred, Attributes: map[string]string{
		"from":    hexAddr(from),
		"to":      hexAddr(to),
		"assetId": strconv.FormatUint(assetID, 10),
		"amount":  amountString(amount),
	}}
}

// NewApprovalEvent returns the canonical payload emitted when an operator
// grant changes.
func NewApprovalEvent(owner, operator [20]byte, approved bool) *types.Event {
	return &types.Event{Type: EventTypeApproval, Attributes: map[string]string{
		"owner":    hexAddr(owner),
		"operator": hexAddr(operator),
		"approved": strconv.FormatBool(approved),
	}}
}
