package market

import (
	"encoding/hex"
	"strconv"

	"blazemarket/core/types"
)

const (
	EventTypeListed = "market.listed"
	EventTypeSold   = "market.sold"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// NewListedEvent returns the canonical payload emitted when an asset is listed
// or relisted. The escrowed attribute distinguishes a fresh escrow transfer
// from an in-place relist by the current custodian.
func NewListedEvent(l *Listing, royaltyPercent uint8, escrowed bool) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: EventTypeListed, Attributes: attrs}
	}
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return &types.Event{Type: EventTypeListed, Attributes: attrs}
	}
	attrs["assetId"] = strconv.FormatUint(sanitized.AssetID, 10)
	attrs["seller"] = hexAddr(sanitized.Seller)
	attrs["price"] = sanitized.Price.String()
	attrs["royaltyPercent"] = strconv.FormatUint(uint64(royaltyPercent), 10)
	attrs["escrowed"] = strconv.FormatBool(escrowed)
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	return &types.Event{Type: EventTypeListed, Attributes: attrs}
}

// NewSoldEvent returns the canonical payload emitted when a purchase settles,
// carrying the exact split of the sale price.
func NewSoldEvent(r *Receipt) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: EventTypeSold, Attributes: attrs}
	}
	attrs["assetId"] = strconv.FormatUint(r.AssetID, 10)
	attrs["seller"] = hexAddr(r.Seller)
	attrs["buyer"] = hexAddr(r.Buyer)
	attrs["price"] = r.Price.String()
	attrs["fee"] = r.Fee.String()
	attrs["royaltiesPaid"] = r.RoyaltiesPaid.String()
	attrs["sellerProceeds"] = r.SellerProceeds.String()
	return &types.Event{Type: EventTypeSold, Attributes: attrs}
}
