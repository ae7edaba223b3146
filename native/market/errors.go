package market

import "errors"

var (
	ErrNotOwner          = errors.New("market: caller does not hold the asset")
	ErrInvalidPrice      = errors.New("market: price must be positive")
	ErrInvalidRoyalty    = errors.New("market: royalty percent out of range")
	ErrNotListed         = errors.New("market: asset is not listed for sale")
	ErrInsufficientFunds = errors.New("market: buyer balance below listing price")
	ErrSelfPurchase      = errors.New("market: seller cannot buy own listing")
	ErrUnauthorized      = errors.New("market: marketplace not approved as operator")
	ErrInvalidOperation  = errors.New("market: operation not permitted")
)
