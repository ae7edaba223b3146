package token

import "errors"

var (
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrUnauthorized        = errors.New("token: operator not approved")
	ErrAlreadyClaimed      = errors.New("token: share of tokens already claimed")
	ErrInvalidOperation    = errors.New("token: copy count out of allowed range")
	ErrSupplyExists        = errors.New("token: currency supply already initialised")
)
