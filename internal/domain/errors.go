package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")

	// Stake input and configuration errors. These are raised before a
	// projection is computed; the reward engine itself never fails.
	ErrInvalidPrincipal        = errors.New("invalid principal")
	ErrInvalidTierSelection    = errors.New("invalid tier selection")
	ErrInvalidAPYConfiguration = errors.New("invalid apy configuration")
	ErrUnknownAsset            = errors.New("unknown asset")
	ErrBelowMinimum            = errors.New("amount below tier minimum")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInvalidAddress          = errors.New("invalid wallet address")
)
