package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstream        = errors.New("upstream failure")
	ErrDecode          = errors.New("decode failed")
	ErrNoFundingCoin   = errors.New("no funding coin")
	ErrLockHeld        = errors.New("lock held")
)
