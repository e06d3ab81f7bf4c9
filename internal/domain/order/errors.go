package order

import "errors"

var (
	ErrOrderNotFound         = errors.New("medical order not found")
	ErrLineNotFound          = errors.New("medical order line not found")
	ErrAlreadyClaimed        = errors.New("medical order has already been claimed")
	ErrInvalidLineTransition = errors.New("invalid treatment status transition")
)
