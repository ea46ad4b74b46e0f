package errors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrConcurrentOperation = errors.New("concurrent operation in progress")
	ErrDuplicateReference  = errors.New("duplicate earn reference")
	ErrDataIntegrity       = errors.New("ledger data integrity violation")
	ErrIntegrityHold       = errors.New("member mutations halted pending manual review")
	ErrUnknownTier         = errors.New("unknown tier")
)
