package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrMetadataMismatch       = errors.New("metadata does not match transaction type")
	ErrReasonRequired         = errors.New("reason is required")
	ErrEmptyMemberList        = errors.New("member list must not be empty")
	ErrBatchTooLarge          = errors.New("import batch exceeds maximum size")
	ErrEmptyBatch             = errors.New("import batch must not be empty")
	ErrCharacterNotFound      = errors.New("character not found")
	ErrAmbiguousCharacter     = errors.New("multiple characters share that name, pass an explicit character id")
	ErrInvalidRequest         = errors.New("invalid request")
)

// InsufficientBalanceError carries the amounts a rejected spend needs for
// its user-facing message. It unwraps to ErrInsufficientBalance so callers
// can keep matching with errors.Is.
type InsufficientBalanceError struct {
	Current  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Current, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }
