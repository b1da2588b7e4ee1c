package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateArticle is returned when tracking a URL that is already tracked.
	ErrDuplicateArticle = errors.New("article already tracked")
	// ErrUnknownArticle is returned when clicking a URL that was never tracked.
	ErrUnknownArticle = errors.New("article not tracked")
	// ErrMalformedSnapshot is returned when a stored keyword snapshot cannot be decoded.
	ErrMalformedSnapshot = errors.New("malformed keyword snapshot")
)

// TxError reports a failed write transaction. Nothing from the transaction
// was committed.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }
