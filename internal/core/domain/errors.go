package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrTaskGone     = errors.New("task gone")
	ErrConflict     = errors.New("conflict")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

var (
	ErrUploadInProgress    = fmt.Errorf("%w: upload already in progress", ErrConflict)
	ErrNoPendingDuplicates = fmt.Errorf("%w: no pending duplicates", ErrConflict)
	ErrSequenceFinished    = fmt.Errorf("%w: duplicate sequence already finalized", ErrConflict)
	ErrClearNotConfirmed   = fmt.Errorf("%w: clear draft was not confirmed", ErrInvalidInput)
)
