package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// ErrConcurrencyConflict marks a transaction that kept losing to concurrent writers.
var ErrConcurrencyConflict = errors.New("concurrent transaction conflict")

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the constraint must also appear in the message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	if pkgerrors.PGCode(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsRetryableConflict reports postgres errors that are safe to retry as a whole transaction.
func IsRetryableConflict(err error) bool {
	switch pkgerrors.PGCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}

// TxError classifies an error returned from a transaction body. Typed errors pass
// through, exhausted conflict retries become CodeConcurrency, anything else is a
// dependency failure described by message.
func TxError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, message)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
