package domain

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds surfaced by the core. Callers classify with the Is* helpers;
// intermediate layers add context with errors.Wrap and never change the kind.
var (
	// ErrDecode marks an unreadable source image.
	ErrDecode = stderrors.New("image decode failed")

	// ErrConnection marks a store that stayed unavailable after one
	// reconnect attempt.
	ErrConnection = stderrors.New("storage connection unavailable")

	// ErrStorage marks a failed read/write transaction.
	ErrStorage = stderrors.New("storage transaction failed")

	// ErrQuota is the quota-exceeded special case of ErrStorage, kept
	// distinct so the operator gets an actionable message.
	ErrQuota = fmt.Errorf("storage quota exceeded: %w", ErrStorage)

	// ErrValidation marks input rejected before any mutation.
	ErrValidation = stderrors.New("validation failed")
)

func IsDecodeError(err error) bool     { return stderrors.Is(err, ErrDecode) }
func IsConnectionError(err error) bool { return stderrors.Is(err, ErrConnection) }
func IsStorageError(err error) bool    { return stderrors.Is(err, ErrStorage) }
func IsQuotaError(err error) bool      { return stderrors.Is(err, ErrQuota) }
func IsValidationError(err error) bool { return stderrors.Is(err, ErrValidation) }

// DecodeErrorf wraps cause as a DecodeError with context.
func DecodeErrorf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(fmt.Errorf("%w: %v", ErrDecode, cause), format, args...)
}

// ConnectionErrorf wraps cause as a ConnectionError with context.
func ConnectionErrorf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(fmt.Errorf("%w: %v", ErrConnection, cause), format, args...)
}

// StorageErrorf wraps cause as a StorageError, promoting quota failures to
// ErrQuota.
func StorageErrorf(cause error, format string, args ...interface{}) error {
	kind := ErrStorage
	if isQuotaCause(cause) {
		kind = ErrQuota
	}
	return errors.Wrapf(fmt.Errorf("%w: %v", kind, cause), format, args...)
}

// ValidationErrorf builds a ValidationError.
func ValidationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func isQuotaCause(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, probe := range []string{"no space left", "disk quota", "file too large"} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
