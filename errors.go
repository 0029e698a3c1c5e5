package hxdyn

import (
	"errors"

	"github.com/pthm/hxdyn/lib/encoding"
)

// Sentinel errors. Errors from asynchronous work never reach the caller;
// they are delivered as FailedDetail.Cause on EventContentFailed.
var (
	ErrTransport            = errors.New("hxdyn: transport failure")
	ErrUnacceptableResponse = errors.New("hxdyn: unacceptable response")
	ErrRetriesExhausted     = errors.New("hxdyn: retries exhausted")
	ErrNoPath               = errors.New("hxdyn: content area has no path")
	ErrInvalidSelector      = errors.New("hxdyn: invalid selector")
)

// Encoding errors, re-exported for callers building suffixes.
var (
	ErrInvalidFormat    = encoding.ErrInvalidFormat
	ErrSignatureInvalid = encoding.ErrSignatureInvalid
	ErrDecryptFailed    = encoding.ErrDecryptFailed
)

// IsTransport checks if err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRetriesExhausted checks if err reports a load that ran out of retries.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}
