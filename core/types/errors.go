package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ConfigurationError aborts a run before any transaction is submitted.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration: "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigurationError with a formatted reason.
func NewConfigError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SubmissionError is a rejection before the transaction reached a block:
// gas estimation, nonce lookup, signing or the node refusing it.
type SubmissionError struct {
	Recipient common.Address
	Stage     string
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit to %s: %s: %v", e.Recipient.Hex(), e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError means the node accepted the transaction but no
// receipt was seen in time. The outcome is unknown, not failed.
type ConfirmationTimeoutError struct {
	TxHash  common.Hash
	Timeout time.Duration
	Err     error
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("tx %s not confirmed within %s (outcome unknown)", e.TxHash.Hex(), e.Timeout)
}

func (e *ConfirmationTimeoutError) Unwrap() error { return e.Err }

// ContractRevertError is an on-chain rejection. TxHash is zero when the
// revert was detected during gas estimation.
type ContractRevertError struct {
	TxHash common.Hash
	Reason string
}

func (e *ContractRevertError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "no reason given"
	}
	if e.TxHash == (common.Hash{}) {
		return "execution reverted: " + reason
	}
	return fmt.Sprintf("tx %s reverted: %s", e.TxHash.Hex(), reason)
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// StatusOf maps an attempt error onto the result status it produces.
func StatusOf(err error) Status {
	if err == nil {
		return StatusConfirmed
	}
	var timeout *ConfirmationTimeoutError
	if errors.As(err, &timeout) {
		return StatusUnknown
	}
	return StatusFailed
}

// TxHashOf extracts the transaction hash carried by an attempt error, if any.
func TxHashOf(err error) common.Hash {
	var timeout *ConfirmationTimeoutError
	if errors.As(err, &timeout) {
		return timeout.TxHash
	}
	var revert *ContractRevertError
	if errors.As(err, &revert) {
		return revert.TxHash
	}
	return common.Hash{}
}
