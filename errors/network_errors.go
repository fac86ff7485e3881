package errors

import (
	"github.com/mezonai/powchain/jsonx"
)

// NetworkErrorCode represents standardized error codes returned by the node API
type NetworkErrorCode string

const (
	// General errors
	ErrCodeInternal         NetworkErrorCode = "internal_error"
	ErrCodeMethodNotAllowed NetworkErrorCode = "method_not_allowed"

	// Validation errors
	ErrCodeInvalidRequest     NetworkErrorCode = "invalid_request"
	ErrCodeInvalidTransaction NetworkErrorCode = "invalid_transaction"
	ErrCodeInvalidAccount     NetworkErrorCode = "invalid_account"

	// Chain errors
	ErrCodeStaleTip      NetworkErrorCode = "stale_tip"
	ErrCodeMiningAborted NetworkErrorCode = "mining_aborted"
)

// NetworkError represents a standardized API error
type NetworkError struct {
	Code    NetworkErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	err, _ := jsonx.Marshal(NetworkError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest     = "Request format is invalid"
	ErrMsgInvalidTransaction = "Transaction requires from, to and amount"
	ErrMsgInvalidAccount     = "Query parameter 'account' is required"
	ErrMsgMethodNotAllowed   = "Method not allowed"
	ErrMsgStaleTip           = "Chain tip moved while mining, try again"
	ErrMsgMiningAborted      = "Mining was cancelled"
	ErrMsgInternal           = "Server error, please try again"
)

// NewError creates a new NetworkError and returns it as error interface
func NewError(code NetworkErrorCode, message string) error {
	return &NetworkError{
		Code:    code,
		Message: message,
	}
}
