package exchange

import (
	"context"
	"errors"
	"net"

	"github.com/adshao/go-binance/v2/common"
)

// ErrorKind classifies an exchange failure so callers can react without
// string-matching messages.
type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrNetwork           ErrorKind = "network"
	ErrExchange          ErrorKind = "exchange_rejection"
	ErrInsufficientFunds ErrorKind = "insufficient_funds"
	ErrNotFound          ErrorKind = "not_found"
	ErrUnknown           ErrorKind = "unknown"
)

// Binance futures error codes that map onto our taxonomy. Anything else
// from the API counts as a plain exchange rejection.
const (
	codeInsufficientBalance = -2018
	codeInsufficientMargin  = -2019
	codeOrderNotFound       = -2013
	codeNoSuchSymbol        = -1121
)

// Classify maps an arbitrary error from an exchange call onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeInsufficientBalance, codeInsufficientMargin:
			return ErrInsufficientFunds
		case codeOrderNotFound, codeNoSuchSymbol:
			return ErrNotFound
		default:
			return ErrExchange
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrNetwork
	}
	return ErrUnknown
}
