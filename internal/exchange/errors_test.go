package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: i/o timeout" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrNone},
		{"margin", &common.APIError{Code: -2019, Message: "Margin is insufficient."}, ErrInsufficientFunds},
		{"balance", &common.APIError{Code: -2018, Message: "Balance is insufficient."}, ErrInsufficientFunds},
		{"order missing", &common.APIError{Code: -2013, Message: "Order does not exist."}, ErrNotFound},
		{"bad symbol", &common.APIError{Code: -1121, Message: "Invalid symbol."}, ErrNotFound},
		{"other api", &common.APIError{Code: -4003, Message: "Quantity less than zero."}, ErrExchange},
		{"wrapped api", fmt.Errorf("create order: %w", &common.APIError{Code: -2019}), ErrInsufficientFunds},
		{"net", fakeNetError{}, ErrNetwork},
		{"deadline", context.DeadlineExceeded, ErrNetwork},
		{"plain", errors.New("boom"), ErrUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
