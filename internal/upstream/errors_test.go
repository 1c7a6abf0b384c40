package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusForbidden, KindForbidden},
		{http.StatusTooManyRequests, KindForbidden},
		{http.StatusInternalServerError, KindHTTP},
		{http.StatusBadGateway, KindHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := HTTPStatus("github", tt.status, "body")
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindParse, KindOf(fmt.Errorf("wrapped: %w", Parse("coingecko", errors.New("bad json")))))
	assert.Equal(t, KindMissingCredential, KindOf(MissingCredential("coingecko")))
	assert.Equal(t, KindNetwork, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindNetwork, KindOf(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestError_Unwrap(t *testing.T) {
	err := MissingCredential("coingecko")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "coingecko")
}

func TestResult(t *testing.T) {
	ok := OK(42)
	assert.False(t, ok.Failed())
	assert.Equal(t, KindNone, ok.Kind())
	assert.Equal(t, 42, ok.Or(0))

	failed := Fail[int](HTTPStatus("solana", http.StatusNotFound, ""))
	assert.True(t, failed.Failed())
	assert.Equal(t, KindNotFound, failed.Kind())
	assert.Equal(t, 7, failed.Or(7))
}
