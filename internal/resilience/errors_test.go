package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid api key"), false},
		{"explicit", NewTransientError(errors.New("overloaded"), 529), true},
		{"eris wrapped", eris.Wrap(NewTransientError(errors.New("rate limited"), 429), "review: message"), true},
		{"net timeout", fmt.Errorf("post: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message pattern", errors.New("write tcp 10.0.0.1: broken pipe"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientStatus(code), "status %d", code)
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 413} {
		assert.False(t, IsTransientStatus(code), "status %d", code)
	}
	assert.True(t, IsTransientStatus(http.StatusTooManyRequests))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("busy")
	te := NewTransientError(inner, 503)

	assert.Equal(t, "busy", te.Error())
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 503, te.StatusCode)
}
