package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain error")))
	assert.Equal(t, KindRateLimit, KindOf(New(KindRateLimit, "slow down")))

	// Classification survives wrapping
	wrapped := fmt.Errorf("fetching followers: %w", New(KindChallenge, "checkpoint"))
	assert.Equal(t, KindChallenge, KindOf(wrapped))
	assert.True(t, IsChallenge(wrapped))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(KindNetwork))
	assert.True(t, Retryable(KindRateLimit))
	assert.False(t, Retryable(KindAuth))
	assert.False(t, Retryable(KindChallenge))
	assert.False(t, Retryable(KindSessionExpired))
	assert.False(t, Retryable(KindNotFound))
	assert.False(t, Retryable(KindUnknown))
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want Kind
	}{
		{"ok", http.StatusOK, "", ""},
		{"unauthorized", http.StatusUnauthorized, "", KindSessionExpired},
		{"forbidden login required", http.StatusForbidden, `{"message":"login_required"}`, KindSessionExpired},
		{"forbidden plain", http.StatusForbidden, "", KindAuth},
		{"not found", http.StatusNotFound, "", KindNotFound},
		{"too many requests", http.StatusTooManyRequests, "", KindRateLimit},
		{"challenge under 400", http.StatusBadRequest, `{"message":"challenge_required"}`, KindChallenge},
		{"checkpoint under 403", http.StatusForbidden, `{"error_type":"checkpoint_required"}`, KindChallenge},
		{"two factor", http.StatusBadRequest, `{"message":"two_factor_required"}`, KindChallenge},
		{"please wait", http.StatusBadRequest, `{"message":"Please wait a few minutes before you try again."}`, KindRateLimit},
		{"feedback required", http.StatusBadRequest, `{"message":"feedback_required"}`, KindRateLimit},
		{"server error", http.StatusBadGateway, "", KindNetwork},
		{"teapot", http.StatusTeapot, "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(tt.code, []byte(tt.body))
			if tt.want == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestClassifyStatusRateLimitHint(t *testing.T) {
	err := ClassifyStatus(http.StatusTooManyRequests, nil)
	require.NotNil(t, err)
	assert.Equal(t, defaultRetryAfter, err.RetryAfter)

	err = WithRetryAfterHeader(err, "120")
	assert.Equal(t, 2*time.Minute, err.RetryAfter)
	assert.Equal(t, 2*time.Minute, RetryAfterHint(err))

	// Garbage header keeps the default
	err = ClassifyStatus(http.StatusTooManyRequests, nil)
	err = WithRetryAfterHeader(err, "soon")
	assert.Equal(t, defaultRetryAfter, err.RetryAfter)
}

func TestClassifyPageText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"robot check", "Are you a robot? Complete the check below.", KindChallenge},
		{"verification code", "Enter the verification code we sent to your email", KindChallenge},
		{"rate limited", "Please wait a few minutes before you try again.", KindRateLimit},
		{"logged out", "Log in to Instagram to continue", KindSessionExpired},
		{"gone account", "Sorry, this page isn't available.", KindNotFound},
		{"healthy page", "Following 321 followers 123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyPageText(tt.text)
			if tt.want == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
		})
	}
}

func TestErrorString(t *testing.T) {
	withCode := &Error{Kind: KindRateLimit, Message: "slow down", Code: 429}
	assert.Equal(t, "rate_limit error (code 429): slow down", withCode.Error())

	noCode := &Error{Kind: KindChallenge, Message: "verify"}
	assert.Equal(t, "challenge error: verify", noCode.Error())
}
