package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_Retryable(t *testing.T) {
	retryable := []ErrorKind{KindTimeout, KindNetwork, KindRateLimited, KindUnavailable, KindUnknown}
	for _, k := range retryable {
		assert.True(t, k.Retryable(), "%s should be retryable", k)
	}

	fatal := []ErrorKind{KindInvalidInput, KindUnauthorized, KindForbidden, KindQuotaExceeded, KindCanceled}
	for _, k := range fatal {
		assert.False(t, k.Retryable(), "%s should not be retryable", k)
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "quota_exceeded", KindQuotaExceeded.String())
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
}

func TestKindOf(t *testing.T) {
	pe := NewProviderError("openai", KindQuotaExceeded, errors.New("insufficient_quota"))
	wrapped := fmt.Errorf("batch 2: %w", pe)

	assert.Equal(t, KindQuotaExceeded, KindOf(wrapped))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindCanceled, KindOf(context.Canceled))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(NewProviderError("openai", KindRateLimited, errors.New("slow down"))))
	assert.False(t, IsRetryable(NewProviderError("openai", KindUnauthorized, errors.New("bad key"))))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestProviderError_Error(t *testing.T) {
	pe := &ProviderError{Kind: KindRateLimited, Provider: "openai", Status: 429, Err: errors.New("too many")}
	assert.Equal(t, "openai provider error (rate_limited, status 429): too many", pe.Error())

	pe.Status = 0
	assert.Equal(t, "openai provider error (rate_limited): too many", pe.Error())
}
