// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/poiesic/docembed/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerName = "openai"

// quotaCodes are the OpenAI error codes that mean spending is exhausted.
// They arrive with status 429 and must not be confused with rate limiting.
var quotaCodes = map[string]bool{
	"insufficient_quota":         true,
	"billing_hard_limit_reached": true,
	"billing_not_active":         true,
}

// classify converts err into an *ai.ProviderError using, in order: the
// caller's context, what the HTTP exchange recorded, and langchaingo's own
// error mapping.
func classify(ctx context.Context, obs *observation, err error) error {
	if err == nil {
		return nil
	}
	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	perr := &ai.ProviderError{Provider: providerName, Kind: ai.KindUnknown, Err: err}

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		perr.Kind = ai.KindCanceled
		return perr
	case ctx.Err() != nil:
		perr.Kind = ai.KindTimeout
		return perr
	}

	if obs != nil {
		status, code, errType, transportErr := obs.snapshot()
		switch {
		case transportErr != nil:
			perr.Kind = transportKind(transportErr)
			return perr
		case status != 0:
			perr.Status = status
			perr.Kind = statusKind(status, code, errType)
			return perr
		}
	}

	perr.Kind = codeKind(openai.MapError(err))
	return perr
}

func transportKind(err error) ai.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ai.KindCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.KindTimeout
	}
	return ai.KindNetwork
}

func statusKind(status int, code, errType string) ai.ErrorKind {
	if quotaCodes[code] || quotaCodes[errType] {
		return ai.KindQuotaExceeded
	}
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ai.KindInvalidInput
	case http.StatusUnauthorized:
		return ai.KindUnauthorized
	case http.StatusForbidden:
		return ai.KindForbidden
	case http.StatusPaymentRequired:
		return ai.KindQuotaExceeded
	case http.StatusTooManyRequests:
		return ai.KindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ai.KindTimeout
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ai.KindUnavailable
	}
	return ai.KindUnknown
}

// codeKind maps langchaingo's standardized error codes.
func codeKind(err error) ai.ErrorKind {
	var lerr *llms.Error
	if !errors.As(err, &lerr) {
		return ai.KindUnknown
	}
	switch lerr.Code {
	case llms.ErrCodeAuthentication:
		return ai.KindUnauthorized
	case llms.ErrCodeRateLimit:
		return ai.KindRateLimited
	case llms.ErrCodeInvalidRequest, llms.ErrCodeResourceNotFound, llms.ErrCodeTokenLimit, llms.ErrCodeContentFilter:
		return ai.KindInvalidInput
	case llms.ErrCodeTimeout:
		return ai.KindTimeout
	case llms.ErrCodeCanceled:
		return ai.KindCanceled
	case llms.ErrCodeQuotaExceeded:
		return ai.KindQuotaExceeded
	case llms.ErrCodeProviderUnavailable:
		return ai.KindUnavailable
	}
	return ai.KindUnknown
}
