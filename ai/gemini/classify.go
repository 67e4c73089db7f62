package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/docembed/ai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const providerName = "gemini"

// quotaReasons are googleapi error reasons that mean the quota is spent.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
	"billingNotEnabled":  true,
}

// classify converts a client library error into an *ai.ProviderError.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	perr := &ai.ProviderError{Provider: providerName, Kind: ai.KindUnknown, Err: err}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			perr.Kind = ai.KindCanceled
		} else {
			perr.Kind = ai.KindTimeout
		}
		return perr
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		perr.Kind = ai.KindInvalidInput
		return perr
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		perr.Status = gerr.Code
		perr.Kind = httpKind(gerr)
		return perr
	}

	if st, ok := status.FromError(err); ok {
		perr.Kind = grpcKind(st.Code())
	}
	return perr
}

func httpKind(gerr *googleapi.Error) ai.ErrorKind {
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return ai.KindQuotaExceeded
		}
	}
	switch gerr.Code {
	case http.StatusBadRequest, http.StatusNotFound:
		return ai.KindInvalidInput
	case http.StatusUnauthorized:
		return ai.KindUnauthorized
	case http.StatusForbidden:
		return ai.KindForbidden
	case http.StatusTooManyRequests:
		return ai.KindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ai.KindTimeout
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ai.KindUnavailable
	}
	return ai.KindUnknown
}

func grpcKind(code codes.Code) ai.ErrorKind {
	switch code {
	case codes.DeadlineExceeded:
		return ai.KindTimeout
	case codes.Canceled:
		return ai.KindCanceled
	case codes.Unavailable, codes.Internal, codes.Aborted:
		return ai.KindUnavailable
	case codes.ResourceExhausted:
		return ai.KindRateLimited
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange:
		return ai.KindInvalidInput
	case codes.Unauthenticated:
		return ai.KindUnauthorized
	case codes.PermissionDenied:
		return ai.KindForbidden
	}
	return ai.KindUnknown
}
