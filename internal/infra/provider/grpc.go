package provider

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"toolgate/internal/domain/invocation"
)

// GRPCCall is the transport-level function a gRPC invoker executes, typically
// a closure over a generated client stub.
type GRPCCall func(ctx context.Context, args any) (any, error)

// GRPCInvoker wraps a gRPC call so its status failures arrive at the gate as
// *invocation.ProviderError with the status code mapped onto its HTTP
// equivalent and RetryInfo wait hints extracted.
func GRPCInvoker(dependency, operation string, call GRPCCall) invocation.Invoker {
	return func(ctx context.Context, args any) (any, error) {
		result, err := call(ctx, args)
		if err != nil {
			return nil, NormalizeGRPCError(dependency, operation, err)
		}
		return result, nil
	}
}

// NormalizeGRPCError converts a gRPC failure into a *invocation.ProviderError.
// Status errors carry the code's name (e.g. "ResourceExhausted") so the
// configured classification sets can match on it, the HTTP-equivalent status
// code for the default classification rules, and any RetryInfo detail as an
// explicit wait hint. Non-status errors pass through with no status, leaving
// transport-level classification to the error chain.
func NormalizeGRPCError(dependency, operation string, err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return &invocation.ProviderError{
			Dependency: dependency,
			Operation:  operation,
			Err:        err,
		}
	}

	return &invocation.ProviderError{
		Dependency: dependency,
		Operation:  operation,
		Name:       st.Code().String(),
		StatusCode: grpcStatusCode(st.Code()),
		RetryAfter: retryInfoDelay(st),
		Err:        err,
	}
}

// retryInfoDelay extracts the server's requested backoff from a RetryInfo
// status detail. Zero means the status carried none.
func retryInfoDelay(st *status.Status) time.Duration {
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.RetryInfo); ok {
			if delay := info.GetRetryDelay(); delay != nil {
				return delay.AsDuration()
			}
		}
	}
	return 0
}

// grpcStatusCode maps a gRPC code onto the HTTP status classification
// understands, following the standard gRPC-to-HTTP mapping. ResourceExhausted
// lands on 429 so it classifies as throttling; Unavailable, DeadlineExceeded,
// and Internal land on 5xx so they classify as transient; the remaining
// codes land on 4xx and classify as fatal unless the code name is listed in
// a configured category set.
func grpcStatusCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499 // client closed request
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Aborted:
		return http.StatusConflict
	case codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	default:
		// Unknown, Internal, DataLoss
		return http.StatusInternalServerError
	}
}
