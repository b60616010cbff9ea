package errors

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const internalMessage = "internal error"

// Map converts service/infra errors into gRPC status errors.
// Keeps the handlers clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	msg := PublicMessage(err)
	switch KindOf(err) {
	case KindInvalidInput, KindInvalidOperation:
		return status.Error(codes.InvalidArgument, msg)
	case KindNotFound:
		return status.Error(codes.NotFound, msg)
	case KindAlreadyExists:
		return status.Error(codes.AlreadyExists, msg)
	case KindQuotaExceeded:
		st := status.New(codes.PermissionDenied, msg)
		withDetail, detailErr := st.WithDetails(&errdetails.QuotaFailure{
			Violations: []*errdetails.QuotaFailure_Violation{{
				Subject:     "daily_swipes",
				Description: msg,
			}},
		})
		if detailErr != nil {
			return st.Err()
		}
		return withDetail.Err()
	case KindTransient:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// HTTPStatus picks the REST status code for a kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindInvalidOperation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text a caller may see. Internal failures never leak
// their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}

	switch KindOf(err) {
	case KindNotFound:
		return "Record not found"
	case KindAlreadyExists:
		return "Record already exists"
	case KindTransient:
		return "Temporary failure, please retry"
	}
	return internalMessage
}
