package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/showtime/internal/app/repertoire"
)

// toConnectError maps repertoire errors to Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repertoire.ErrValidation), errors.Is(err, repertoire.ErrInvalidImport):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, repertoire.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, repertoire.ErrNotConfigured):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, repertoire.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// respond wraps msg or maps err.
func respond[T any](msg *T, err error) (*connect.Response[T], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(msg), nil
}
