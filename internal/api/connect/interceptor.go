package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
)

// loggingInterceptor logs every handled call with its duration and outcome.
type loggingInterceptor struct {
	now func() time.Time
}

// NewLoggingInterceptor creates an interceptor that logs handled calls.
func NewLoggingInterceptor() connect.Interceptor {
	return &loggingInterceptor{now: time.Now}
}

func (i *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		start := i.now()
		res, err := next(ctx, req)
		i.log(req.Spec().Procedure, req.Peer().Addr, i.now().Sub(start), err)
		return res, err
	}
}

func (i *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := i.now()
		zlog.Debug().Msgf("RPC stream opened: procedure=%s peer=%s", conn.Spec().Procedure, conn.Peer().Addr)
		err := next(ctx, conn)
		i.log(conn.Spec().Procedure, conn.Peer().Addr, i.now().Sub(start), err)
		return err
	}
}

func (i *loggingInterceptor) log(procedure, peer string, elapsed time.Duration, err error) {
	if err == nil {
		zlog.Info().Msgf("RPC %s: peer=%s duration=%s", procedure, peer, elapsed)
		return
	}
	code := connect.CodeOf(err)
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeUnavailable:
		zlog.Error().Err(err).Msgf("RPC %s failed: code=%s peer=%s duration=%s", procedure, code, peer, elapsed)
	default:
		zlog.Warn().Err(err).Msgf("RPC %s rejected: code=%s peer=%s duration=%s", procedure, code, peer, elapsed)
	}
}

// HandlerOptions returns the options every service handler is built with.
func HandlerOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(Codec()),
		connect.WithInterceptors(NewLoggingInterceptor()),
	}
}
