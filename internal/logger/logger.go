package logger

import (
	"context"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/auth"
	httpx "github.com/nluhub/nluhub/internal/http"
	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

var _ connect.Interceptor = (*ConnectRequests)(nil)

// ConnectRequests logs every unary RPC with its procedure, caller, outcome and duration.
type ConnectRequests struct {
	logger zerolog.Logger
}

func NewConnectRequests(logger zerolog.Logger) *ConnectRequests {
	return &ConnectRequests{logger: logger}
}

func (c *ConnectRequests) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return connect.UnaryFunc(func(
		ctx context.Context,
		req connect.AnyRequest,
	) (connect.AnyResponse, error) {
		started := time.Now()

		logCtx := c.logger.With().
			Str("procedure", req.Spec().Procedure).
			Str("protocol", req.Peer().Protocol).
			Str("addr", req.Peer().Addr)
		if clientIP := httpx.ClientIPFromContext(ctx); clientIP != "" {
			logCtx = logCtx.Str("client_ip", clientIP)
		}
		if principalID := auth.PrincipalFromContext(ctx); principalID != uuid.Nil {
			logCtx = logCtx.Str("principal_id", principalID.String())
		}
		ctx = logCtx.Logger().WithContext(ctx)

		resp, err := next(ctx, req)

		if err != nil {
			code := connect.CodeOf(err)
			event := zerolog.Ctx(ctx).Warn()
			if code == connect.CodeInternal || code == connect.CodeUnknown {
				event = zerolog.Ctx(ctx).Error()
			}
			event.
				Err(err).
				Str("code", code.String()).
				Dur("duration", time.Since(started)).
				Msg("rpc call")

			return resp, err
		}

		zerolog.Ctx(ctx).Info().
			Dur("duration", time.Since(started)).
			Msg("rpc call")

		return resp, err
	})
}

func (c *ConnectRequests) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (c *ConnectRequests) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
