package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

// UnaryInterceptor copies the request id and owner from incoming metadata into
// the context and logs each call.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var requestID, owner string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			requestID = first(md.Get(common.HeaderRequestID))
			owner = first(md.Get(common.HeaderOwner))
		}
		ctx = withRequest(ctx, requestID, owner, logger)

		start := time.Now()
		resp, err := handler(ctx, req)
		common.LoggerFromContext(ctx, logger).Debug("grpc.request",
			"method", info.FullMethod,
			"code", common.GRPCCode(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// requestMiddleware is the HTTP twin of UnaryInterceptor.
func requestMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withRequest(r.Context(), r.Header.Get(common.HeaderRequestID), r.Header.Get(common.HeaderOwner), logger)
		w.Header().Set(common.HeaderRequestID, common.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withRequest(ctx context.Context, requestID, owner string, logger *slog.Logger) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = common.WithRequestID(ctx, requestID)
	log := logger.With("request_id", requestID)
	if owner = strings.TrimSpace(owner); owner != "" {
		ctx = common.WithOwner(ctx, owner)
		log = log.With("owner", owner)
	}
	return common.WithLogger(ctx, log)
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// ownerOf resolves the owner a request acts for: the caller's, else the
// configured default.
func ownerOf(ctx context.Context, fallback string) (string, error) {
	if o := common.OwnerFromContext(ctx); o != "" {
		return o, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", common.InvalidArgumentError("owner is required (" + common.HeaderOwner + " header)")
}
