package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/common"
)

func logLines(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		out[line["msg"].(string)] = line
	}
	return out
}

// chain runs the logging and auth interceptors the way the daemon orders them.
func chain(ctx context.Context, logger *slog.Logger, handler grpc.UnaryHandler) (any, error) {
	provider := auth.NewStaticProvider([]common.TokenConfig{{Token: "tok-1", UserID: "t-1"}}, logger)
	info := &grpc.UnaryServerInfo{FullMethod: "/snapcheck.v1.BatchService/ListClasses"}
	authz := UnaryAuthInterceptor(provider, logger)
	return UnaryLoggingInterceptor(logger)(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		return authz(ctx, req, info, handler)
	})
}

func TestInterceptors_TagContextWithRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"authorization", "Bearer tok-1",
		RequestIDHeader, "req-42",
	))

	var seen context.Context
	resp, err := chain(ctx, logger, func(ctx context.Context, _ any) (any, error) {
		seen = ctx
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "req-42", common.RequestIDFromContext(seen))
	assert.Equal(t, "t-1", common.UserIDFromContext(seen))
	id, ok := IdentityFrom(seen)
	require.True(t, ok)
	assert.Equal(t, "t-1", id.UserID)

	call := logLines(t, &buf)["grpc.call"]
	require.NotNil(t, call)
	assert.Equal(t, "req-42", call["request_id"])
	assert.Equal(t, codes.OK.String(), call["code"])
}

func TestInterceptors_DeniedCallGetsGeneratedRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	called := false
	_, err := chain(context.Background(), logger, func(context.Context, any) (any, error) {
		called = true
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)

	lines := logLines(t, &buf)
	denied := lines["grpc.auth.denied"]
	require.NotNil(t, denied)
	rid, _ := denied["request_id"].(string)
	_, perr := uuid.Parse(rid)
	assert.NoError(t, perr)
	assert.Equal(t, rid, lines["grpc.call"]["request_id"])
}
