package common

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "t-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "t-1", UserIDFromContext(ctx))

	LoggerFromContext(ctx, base).Info("export.xlsx.failed")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "t-1", line["user_id"])

	assert.Same(t, base, LoggerFromContext(context.Background(), base))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.NotNil(t, LoggerFromContext(ctx, nil))
}
