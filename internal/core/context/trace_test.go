package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTraceContext_KeepsClientRequestID(t *testing.T) {
	tc := NewTraceContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", tc.RequestID)
	assert.NotEmpty(t, tc.TraceID)

	generated := NewTraceContext(context.Background(), "")
	assert.NotEmpty(t, generated.RequestID)
}

func TestNewTraceContext_UsesSpanTraceID(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	tc := NewTraceContext(ctx, "")
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tc.TraceID)
}

func TestUserContext_Permissions(t *testing.T) {
	ctx := WithUser(context.Background(), &UserContext{Role: "admin", Permissions: []string{"payments:read"}})

	user := GetUser(ctx)
	require.NotNil(t, user)
	assert.True(t, user.HasPermission("payments:read"))
	assert.False(t, user.HasPermission("settings:write"))
	assert.Nil(t, GetUser(context.Background()))

	super := &UserContext{Role: "super_admin"}
	assert.True(t, super.HasPermission("admins:manage"))
}
