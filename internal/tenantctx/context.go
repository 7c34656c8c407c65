// Package tenantctx carries the tenant and actor identity resolved by the
// (external) authentication layer through every ledger call.
package tenantctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type tenantKey struct{}
type actorKey struct{}

// WithTenantID stores the tenant ID in the context.
func WithTenantID(ctx context.Context, tenantID snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantIDFromContext returns the tenant ID from context, if set.
func TenantIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(tenantKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

// WithActor stores the acting identity (user ID or "system") in the context.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext returns the actor ID from context, defaulting to "system"
// for background jobs that never pass through the auth layer.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return "system"
	}
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
