package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestCtxKey struct{}
type userCtxKey struct{}
type projectCtxKey struct{}

// WithRequestID adds the HTTP request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithUserID adds the authenticated user ID to context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

// UserIDFromContext extracts the user ID, or "" when absent.
func UserIDFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userCtxKey{}).(string); ok {
		return u
	}
	return ""
}

// WithProjectID adds the project scope to context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectCtxKey{}, projectID)
}

// ProjectIDFromContext extracts the project ID, or "" when absent.
func ProjectIDFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(projectCtxKey{}).(string); ok {
		return p
	}
	return ""
}

// ContextFields extracts correlation fields from context. Absent values
// produce no field.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID := UserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if projectID := ProjectIDFromContext(ctx); projectID != "" {
		fields = append(fields, zap.String("project_id", projectID))
	}
	return fields
}
