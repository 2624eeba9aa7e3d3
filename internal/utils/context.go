package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

type CustomContext struct {
	AppSource string
	AccountID string
	RequestID string
}

type customContextKeyType string

const customContextKey customContextKeyType = "CUSTOM_CONTEXT"

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	customContext := &CustomContext{
		AppSource: appSource,
		AccountID: c.Query("accountId"),
		RequestID: c.GetHeader("X-Request-ID"),
	}
	return WithCustomContext(c.Request.Context(), customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetAccountIDFromContext(ctx context.Context) string {
	return GetContext(ctx).AccountID
}

func GetRequestIDFromContext(ctx context.Context) string {
	return GetContext(ctx).RequestID
}

// SetAccountIDInContext returns a derived context; the parent's CustomContext is not mutated.
func SetAccountIDInContext(ctx context.Context, accountID string) context.Context {
	customContext := *GetContext(ctx)
	customContext.AccountID = accountID
	return WithCustomContext(ctx, &customContext)
}

func SetAppSourceInContext(ctx context.Context, appSource string) context.Context {
	customContext := *GetContext(ctx)
	customContext.AppSource = appSource
	return WithCustomContext(ctx, &customContext)
}
