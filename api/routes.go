package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/api/handlers"
	"github.com/customeros/mailsync/api/middleware"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services"
)

const AppSource = "mailsync-api"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, accounts []*models.Account, apikey string, log logger.Logger) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.IMAPService))

	api := r.Group("/v1")
	api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: apikey,
	}))
	api.Use(middleware.CustomContextMiddleware(AppSource))
	api.Use(middleware.TracingMiddleware())
	{
		emails := api.Group("/emails")
		{
			emails.GET("", handlers.ListEmails(repos.EmailRepository, log))
			emails.GET("/search", handlers.SearchEmails(repos.EmailRepository, log))
			emails.GET("/:id", handlers.GetEmail(repos.EmailRepository, log))
			emails.POST("/:id/categorize", handlers.CategorizeEmail(repos.EmailRepository, s.AIService, log))
		}

		accountsGroup := api.Group("/accounts")
		{
			accountsGroup.GET("", handlers.ListAccounts(accounts, s.IMAPService))
			accountsGroup.GET("/sync-state", handlers.ListSyncStates(repos.SyncStateRepository, log))
			accountsGroup.POST("/sync", handlers.SyncAccounts(s.IMAPService))
			accountsGroup.POST("/:id/reconnect", handlers.ReconnectAccount(s.IMAPService, log))
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/test", handlers.TestWebhooks(s.WebhookService))
		}

		ai := api.Group("/ai")
		{
			ai.POST("/context", handlers.AddReplyContext(repos.ReplyContextRepository, log))
			ai.POST("/context/initialize", handlers.InitializeReplyContext(repos.ReplyContextRepository, log))
			ai.POST("/suggest-reply/:id", handlers.SuggestReply(repos.EmailRepository, repos.ReplyContextRepository, s.AIService, log))
		}
	}
}
