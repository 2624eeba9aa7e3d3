package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	replyContextLimit = 5
	noContextReply    = "Unable to generate reply: No context available"
)

type replyContextRequest struct {
	Product        string `json:"product"`
	Agenda         string `json:"agenda"`
	MeetingLink    string `json:"meetingLink"`
	AdditionalInfo string `json:"additionalInfo"`
}

func AddReplyContext(repo interfaces.ReplyContextRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AddReplyContext")
		defer span.Finish()

		var request replyContextRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			errorResponse(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(request.Product) == "" || strings.TrimSpace(request.Agenda) == "" {
			errorResponse(c, http.StatusBadRequest, "Product and agenda are required")
			return
		}

		replyContext := &models.ReplyContext{
			Product:        request.Product,
			Agenda:         request.Agenda,
			MeetingLink:    request.MeetingLink,
			AdditionalInfo: request.AdditionalInfo,
		}
		if err := repo.Create(ctx, replyContext); err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error adding context: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Failed to add context")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Context added successfully",
			"data":    replyContext,
		})
	}
}

// InitializeReplyContext stores the default reply context.
func InitializeReplyContext(repo interfaces.ReplyContextRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "InitializeReplyContext")
		defer span.Finish()

		if err := repo.Create(ctx, models.DefaultReplyContext()); err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error initializing context: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Failed to initialize context")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Default context initialized",
		})
	}
}

// SuggestReply drafts a reply to a stored email from the most recent reply contexts.
func SuggestReply(index interfaces.EmailIndex, repo interfaces.ReplyContextRepository, generator interfaces.ReplyGenerator, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SuggestReply")
		defer span.Finish()

		id := c.Param("id")
		email, err := index.GetMessage(ctx, id)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusNotFound {
				errorResponse(c, status, "Email not found")
				return
			}
			tracing.TraceErr(span, err)
			errorResponse(c, status, "Failed to generate reply")
			return
		}

		contexts, err := repo.ListLatest(ctx, replyContextLimit)
		if err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error loading reply contexts: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Failed to generate reply")
			return
		}

		reply := noContextReply
		if len(contexts) == 0 {
			log.Warn("No reply context stored")
		} else {
			texts := make([]string, 0, len(contexts))
			for _, rc := range contexts {
				texts = append(texts, rc.Text())
			}
			reply, err = generator.GenerateReply(ctx, email, strings.Join(texts, "\n\n"))
			if err != nil {
				tracing.TraceErr(span, err)
				log.Errorf("Error suggesting reply for %s: %v", id, err)
				errorResponse(c, http.StatusInternalServerError, "Failed to generate reply")
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"emailId":        id,
				"suggestedReply": reply,
			},
		})
	}
}
