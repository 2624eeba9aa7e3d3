package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
)

// ListEmails searches the index and returns a page of results with pagination info.
func ListEmails(index interfaces.EmailIndex, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ListEmails")
		defer span.Finish()

		query, validation := parseSearchQuery(c)
		if validation.HasErrors() {
			validationResponse(c, validation)
			return
		}

		result, err := index.SearchMessages(ctx, query)
		if err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error getting emails: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Failed to fetch emails")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    result.Messages,
			"pagination": gin.H{
				"page":  query.Page,
				"limit": query.Limit,
				"total": result.Total,
				"pages": pages(result.Total, query.Limit),
			},
		})
	}
}

func SearchEmails(index interfaces.EmailIndex, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SearchEmails")
		defer span.Finish()

		query, validation := parseSearchQuery(c)
		if validation.HasErrors() {
			validationResponse(c, validation)
			return
		}

		result, err := index.SearchMessages(ctx, query)
		if err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error searching emails: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Search failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    result.Messages,
			"total":   result.Total,
		})
	}
}

func GetEmail(index interfaces.EmailIndex, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "GetEmail")
		defer span.Finish()

		email, err := index.GetMessage(ctx, c.Param("id"))
		if err != nil {
			status := statusFor(err)
			if status == http.StatusNotFound {
				errorResponse(c, status, "Email not found")
				return
			}
			tracing.TraceErr(span, err)
			log.Errorf("Error getting email by ID: %v", err)
			errorResponse(c, status, "Failed to fetch email")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": email})
	}
}

// CategorizeEmail re-runs classification on a stored email and saves the result.
func CategorizeEmail(index interfaces.EmailIndex, classifier interfaces.Classifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CategorizeEmail")
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
			errorResponse(c, status, "Categorization failed")
			return
		}

		category := classifier.Classify(ctx, email)
		if err := index.UpdateMessage(ctx, id, map[string]interface{}{"category": category}); err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("Error categorizing email %s: %v", id, err)
			errorResponse(c, http.StatusInternalServerError, "Categorization failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"category": category}})
	}
}
