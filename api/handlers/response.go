package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "github.com/customeros/mailsync/api/errors"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/utils"
)

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mailerrors.ErrEmailNotFound), errors.Is(err, mailerrors.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, mailerrors.ErrConnection):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseSearchQuery reads q, accountId, folder, category, from, to, page and limit.
func parseSearchQuery(c *gin.Context) (dto.SearchQuery, *apierrors.MultiErrors) {
	validation := apierrors.NewMultiErrors()
	query := dto.SearchQuery{
		Query:     strings.TrimSpace(c.Query("q")),
		AccountID: c.Query("accountId"),
		Folder:    c.Query("folder"),
	}

	if raw := c.Query("category"); raw != "" {
		category := enum.EmailCategory(raw)
		if !category.IsValid() {
			validation.Add("category", "unknown category", nil)
		}
		query.Category = category
	}

	var err error
	if query.From, err = utils.ParseDateParam(c.Query("from")); err != nil {
		validation.Add("from", "expected RFC 3339 or YYYY-MM-DD", err)
	}
	if query.To, err = utils.ParseDateParam(c.Query("to")); err != nil {
		validation.Add("to", "expected RFC 3339 or YYYY-MM-DD", err)
	}

	query.Page = intParam(c, "page", validation)
	query.Limit = intParam(c, "limit", validation)
	query.Normalize()

	return query, validation
}

func intParam(c *gin.Context, name string, validation *apierrors.MultiErrors) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		validation.Add(name, "must be an integer", err)
		return 0
	}
	return value
}

func validationResponse(c *gin.Context, validation *apierrors.MultiErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   validation.Error(),
		"fields":  validation.Fields(),
	})
}

func pages(total int64, limit int) int {
	if limit <= 0 {
		limit = dto.DefaultSearchLimit
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
