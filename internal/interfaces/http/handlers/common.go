package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bpointel/docintel/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// parsePagination extracts limit and offset from query parameters, clamped to
// sane bounds.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error onto its HTTP status via the code
// table and writes the standard error body.  Internal errors are masked.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	msg := err.Error()
	if status >= 500 {
		msg = errors.DefaultMessageForCode(errors.ErrCodeInternal)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code.String(),
		Message: msg,
	})
}
