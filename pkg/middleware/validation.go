package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/langsheet/pkg/common"
	"github.com/richxcame/langsheet/pkg/validation"
)

// ValidateForm binds multipart/urlencoded form fields into req and validates them
func ValidateForm(c *gin.Context, req interface{}) error {
	if err := c.ShouldBind(req); err != nil {
		return err
	}

	return validation.ValidateStruct(req)
}

// RespondWithValidationError sends a standardized validation error response
func RespondWithValidationError(c *gin.Context, err error) {
	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Validation failed",
			"fields":  valErr.Errors,
		})
		return
	}

	common.ErrorResponse(c, http.StatusBadRequest, err.Error())
}

// ValidateAndBindForm validates and binds form fields to the provided struct
// Returns true if validation passes, false otherwise (and sends error response)
func ValidateAndBindForm(c *gin.Context, req interface{}) bool {
	if err := ValidateForm(c, req); err != nil {
		RespondWithValidationError(c, err)
		return false
	}
	return true
}

// RequireMultipart rejects requests that are not multipart/form-data
func RequireMultipart() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"success":  false,
				"error":    "Unsupported content type",
				"expected": "multipart/form-data",
				"received": c.ContentType(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// MaxBodySize limits the request body size. Reads past the limit fail inside the
// handler, which reports them as 413.
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success":        false,
				"error":          "Request body too large",
				"max_size_bytes": maxSize,
			})
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from a MaxBodySize limit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
