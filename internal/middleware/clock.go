package middleware

import (
	"github.com/gin-gonic/gin"

	"dojo/internal/clock"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
)

// TestDateHeader pins the ledger's "today" for one request.
const TestDateHeader = "X-Test-Date"

// TestDate returns a Gin middleware that honours the X-Test-Date header when
// enabled. Disabled, the header is ignored.
func TestDate(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.GetHeader(TestDateHeader)
		if !enabled || value == "" {
			c.Next()
			return
		}

		day, err := dates.ParseDate(value)
		if err != nil {
			status, body := ErrorBody(c, apperrors.WithMessage(apperrors.ErrInvalidInput, TestDateHeader+": "+err.Error()))
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Request = c.Request.WithContext(clock.WithToday(c.Request.Context(), day))
		c.Next()
	}
}
