package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/middleware"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	status, body := middleware.ErrorBody(c, err)
	c.JSON(status, body)
}

// bindJSON binds the request body, reporting binding failures as validation errors.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

// versionToken returns the active version the caller last saw: value when
// set, otherwise the If-Match header. Edits and deletes must name one.
func versionToken(c *gin.Context, value string) (string, bool) {
	if value == "" {
		value = strings.Trim(strings.TrimPrefix(c.GetHeader("If-Match"), "W/"), `"`)
	}
	if value == "" {
		respondWithError(c, apperrors.ErrVersionRequired)
		return "", false
	}
	return value, true
}

// parseOptionalDate parses a YYYY-MM-DD value; nil or empty means unset.
func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := dates.ParseDate(*value)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, field+": "+err.Error())
	}
	return &d, nil
}

// parseOptionalMonth parses a YYYY-MM value; nil or empty means unset.
func parseOptionalMonth(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	m, err := dates.ParseMonth(*value)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, field+": "+err.Error())
	}
	return &m, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, key string) (*time.Time, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil, nil
	}
	return parseOptionalDate(key, &v)
}

// monthOrCurrent reads a budget month from value, defaulting to the month of
// now when value is empty.
func monthOrCurrent(field, value string, now time.Time) (time.Time, error) {
	if value == "" {
		return dates.MonthStart(now), nil
	}
	m, err := parseOptionalMonth(field, &value)
	if err != nil {
		return time.Time{}, err
	}
	return *m, nil
}
