// Package response holds the JSON envelope shared by every endpoint:
// {"success": true, "data": ...} on success and
// {"success": false, "message": ..., "code": ...} on failure.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is a successful response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Failure is an error response body.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Fields is a flat success body for responses that expose top-level keys
// next to data.
type Fields map[string]interface{}

func Fail(message, code string) Failure {
	return Failure{Success: false, Message: message, Code: code}
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// WithFields writes status and a body made of fields plus "success": true.
func WithFields(c echo.Context, status int, fields Fields) error {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	return c.JSON(status, body)
}
