package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/platform/auth"
)

// AuditEntry records one mutating workflow call: who invoked which route
// and with what outcome.
type AuditEntry struct {
	UserID     int64
	Role       string
	Resource   string
	ResourceID string
	Action     string // create, update, delete
	Route      string
	Path       string
	Method     string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries in addition to the log line.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit emits a type=workflow_audit log line for every mutating request
// under /api/v1/, after the handler has run.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Route:      c.Path(),
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				Action:     httpMethodToAction(req.Method),
				Resource:   extractResource(req.URL.Path),
				ResourceID: c.Param("id"),
				StatusCode: c.Response().Status,
			}
			if err != nil {
				entry.StatusCode = statusFor(err)
			}
			if actor, ok := auth.ActorFromContext(req.Context()); ok {
				entry.UserID = actor.UserID
				entry.Role = actor.Role
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, rec := range recorders {
				if rec == nil {
					continue
				}
				if recErr := rec.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if entry.StatusCode >= 400 {
				evt = logger.Warn()
			}
			evt.
				Str("type", "workflow_audit").
				Str("request_id", entry.RequestID).
				Int64("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("route", entry.Route).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("workflow_call")

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, "/api/v1/") {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodDelete:
		return "delete"
	default:
		return "update"
	}
}

// extractResource returns the first segment after /api/v1/.
//
//   - /api/v1/vaga-decisions                 -> vaga-decisions
//   - /api/v1/profissionais/<id>/link-user   -> profissionais
func extractResource(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if seg, _, _ := strings.Cut(rest, "/"); seg != "" {
		return seg
	}
	return "unknown"
}
