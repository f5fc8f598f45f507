package analysistest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// respondJSON writes data as a JSON response with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes an error nested under "detail", the envelope the real
// server uses. extra fields are merged into the detail object.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, extra map[string]interface{}) {
	detail := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	for k, v := range extra {
		detail[k] = v
	}

	s.logger.Debug("sending error response",
		"status_code", status,
		"error", code,
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"method", r.Method)

	s.respondJSON(w, status, map[string]interface{}{"detail": detail})
}

// decodeJSON decodes and validates the request body.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// requestLogger logs every request at debug level with the id assigned by
// middleware.RequestID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request started",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}
