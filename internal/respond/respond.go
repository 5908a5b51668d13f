// Package respond writes the JSON bodies shared by the HTTP handlers and the
// bearer guard.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	CodeUnauthorized       = "unauthorized"
	CodeInvalidToken       = "invalid_token"
	CodeSessionExpired     = "session_expired"
	CodeValidation         = "validation_error"
	CodeAlreadyExists      = "already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidArguments   = "invalid_arguments"
	CodeInvalidPayload     = "invalid_payload"
	CodeRateLimited        = "rate_limited"
	CodeFatal              = "fatal_error"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrorBody is the envelope for every non-2xx response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes payload with status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes an ErrorBody with status.
func Error(w http.ResponseWriter, status int, body ErrorBody) {
	JSON(w, status, body)
}

// Fatal logs cause and writes a generic 500.
func Fatal(w http.ResponseWriter, log logrus.FieldLogger, message string, cause error) {
	if log != nil {
		log.WithError(cause).WithField("status", http.StatusInternalServerError).Error(message)
	}
	Error(w, http.StatusInternalServerError, ErrorBody{
		Error:   CodeFatal,
		Message: message,
	})
}

// DecodeJSON reads a single JSON object from r into dst. An empty body
// decodes to the zero value.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
