package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"dinoevent/errs"
)

const maxBodyBytes = 64 << 10

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// RespondWithErr writes err with the status of its kind. Unclassified
// errors are logged and hidden behind a generic message.
func RespondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}
	if code == http.StatusInternalServerError {
		RespondWithError(w, code, "internal error")
		return
	}
	RespondWithError(w, code, err.Error())
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

// DecodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Validation("invalid request body: %v", err)
	}
	return nil
}
