// Package api holds the JSON envelope helpers shared by the REST handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "deployboard/pkg/errors"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error    string                 `json:"error"`
	Type     string                 `json:"type,omitempty"`
	Code     string                 `json:"code,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Redirect string                 `json:"redirect,omitempty"`
}

// RespondJSON writes data with status.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError maps err to a status and JSON body. Unknown errors are
// logged and reported as 500 without their text.
func RespondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		logger.Error("unhandled error", zap.Error(err))
		RespondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Type:  string(apperrors.ErrorTypeInternal),
		})
		return
	}

	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	body := ErrorResponse{
		Error:   appErr.Message,
		Type:    string(appErr.Type),
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if status == http.StatusUnauthorized {
		body.Redirect = LoginPath
	}
	RespondJSON(w, status, body)
}

// Decode reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func Decode(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.NewValidationError("invalid request body").WithCause(err)
	}
	return nil
}
