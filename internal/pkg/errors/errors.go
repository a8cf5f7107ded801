package errors

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodeFeatureGated     = "FEATURE_GATED"
	ErrCodeInboxNotFound    = "INBOX_NOT_FOUND"
	ErrCodeInboxPaused      = "INBOX_PAUSED"
	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	ErrCodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}
