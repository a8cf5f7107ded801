package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ValidationError is bad, user-correctable input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

type QuotaExceededError struct {
	Resource string
	Limit    int64
	Message  string
}

func (e *QuotaExceededError) Error() string { return e.Message }

// Feature names gated behind the unlimited tier.
const (
	FeatureCustomSlug = "custom_slug"
	FeatureCustomIcon = "custom_icon"
	FeaturePause      = "pause"
)

type FeatureGatedError struct {
	Feature string
}

func (e *FeatureGatedError) Error() string {
	switch e.Feature {
	case FeatureCustomSlug:
		return "Custom slugs are available on the Unlimited plan"
	case FeatureCustomIcon:
		return "Custom icons are available on the Unlimited plan"
	case FeaturePause:
		return "Pausing inboxes is available on the Unlimited plan"
	}
	return fmt.Sprintf("%s requires the Unlimited plan", e.Feature)
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnauthorizedError is an ownership mismatch on a mutating operation.
type UnauthorizedError struct {
	Resource string
	ID       string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("not allowed to modify %s %s", e.Resource, e.ID)
}

type InboxUnavailableReason string

const (
	InboxNotFound InboxUnavailableReason = "not_found"
	InboxPaused   InboxUnavailableReason = "paused"
)

type InboxUnavailableError struct {
	Reason InboxUnavailableReason
}

func (e *InboxUnavailableError) Error() string {
	if e.Reason == InboxPaused {
		return "This inbox is temporarily not accepting new submissions"
	}
	return "This inbox doesn't exist or has been deleted"
}

type FileTooLargeError struct {
	FileName string
	Size     int64
	Limit    int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s is too large (%d bytes, limit %d bytes)", e.FileName, e.Size, e.Limit)
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

type InvalidSignatureError struct {
	Missing bool
	Err     error
}

func (e *InvalidSignatureError) Error() string {
	if e.Missing {
		return "No signature"
	}
	return "Invalid signature"
}

func (e *InvalidSignatureError) Unwrap() error { return e.Err }

// ExternalServiceError wraps a failure from the identity, data or payment backend.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string { return fmt.Sprintf("%s: %v", e.Service, e.Err) }
func (e *ExternalServiceError) Unwrap() error { return e.Err }

// As and Is forward to the standard library so callers need one errors import.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
func Is(err, target error) bool             { return stderrors.Is(err, target) }

const (
	storageUnavailableMessage = "File storage is unavailable, please try again"
	upstreamFailedMessage     = "Upstream service failed, please try again"
	internalMessage           = "Internal server error"
)

// PublicMessage is the text a caller may see for err. Infrastructure failures
// are reduced to a generic message; their details stay in the logs.
func PublicMessage(err error) string {
	var (
		validation  *ValidationError
		quota       *QuotaExceededError
		gated       *FeatureGatedError
		conflict    *ConflictError
		unavailable *InboxUnavailableError
		tooLarge    *FileTooLargeError
		storage     *StorageError
		external    *ExternalServiceError
	)

	switch {
	case stderrors.As(err, &validation):
		return validation.Message
	case stderrors.As(err, &quota):
		return quota.Message
	case stderrors.As(err, &gated):
		return gated.Error()
	case stderrors.As(err, &conflict):
		return conflict.Message
	case stderrors.As(err, &unavailable):
		return unavailable.Error()
	case stderrors.As(err, &tooLarge):
		return tooLarge.Error()
	case stderrors.As(err, &storage):
		return storageUnavailableMessage
	case stderrors.As(err, &external):
		return upstreamFailedMessage
	default:
		return internalMessage
	}
}

// WriteDomainError maps err onto the JSON envelope and status code.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		validation  *ValidationError
		quota       *QuotaExceededError
		gated       *FeatureGatedError
		conflict    *ConflictError
		unauth      *UnauthorizedError
		unavailable *InboxUnavailableError
		tooLarge    *FileTooLargeError
		storage     *StorageError
		signature   *InvalidSignatureError
		external    *ExternalServiceError
	)

	switch {
	case stderrors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidInput, validation.Message, fieldDetails(validation.Field))
	case stderrors.As(err, &quota):
		WriteError(w, http.StatusPaymentRequired, ErrCodeQuotaExceeded, quota.Message,
			map[string]interface{}{"resource": quota.Resource, "limit": quota.Limit, "upgrade": true})
	case stderrors.As(err, &gated):
		WriteError(w, http.StatusPaymentRequired, ErrCodeFeatureGated, gated.Error(),
			map[string]interface{}{"feature": gated.Feature, "upgrade": true})
	case stderrors.As(err, &conflict):
		WriteError(w, http.StatusConflict, ErrCodeConflict, conflict.Message, nil)
	case stderrors.As(err, &unauth):
		WriteError(w, http.StatusForbidden, ErrCodeForbidden, unauth.Error(), nil)
	case stderrors.As(err, &unavailable):
		if unavailable.Reason == InboxPaused {
			WriteError(w, http.StatusLocked, ErrCodeInboxPaused, unavailable.Error(), nil)
			return
		}
		WriteError(w, http.StatusNotFound, ErrCodeInboxNotFound, unavailable.Error(), nil)
	case stderrors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, tooLarge.Error(),
			map[string]interface{}{"file": tooLarge.FileName, "limit": tooLarge.Limit})
	case stderrors.As(err, &storage):
		log.Error().Err(err).Msg("storage failure")
		WriteError(w, http.StatusBadGateway, ErrCodeStorage, storageUnavailableMessage, nil)
	case stderrors.As(err, &signature):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidSignature, signature.Error(), nil)
	case stderrors.As(err, &external):
		log.Error().Err(err).Str("service", external.Service).Msg("external service failure")
		WriteError(w, http.StatusBadGateway, ErrCodeExternalService, upstreamFailedMessage, nil)
	default:
		log.Error().Err(err).Msg("unhandled error")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, internalMessage, nil)
	}
}

func fieldDetails(field string) interface{} {
	if field == "" {
		return nil
	}
	return map[string]string{"field": field}
}
