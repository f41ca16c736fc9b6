package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrOfficerRequired  = &AppError{http.StatusForbidden, "OFFICER_REQUIRED", "Officer or owner role required"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientBalance    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient point balance"}
	ErrInvalidAmount          = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidTransactionType = &AppError{http.StatusBadRequest, "INVALID_TRANSACTION_TYPE", "Unknown transaction type"}
	ErrMetadataMismatch       = &AppError{http.StatusBadRequest, "METADATA_MISMATCH", "Metadata does not match transaction type"}
	ErrReasonRequired         = &AppError{http.StatusBadRequest, "REASON_REQUIRED", "Reason is required"}
	ErrEmptyMemberList        = &AppError{http.StatusBadRequest, "EMPTY_MEMBER_LIST", "Member list must not be empty"}
	ErrBatchTooLarge          = &AppError{http.StatusBadRequest, "BATCH_TOO_LARGE", "Import batch exceeds maximum size"}
	ErrEmptyBatch             = &AppError{http.StatusBadRequest, "EMPTY_BATCH", "Import batch must not be empty"}
	ErrCharacterNotFound      = &AppError{http.StatusUnprocessableEntity, "CHARACTER_NOT_FOUND", "Character not found in roster"}
	ErrAmbiguousCharacter     = &AppError{http.StatusUnprocessableEntity, "AMBIGUOUS_CHARACTER", "Multiple characters share that name, pass an explicit character id"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
