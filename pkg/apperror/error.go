package apperror

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports two *Error values equal for errors.Is if they share a Code,
// so a WithMessage/WithInternal-derived copy still matches the sentinel it
// was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ToEchoError converts the app error to an echo.HTTPError for proper handling
func (e *Error) ToEchoError() *echo.HTTPError {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return echo.NewHTTPError(e.HTTPStatus, map[string]any{
		"error": errBody,
	})
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

// Common error definitions
var (
	// Authentication errors
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrInvalidToken = New(http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	ErrTokenExpired = New(http.StatusUnauthorized, "token_expired", "Token has expired")
	ErrMissingToken = New(http.StatusUnauthorized, "missing_token", "Missing authorization token")

	// Authorization errors
	ErrForbidden               = New(http.StatusForbidden, "forbidden", "Access denied")
	ErrInsufficientPermissions = New(http.StatusForbidden, "insufficient_permissions", "Insufficient permissions")

	// Resource errors
	ErrNotFound        = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrUserNotFound    = New(http.StatusNotFound, "user_not_found", "User not found")
	ErrProjectNotFound = New(http.StatusNotFound, "project_not_found", "Project not found")
	ErrConflict        = New(http.StatusConflict, "conflict", "Resource already exists")

	// Validation errors
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	// Server errors
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")

	// Connector errors
	ErrConnectorNotFound              = New(http.StatusNotFound, "CONNECTOR_NOT_FOUND", "connector not found")
	ErrConnectorNotConnected          = New(http.StatusBadRequest, "CONNECTOR_NOT_CONNECTED", "connector not connected")
	ErrConnectorAlreadyConnected      = New(http.StatusConflict, "CONNECTOR_ALREADY_CONNECTED", "connector already connected")
	ErrConnectorConfigInvalid         = New(http.StatusBadRequest, "CONNECTOR_CONFIG_INVALID", "connector config invalid")
	ErrConnectorDefaultConfigRequired = New(http.StatusBadRequest, "CONNECTOR_DEFAULT_CONFIG_REQUIRED", "connector has no default config")

	// Action errors
	ErrActionNotFound      = New(http.StatusNotFound, "ACTION_NOT_FOUND", "action not found")
	ErrActionInputInvalid  = New(http.StatusBadRequest, "ACTION_INPUT_INVALID", "action input invalid")
	ErrActionOutputInvalid = New(http.StatusInternalServerError, "ACTION_OUTPUT_INVALID", "action output invalid")
	ErrActionFailed        = New(http.StatusInternalServerError, "ACTION_FAILED", "action failed")

	// Scope errors
	ErrScopeInvalid            = New(http.StatusBadRequest, "SCOPE_INVALID", "unknown scope")
	ErrScopeIdentifierRequired = New(http.StatusBadRequest, "SCOPE_IDENTIFIER_REQUIRED", "scope requires an identity")

	// Storage errors
	ErrDatabaseRequired = New(http.StatusInternalServerError, "DATABASE_REQUIRED", "storage adapter is required")
	ErrDatabaseFailed   = New(http.StatusInternalServerError, "DATABASE_FAILED", "storage adapter operation failed")

	// OAuth errors
	ErrOAuthNotConfigured       = New(http.StatusBadRequest, "OAUTH_NOT_CONFIGURED", "connector is not configured for OAuth")
	ErrOAuthStateInvalid        = New(http.StatusBadRequest, "OAUTH_STATE_INVALID", "OAuth state is invalid or expired")
	ErrOAuthTokenFailed         = New(http.StatusInternalServerError, "OAUTH_TOKEN_FAILED", "OAuth token exchange failed")
	ErrOAuthParseTokenFailed    = New(http.StatusInternalServerError, "OAUTH_PARSE_TOKEN_FAILED", "could not parse OAuth token response")
	ErrOAuthParseUserInfoFailed = New(http.StatusInternalServerError, "OAUTH_PARSE_USERINFO_FAILED", "could not parse OAuth user-info response")
	ErrOAuthRefreshFailed       = New(http.StatusInternalServerError, "OAUTH_REFRESH_FAILED", "OAuth token refresh failed")
	ErrOAuthTokenExpired        = New(http.StatusUnauthorized, "OAUTH_TOKEN_EXPIRED", "OAuth token expired and cannot be refreshed")

	// Webhook errors
	ErrWebhookNotConfigured      = New(http.StatusBadRequest, "WEBHOOK_NOT_CONFIGURED", "connector has no webhook configuration")
	ErrWebhookValidationFailed   = New(http.StatusBadRequest, "WEBHOOK_VALIDATION_FAILED", "webhook payload failed validation")
	ErrWebhookVerificationFailed = New(http.StatusUnauthorized, "WEBHOOK_VERIFICATION_FAILED", "webhook signature verification failed")

	// Crypto errors
	ErrEncryptFailed            = New(http.StatusInternalServerError, "ENCRYPT_FAILED", "failed to encrypt value")
	ErrDecryptFailed            = New(http.StatusInternalServerError, "DECRYPT_FAILED", "failed to decrypt value")
	ErrEncryptionSecretRequired = New(http.StatusInternalServerError, "ENCRYPTION_SECRET_REQUIRED", "an encryption secret or custom encrypt/decrypt pair is required")

	// Validation errors
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "validation failed")

	// Build errors
	ErrBuildConfigRequired     = New(http.StatusInternalServerError, "BUILD_CONFIG_REQUIRED", "a storage adapter is required to build the manager")
	ErrBuildScopesRequired     = New(http.StatusInternalServerError, "BUILD_SCOPES_REQUIRED", "at least one scope must be registered")
	ErrBuildConnectorsRequired = New(http.StatusInternalServerError, "BUILD_CONNECTORS_REQUIRED", "at least one connector must be registered")
)

// ToHTTPError converts an app error to an HTTP-friendly format
func ToHTTPError(err error) (int, map[string]any) {
	if appErr, ok := err.(*Error); ok {
		errBody := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			errBody["details"] = appErr.Details
		}
		return appErr.HTTPStatus, map[string]any{
			"error": errBody,
		}
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"code":    "internal_error",
			"message": "An internal error occurred",
		},
	}
}

// NewBadRequest creates a bad request error with a custom message
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and optional wrapped error
func NewInternal(message string, err error) *Error {
	return &Error{
		HTTPStatus: http.StatusInternalServerError,
		Code:       "internal_error",
		Message:    message,
		Internal:   err,
	}
}

// NewForbidden creates a forbidden error with a custom message
func NewForbidden(message string) *Error {
	return ErrForbidden.WithMessage(message)
}
