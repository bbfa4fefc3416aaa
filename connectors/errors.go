package connectors

import "github.com/ignitergo/connectors/pkg/apperror"

// Re-exported for callers that only import the connectors package; these
// are the same *apperror.Error values defined alongside the rest of the
// taxonomy so HTTP status and error code stay centralized in one place.
var (
	ErrConnectorNotFound              = apperror.ErrConnectorNotFound
	ErrConnectorNotConnected          = apperror.ErrConnectorNotConnected
	ErrConnectorAlreadyConnected      = apperror.ErrConnectorAlreadyConnected
	ErrConnectorConfigInvalid         = apperror.ErrConnectorConfigInvalid
	ErrConnectorDefaultConfigRequired = apperror.ErrConnectorDefaultConfigRequired

	ErrActionNotFound      = apperror.ErrActionNotFound
	ErrActionInputInvalid  = apperror.ErrActionInputInvalid
	ErrActionOutputInvalid = apperror.ErrActionOutputInvalid
	ErrActionFailed        = apperror.ErrActionFailed

	ErrScopeInvalid            = apperror.ErrScopeInvalid
	ErrScopeIdentifierRequired = apperror.ErrScopeIdentifierRequired

	ErrDatabaseRequired = apperror.ErrDatabaseRequired
	ErrDatabaseFailed   = apperror.ErrDatabaseFailed

	ErrOAuthNotConfigured       = apperror.ErrOAuthNotConfigured
	ErrOAuthStateInvalid        = apperror.ErrOAuthStateInvalid
	ErrOAuthTokenFailed         = apperror.ErrOAuthTokenFailed
	ErrOAuthParseTokenFailed    = apperror.ErrOAuthParseTokenFailed
	ErrOAuthParseUserInfoFailed = apperror.ErrOAuthParseUserInfoFailed
	ErrOAuthRefreshFailed       = apperror.ErrOAuthRefreshFailed
	ErrOAuthTokenExpired        = apperror.ErrOAuthTokenExpired

	ErrWebhookNotConfigured      = apperror.ErrWebhookNotConfigured
	ErrWebhookValidationFailed   = apperror.ErrWebhookValidationFailed
	ErrWebhookVerificationFailed = apperror.ErrWebhookVerificationFailed

	ErrEncryptFailed            = apperror.ErrEncryptFailed
	ErrDecryptFailed            = apperror.ErrDecryptFailed
	ErrEncryptionSecretRequired = apperror.ErrEncryptionSecretRequired

	ErrValidationFailed = apperror.ErrValidationFailed

	ErrBuildConfigRequired     = apperror.ErrBuildConfigRequired
	ErrBuildScopesRequired     = apperror.ErrBuildScopesRequired
	ErrBuildConnectorsRequired = apperror.ErrBuildConnectorsRequired
)
