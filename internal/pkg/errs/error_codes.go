/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Messaging Errors
const (
	// ErrMessageContentTooLong indicates that a message body exceeded the length limit.
	ErrMessageContentTooLong = 2001

	// ErrHistoryUnavailable indicates that message history could not be fetched.
	ErrHistoryUnavailable = 2002
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrInvalidUsername indicates the username failed validation.
	ErrInvalidUsername = 3001

	// ErrInvalidPassword indicates the password failed validation.
	ErrInvalidPassword = 3002

	// ErrUserAlreadyExists indicates a registration conflict on username.
	ErrUserAlreadyExists = 3003

	// ErrInvalidCredentials indicates a failed username/password verification.
	ErrInvalidCredentials = 3004

	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = 3005

	// ErrOldPasswordInvalid indicates the current password check failed on change.
	ErrOldPasswordInvalid = 3006

	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3007

	// ErrAlreadyLoggedIn indicates an authenticated caller hit a guest-only endpoint.
	ErrAlreadyLoggedIn = 3008
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000
)
