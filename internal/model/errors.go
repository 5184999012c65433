package model

// Domain error codes.
const (
	CodeUpstreamUnavailable      = "UPSTREAM_UNAVAILABLE"
	CodeIncompleteRecord         = "INCOMPLETE_RECORD"
	CodeUnresolvableBundle       = "UNRESOLVABLE_BUNDLE"
	CodeNotFound                 = "NOT_FOUND"
	CodeAlreadyOwned             = "ALREADY_OWNED"
	CodeInsufficientFunds        = "INSUFFICIENT_FUNDS"
	CodeBundleChildNotRefundable = "BUNDLE_CHILD_NOT_REFUNDABLE"
	CodePersistenceFailure       = "PERSISTENCE_FAILURE"
	CodeSyncInProgress           = "SYNC_IN_PROGRESS"
	CodeInvalidCredentials       = "INVALID_CREDENTIALS"
	CodeUsernameTaken            = "USERNAME_TAKEN"
	CodeInvalidInput             = "VALIDATION_ERROR"
	CodeInvalidToken             = "INVALID_TOKEN"
)

// Common errors
var (
	ErrUpstreamUnavailable      = &DomainError{Code: CodeUpstreamUnavailable, Message: "Upstream catalog is unavailable"}
	ErrIncompleteRecord         = &DomainError{Code: CodeIncompleteRecord, Message: "Record is missing required fields"}
	ErrUnresolvableBundle       = &DomainError{Code: CodeUnresolvableBundle, Message: "Bundle contents could not be resolved"}
	ErrNotFound                 = &DomainError{Code: CodeNotFound, Message: "Resource not found"}
	ErrAlreadyOwned             = &DomainError{Code: CodeAlreadyOwned, Message: "Item is already owned"}
	ErrInsufficientFunds        = &DomainError{Code: CodeInsufficientFunds, Message: "Insufficient balance"}
	ErrBundleChildNotRefundable = &DomainError{Code: CodeBundleChildNotRefundable, Message: "Items granted by a bundle can only be refunded with the bundle"}
	ErrPersistence              = &DomainError{Code: CodePersistenceFailure, Message: "Store operation failed"}
	ErrSyncInProgress           = &DomainError{Code: CodeSyncInProgress, Message: "A sync cycle is already running"}
	ErrInvalidCredentials       = &DomainError{Code: CodeInvalidCredentials, Message: "Invalid username or password"}
	ErrUsernameTaken            = &DomainError{Code: CodeUsernameTaken, Message: "Username is already taken"}
	ErrInvalidInput             = &DomainError{Code: CodeInvalidInput, Message: "Invalid input"}
	ErrInvalidToken             = &DomainError{Code: CodeInvalidToken, Message: "Invalid or expired token"}
)

// DomainError is a business-level failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
