package authpw

// Code identifies one documented identity-provider failure. The provider's
// duck-typed error codes are decoded into this closed set exactly once, at
// this boundary; everything undocumented becomes CodeUnknown.
type Code string

const (
	CodeEmailInUse          Code = "email-already-in-use"
	CodeInvalidEmail        Code = "invalid-email"
	CodeWeakPassword        Code = "weak-password"
	CodeWrongPassword       Code = "wrong-password"
	CodeUserNotFound        Code = "user-not-found"
	CodeUserDisabled        Code = "user-disabled"
	CodeTooManyRequests     Code = "too-many-requests"
	CodeNetworkFailure      Code = "network-request-failed"
	CodeInvalidCredential   Code = "invalid-credential"
	CodeMissingPassword     Code = "missing-password"
	CodeOperationNotAllowed Code = "operation-not-allowed"
	CodeUnknown             Code = "unknown"
)

// messages is the fixed human-readable table for documented codes.
// Unmapped codes fall back to the raw upstream message.
var messages = map[Code]string{
	CodeEmailInUse:          "An account with this email already exists.",
	CodeInvalidEmail:        "Invalid email address.",
	CodeWeakPassword:        "Password is too weak.",
	CodeWrongPassword:       "Incorrect password.",
	CodeUserNotFound:        "No account found with this email.",
	CodeUserDisabled:        "This account has been disabled.",
	CodeTooManyRequests:     "Too many failed attempts. Please try again later.",
	CodeNetworkFailure:      "Network error. Please check your connection.",
	CodeInvalidCredential:   "Invalid email or password.",
	CodeMissingPassword:     "Please enter a password.",
	CodeOperationNotAllowed: "Email/password sign-in is not enabled.",
}

// Error is the tagged-variant error returned by every Service operation.
type Error struct {
	Code Code
	// Raw carries the upstream message for CodeUnknown.
	Raw string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message()
}

// Message returns the user-facing text for the error.
func (e *Error) Message() string {
	if msg, ok := messages[e.Code]; ok {
		return msg
	}
	if e.Raw != "" {
		return e.Raw
	}
	return "An error occurred during authentication"
}

func coded(code Code) *Error {
	return &Error{Code: code}
}

func unknown(raw string) *Error {
	return &Error{Code: CodeUnknown, Raw: raw}
}

// CodeOf extracts the provider code from an error, or CodeUnknown.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}
