package app

import "fmt"

// DomainError is the one error shape the HTTP layer renders. Code is a
// stable machine string (EMAIL_EXISTS, VALIDATION_ERROR,
// USER_RECORD_MISSING, SUBMISSION_FAILED, ...) and Message is safe to
// show to the person filing the dispute; upstream detail that must not
// leak stays out of both.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
