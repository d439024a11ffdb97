package utils

import "errors"

// ErrorKind classifies operation failures so handlers can pick a status code
// and callers can tell a guard violation from a lost race.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindPrecondition
	KindConflict
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func ValidationError(message string) error {
	return &AppError{Kind: KindValidation, Message: message}
}

func NotFoundError(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

func ForbiddenError(message string) error {
	return &AppError{Kind: KindForbidden, Message: message}
}

// PreconditionError reports a state-machine guard violation. The message must
// name the failed guard; operators act on these directly.
func PreconditionError(message string) error {
	return &AppError{Kind: KindPrecondition, Message: message}
}

func ConflictError(message string) error {
	return &AppError{Kind: KindConflict, Message: message}
}

func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

var ErrorRecordNotFound = NotFoundError("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
