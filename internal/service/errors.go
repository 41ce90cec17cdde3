package service

import (
	"errors"
	"fmt"
)

// Failure kinds. Anything that is not a *Failure is an unexpected failure.
var (
	ErrValidation          = errors.New("validation failure")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyOrder          = errors.New("empty order")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Failure is an expected, user-facing error. Message is safe to show to the caller.
type Failure struct {
	Kind      error
	Message   string
	ProductID int
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

func fail(kind error, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
