// Package apperrors defines the error taxonomy shared by the services. Every
// remote failure is converted into one of these before it reaches a handler.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError is returned for invalid credentials or a rejected identity call
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError is returned when an id does not match a stored record
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NetworkError wraps a transport failure from a remote service
type NetworkError struct {
	Service string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is returned for missing or malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PaymentError is returned when a charge was attempted and declined
type PaymentError struct {
	Message       string
	TransactionID string
}

func (e *PaymentError) Error() string {
	return "payment: " + e.Message
}

// Auth builds an AuthError
func Auth(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

// NotFound builds a NotFoundError
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Network builds a NetworkError
func Network(service string, err error) error {
	return &NetworkError{Service: service, Err: err}
}

// Payment builds a PaymentError
func Payment(message string) error {
	return &PaymentError{Message: message}
}

// Validation builds a ValidationError
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Status maps err onto the HTTP status a handler should answer with
func Status(err error) int {
	var (
		authErr       *AuthError
		notFoundErr   *NotFoundError
		networkErr    *NetworkError
		validationErr *ValidationError
		paymentErr    *PaymentError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &paymentErr):
		return http.StatusPaymentRequired
	case errors.As(err, &networkErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
