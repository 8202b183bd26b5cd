// Package typederrors holds the error taxonomy shared by the transport,
// REST client and Redfish object layers.
package typederrors

import (
	"errors"
	"fmt"
)

// ErrTransportFailure is the common root of NotFoundError, RequestError and
// ConnectionError. Match it with errors.Is to catch any of the three.
var ErrTransportFailure = errors.New("transport failure")

// GenericError is an error structure containing common fields to be
// embedded by specific error types defined below
type GenericError struct {
	Message string
	Err     error
}

func (ge GenericError) Error() string {
	if ge.Err != nil {
		return ge.Message + ": " + ge.Err.Error()
	}
	return ge.Message
}

func (ge GenericError) Unwrap() error {
	return ge.Err
}

// UnsupportedBodyTypeError is returned when a request body has a shape the
// transport cannot encode.
type UnsupportedBodyTypeError struct {
	GenericError
}

func NewUnsupportedBodyTypeError(body any) error {
	return UnsupportedBodyTypeError{
		GenericError: GenericError{Message: fmt.Sprintf("unsupported body type %T", body)},
	}
}

func IsUnsupportedBodyTypeError(target error) bool {
	var e UnsupportedBodyTypeError
	return errors.As(target, &e)
}

// UnsupportedAuthTypeError is returned when the transport has no signing
// strategy for the configured auth method.
type UnsupportedAuthTypeError struct {
	GenericError
}

func NewUnsupportedAuthTypeError(auth any) error {
	return UnsupportedAuthTypeError{
		GenericError: GenericError{Message: fmt.Sprintf("unsupported auth type %T", auth)},
	}
}

func IsUnsupportedAuthTypeError(target error) bool {
	var e UnsupportedAuthTypeError
	return errors.As(target, &e)
}

// JSONDecodeError type
type JSONDecodeError struct {
	GenericError
}

func NewJSONDecodeError(m string, e error) error {
	return JSONDecodeError{
		GenericError: GenericError{m, e},
	}
}

func IsJSONDecodeError(target error) bool {
	var e JSONDecodeError
	return errors.As(target, &e)
}

// NotFoundError is returned for HTTP 404 responses.
type NotFoundError struct {
	GenericError
	Path string
}

func NewNotFoundError(path string) error {
	return NotFoundError{
		GenericError: GenericError{Message: fmt.Sprintf("resource not found: %s", path)},
		Path:         path,
	}
}

func (NotFoundError) Is(target error) bool { return target == ErrTransportFailure }

func IsNotFoundError(target error) bool {
	var e NotFoundError
	return errors.As(target, &e)
}

// RequestError is returned for any other non-success HTTP status. Body holds
// the decoded JSON error document when the response carried valid JSON, and
// the raw response text otherwise.
type RequestError struct {
	GenericError
	StatusCode int
	Body       any
}

func NewRequestError(method, path string, status int, body any) error {
	return RequestError{
		GenericError: GenericError{Message: fmt.Sprintf("%s %s: unexpected status %d", method, path, status)},
		StatusCode:   status,
		Body:         body,
	}
}

func (RequestError) Is(target error) bool { return target == ErrTransportFailure }

func IsRequestError(target error) bool {
	var e RequestError
	return errors.As(target, &e)
}

// ConnectionError wraps DNS, socket, TLS and timeout failures.
type ConnectionError struct {
	GenericError
}

func NewConnectionError(m string, e error) error {
	return ConnectionError{
		GenericError: GenericError{m, e},
	}
}

func (ConnectionError) Is(target error) bool { return target == ErrTransportFailure }

func IsConnectionError(target error) bool {
	var e ConnectionError
	return errors.As(target, &e)
}

// FieldNotFoundError is returned by accessors when the cached document does
// not contain the requested field.
type FieldNotFoundError struct {
	GenericError
	Field string
}

func NewFieldNotFoundError(field string) error {
	return FieldNotFoundError{
		GenericError: GenericError{Message: fmt.Sprintf("field not found: %s", field)},
		Field:        field,
	}
}

func IsFieldNotFoundError(target error) bool {
	var e FieldNotFoundError
	return errors.As(target, &e)
}

// ModelLoadError type
type ModelLoadError struct {
	GenericError
}

func NewModelLoadError(m string, e error) error {
	return ModelLoadError{
		GenericError: GenericError{m, e},
	}
}

func IsModelLoadError(target error) bool {
	var e ModelLoadError
	return errors.As(target, &e)
}

// ModelVersionError is returned when a payload's discriminator has no
// registered implementation.
type ModelVersionError struct {
	GenericError
	Family  string
	Version string
}

func NewModelVersionError(family, version string) error {
	return ModelVersionError{
		GenericError: GenericError{Message: fmt.Sprintf("unsupported %s version: %s", family, version)},
		Family:       family,
		Version:      version,
	}
}

func IsModelVersionError(target error) bool {
	var e ModelVersionError
	return errors.As(target, &e)
}

// UnsupportedSystemError type
type UnsupportedSystemError struct {
	GenericError
}

func NewUnsupportedSystemError(m string, e error) error {
	return UnsupportedSystemError{
		GenericError: GenericError{m, e},
	}
}

func IsUnsupportedSystemError(target error) bool {
	var e UnsupportedSystemError
	return errors.As(target, &e)
}

// SchemaValidationError type
type SchemaValidationError struct {
	GenericError
}

func NewSchemaValidationError(m string, e error) error {
	return SchemaValidationError{
		GenericError: GenericError{m, e},
	}
}

func IsSchemaValidationError(target error) bool {
	var e SchemaValidationError
	return errors.As(target, &e)
}
