package camera

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorClass is the user-facing classification of a camera failure.
// Raw platform errors never cross the package boundary unexamined;
// they are always wrapped into an *Error carrying one of these.
type ErrorClass string

const (
	ClassPermissionDenied        ErrorClass = "permission_denied"
	ClassDeviceNotFound          ErrorClass = "device_not_found"
	ClassDeviceBusy              ErrorClass = "device_busy"
	ClassConstraintUnsatisfiable ErrorClass = "constraint_unsatisfiable"
	ClassAborted                 ErrorClass = "aborted"
	ClassTimeout                 ErrorClass = "timeout"
	ClassAcquisitionFailed       ErrorClass = "acquisition_failed"
	ClassSurfaceError            ErrorClass = "surface_error"
	ClassEnumerationUnsupported  ErrorClass = "enumeration_unsupported"
)

func (c ErrorClass) String() string {
	return string(c)
}

type Error struct {
	class ErrorClass
	cause error
}

func NewError(class ErrorClass, cause error) *Error {
	return &Error{
		class: class,
		cause: cause,
	}
}

func NewErrorf(class ErrorClass, format string, values ...interface{}) *Error {
	return &Error{
		class: class,
		cause: fmt.Errorf(format, values...),
	}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.class.String()
	}
	return e.class.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Class() ErrorClass {
	return e.class
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Class   ErrorClass `json:"class"`
		Message string     `json:"message"`
	}{
		Class:   e.class,
		Message: e.Error(),
	})
}

// ClassOf extracts the classification from err, or ClassAcquisitionFailed
// when err carries none.
func ClassOf(err error) ErrorClass {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.class
	}
	return ClassAcquisitionFailed
}

// IsClass reports whether err is classified as class.
func IsClass(err error, class ErrorClass) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.class == class
	}
	return false
}

// classify passes through an already classified error and wraps
// anything else as a generic acquisition failure.
func classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return NewError(ClassAcquisitionFailed, err)
}
