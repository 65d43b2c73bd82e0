package codec

import (
	"errors"
	"fmt"
)

// ErrorKind classifies codec failures.
type ErrorKind int

const (
	// KindMalformed means the wire data is structurally invalid.
	KindMalformed ErrorKind = iota + 1
	// KindTransport means the underlying stream failed or ended early.
	KindTransport
	// KindValidation means a decoded record is missing required fields.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed record"
	case KindTransport:
		return "transport failure"
	case KindValidation:
		return "validation failure"
	default:
		return "codec error"
	}
}

// Error is the error type returned by protocols and record codecs.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMalformedRecord = &Error{Kind: KindMalformed}
	ErrTransport       = &Error{Kind: KindTransport}
	ErrValidation      = &Error{Kind: KindValidation}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func malformed(op, format string, args ...interface{}) error {
	return &Error{Kind: KindMalformed, Op: op, Message: fmt.Sprintf(format, args...)}
}

// transport wraps a stream error. Errors that are already codec errors pass
// through unchanged.
func transport(op string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// NewMalformedError reports an invalid value found while decoding a record.
func NewMalformedError(op, format string, args ...interface{}) error {
	return malformed(op, format, args...)
}

// NewValidationError reports a required field that is absent.
func NewValidationError(record, field string) error {
	return &Error{
		Kind:    KindValidation,
		Op:      record,
		Message: fmt.Sprintf("required field %q is unset", field),
	}
}
