package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type APIError interface {
	Error() string
	Message() string
	Code() int
	SetDetail(str string, a ...any) APIError
	SetFields(d Fields) APIError
	GetFields() Fields
	WithCause(err error) APIError
	Unwrap() error
	// Clone returns a copy that can take its own detail and fields.
	Clone() APIError
}

type Fields map[string]any

var (
	ErrInternalServerError   = DefineError(70440, "Internal Server Error")
	ErrBackendFailure        = DefineError(70450, "Backend Query Failed")
	ErrConnectionUnavailable = DefineError(70460, "Database Connection Unavailable")
	ErrNoItems               = DefineError(70470, "No Items Returned")
	ErrUnknownUser           = DefineError(70471, "Unknown User")
	ErrUnknownMovie          = DefineError(70472, "Unknown Movie")
	ErrUnknownCharacter      = DefineError(70473, "Unknown Character")
	ErrCanceled              = DefineError(70480, "Request Canceled")
)

type apiErrorFn func() APIError

// DefineError returns a constructor producing a fresh APIError for each call,
// so details and fields set on one instance never leak into another.
func DefineError(code int, message string) apiErrorFn {
	return func() APIError {
		return &apiError{
			code:    code,
			message: strings.ToLower(message),
			fields:  Fields{},
		}
	}
}

type apiError struct {
	code    int
	message string
	detail  string
	fields  Fields
	cause   error
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.code, e.message)
	if e.detail != "" {
		msg += ": " + e.detail
	}

	return msg
}

func (e *apiError) Message() string {
	return e.message
}

func (e *apiError) Code() int {
	return e.code
}

func (e *apiError) SetDetail(str string, a ...any) APIError {
	if len(a) > 0 {
		str = fmt.Sprintf(str, a...)
	}
	e.detail = str

	return e
}

func (e *apiError) SetFields(d Fields) APIError {
	for k, v := range d {
		e.fields[k] = v
	}

	return e
}

func (e *apiError) GetFields() Fields {
	return e.fields
}

func (e *apiError) WithCause(err error) APIError {
	e.cause = err
	if e.detail == "" && err != nil {
		e.detail = err.Error()
	}

	return e
}

func (e *apiError) Unwrap() error {
	return e.cause
}

func (e *apiError) Clone() APIError {
	c := *e
	c.fields = make(Fields, len(e.fields))
	for k, v := range e.fields {
		c.fields[k] = v
	}

	return &c
}

func (e *apiError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
		Fields  Fields `json:"fields,omitempty"`
	}{e.code, e.message, e.detail, e.fields})
}

// Is reports whether target is an APIError with the same code.
func (e *apiError) Is(target error) bool {
	var t *apiError
	if errors.As(target, &t) {
		return t.code == e.code
	}

	return false
}

// Compare reports whether err carries an APIError with the given code.
func Compare(err error, code int) bool {
	var e APIError
	if errors.As(err, &e) {
		return e.Code() == code
	}

	return false
}

// From returns err as an APIError, wrapping it as an internal error when it is not one already.
func From(err error) APIError {
	if err == nil {
		return nil
	}

	var e APIError
	if errors.As(err, &e) {
		return e
	}

	return ErrInternalServerError().WithCause(err)
}
