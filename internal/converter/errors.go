package converter

import (
	"errors"
	"net/http"
)

var (
	ErrMissingInput          = errors.New("missing input")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrConversionFailed      = errors.New("conversion failed")
)

// Client-visible messages.
const (
	MsgMissingInput  = "Missing file or target format"
	MsgUnsupported   = "Unsupported conversion type"
	MsgFailed        = "Conversion failed"
	MsgVideoFailed   = "Video conversion failed"
	MsgNoPDFPageJPGs = "No JPG generated from PDF"
)

// Error is a classified conversion error. Kind is one of the sentinels above,
// Message is what the client sees and Err keeps the underlying cause for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func MissingInput() error {
	return &Error{Kind: ErrMissingInput, Message: MsgMissingInput}
}

func Unsupported(cause error) error {
	return &Error{Kind: ErrUnsupportedConversion, Message: MsgUnsupported, Err: cause}
}

// Failed classifies err as a conversion failure. An empty msg uses the generic
// "Conversion failed" text.
func Failed(msg string, err error) error {
	if msg == "" {
		msg = MsgFailed
	}
	return &Error{Kind: ErrConversionFailed, Message: msg, Err: err}
}

// StatusCode maps an error to its HTTP status. Unclassified errors are 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrUnsupportedConversion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to send to a client.
func PublicMessage(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return MsgFailed
}
