package interfaces

import (
	"errors"
	"fmt"
)

// Kind classifies acquisition failures.
type Kind int

const (
	KindConnectivity Kind = iota + 1
	KindConfiguration
	KindBootstrap
	KindCancellation
	KindRemoteRejection
)

var kindNames = map[Kind]string{
	KindConnectivity:    "connectivity",
	KindConfiguration:   "configuration",
	KindBootstrap:       "bootstrap",
	KindCancellation:    "cancellation",
	KindRemoteRejection: "remote rejection",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var (
	// ErrConnectivity matches errors where a mandatory RPC call failed.
	ErrConnectivity = errors.New("connectivity error")

	// ErrConfiguration matches errors caused by malformed SDK defaults.
	ErrConfiguration = errors.New("configuration error")

	// ErrBootstrap matches SDK load and initialisation failures.
	ErrBootstrap = errors.New("sdk bootstrap error")

	// ErrCancelled matches acquisitions aborted through their context.
	// Callers usually treat it as a non-failure.
	ErrCancelled = errors.New("fhevm operation was cancelled")

	// ErrRemoteRejection matches failures of the remote instance creation call.
	ErrRemoteRejection = errors.New("remote instance creation rejected")
)

var kindSentinels = map[Kind]error{
	KindConnectivity:    ErrConnectivity,
	KindConfiguration:   ErrConfiguration,
	KindBootstrap:       ErrBootstrap,
	KindCancellation:    ErrCancelled,
	KindRemoteRejection: ErrRemoteRejection,
}

// Error is a classified acquisition failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

// NewError creates a classified error.
func NewError(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Cancelled creates the error raised at a cancellation checkpoint.
func Cancelled(cause error) *Error {
	return NewError(KindCancellation, "ABORTED", ErrCancelled.Error(), cause)
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of a classified error, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
