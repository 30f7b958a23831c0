package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error by how the bot should react to it.
type Kind int

const (
	// KindInternal is the zero value: bugs and anything unclassified.
	KindInternal Kind = iota
	// KindInput blocks an action locally, no network call is made.
	KindInput
	// KindTransport covers timeouts, refused connections and unreadable responses.
	KindTransport
	// KindServer carries a message reported by the backend.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "internal"
	}
}

const (
	fallbackTransport = "No se pudo conectar con el servidor. Inténtelo de nuevo."
	fallbackServer    = "El servidor no pudo procesar la solicitud. Inténtelo más tarde."
	fallbackInternal  = "Algo salió mal."
)

// CustomError represents a custom error with additional arguments and wrapping capability.
type CustomError struct {
	message string
	kind    Kind
	user    string
	args    map[string]interface{}
	wrapped error
}

// New creates a new CustomError instance.
func New(message string) *CustomError {
	return &CustomError{
		message: message,
		args:    make(map[string]interface{}),
	}
}

// Input creates an error whose message is shown to the user as is.
func Input(message string) *CustomError {
	return New(message).Kind(KindInput).User(message)
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return e.fullErrorString()
}

// Arg adds an argument to the error.
func (e *CustomError) Arg(key string, value interface{}) *CustomError {
	e.args[key] = value
	return e
}

// Kind sets the error classification.
func (e *CustomError) Kind(k Kind) *CustomError {
	e.kind = k
	return e
}

// User sets the text shown to the end user.
func (e *CustomError) User(msg string) *CustomError {
	e.user = msg
	return e
}

// Wrap wraps another error (can be of the same type or a standard error).
func (e *CustomError) Wrap(err error) *CustomError {
	if err != nil {
		e.wrapped = err
	}
	return e
}

// Unwrap returns the wrapped error if any.
func (e *CustomError) Unwrap() error {
	return e.wrapped
}

// KindOf returns the first explicit kind found in the chain.
func KindOf(err error) Kind {
	for err != nil {
		var ce *CustomError
		if !errors.As(err, &ce) {
			return KindInternal
		}
		if ce.kind != KindInternal {
			return ce.kind
		}
		err = ce.wrapped
	}
	return KindInternal
}

// UserMessage returns the text the end user should see for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for cur := err; cur != nil; {
		var ce *CustomError
		if !errors.As(cur, &ce) {
			break
		}
		if ce.user != "" {
			return ce.user
		}
		cur = ce.wrapped
	}
	switch KindOf(err) {
	case KindTransport:
		return fallbackTransport
	case KindServer:
		return fallbackServer
	default:
		return fallbackInternal
	}
}

// fullErrorString builds the error string in the desired format:
// "{msg: <message>, args: <args>, wrappedError: {<wrapped error>}}".
func (e *CustomError) fullErrorString() string {
	var builder strings.Builder

	builder.WriteString("{msg: ")
	builder.WriteString(e.message)

	if e.kind != KindInternal {
		builder.WriteString(", kind: ")
		builder.WriteString(e.kind.String())
	}

	if len(e.args) > 0 {
		keys := make([]string, 0, len(e.args))
		for k := range e.args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s:%v", k, e.args[k]))
		}
		builder.WriteString(", args: map[" + strings.Join(pairs, " ") + "]")
	}

	if e.wrapped != nil {
		wrappedErr := &CustomError{}
		if errors.As(e.wrapped, &wrappedErr) {
			builder.WriteString(fmt.Sprintf(", wrappedError: %s", wrappedErr.fullErrorString()))
		} else {
			builder.WriteString(fmt.Sprintf(", wrappedError: {%v}", e.wrapped.Error()))
		}
	}

	builder.WriteString("}")

	return builder.String()
}
