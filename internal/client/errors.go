package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport covers dial, timeout, cancellation and response decoding failures.
	KindTransport Kind = iota + 1
	// KindNotFound means the server reported 404.
	KindNotFound
	// KindValidation means the server rejected the request body (400 or 422).
	KindValidation
	// KindServer covers every other non-2xx response.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching against *Error.
var (
	ErrTransport  = errors.New("client: transport error")
	ErrNotFound   = errors.New("client: not found")
	ErrValidation = errors.New("client: validation failed")
	ErrServer     = errors.New("client: server error")
)

// Error is the single error type returned by Client methods.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "client: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}
