package types

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	ErrorUnknown ErrorKind = iota
	ErrorConnectionExhausted
	ErrorUnknownSymbol
	ErrorProtocol
)

func (k ErrorKind) String() string {
	return errorKindMapping[k]
}

var errorKindMapping = map[ErrorKind]string{
	ErrorUnknown:             "unknown",
	ErrorConnectionExhausted: "connection exhausted",
	ErrorUnknownSymbol:       "unknown symbol",
	ErrorProtocol:            "protocol error",
}

var (
	// ErrClientIDInUse is returned by Gateway.Dial when another session holds
	// the requested client identity.
	ErrClientIDInUse = errors.New("client id already in use")
	// ErrNotConnected is returned when no live session exists.
	ErrNotConnected = errors.New("not connected to gateway")
)

// Error carries one of the relay's error kinds. Op names the operation that
// failed, Msg is the human readable reason and Err the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the reason without the op and kind prefixes.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func ConnectionExhausted(attempts int, last error) *Error {
	return &Error{
		Kind: ErrorConnectionExhausted,
		Op:   "acquire",
		Msg:  fmt.Sprintf("failed to connect after %d attempts across all client ids", attempts),
		Err:  last,
	}
}

func UnknownSymbol(symbol string) *Error {
	return &Error{Kind: ErrorUnknownSymbol, Op: "qualify", Msg: symbol}
}

func ProtocolError(op string, err error) *Error {
	return &Error{Kind: ErrorProtocol, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
