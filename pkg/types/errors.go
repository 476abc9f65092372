package types

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure a relay call can end in
type ErrorKind string

const (
	ErrorKindUnknown   ErrorKind = "unknown"
	ErrorKindSigning   ErrorKind = "signing"
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindRejection ErrorKind = "rejection"
	ErrorKindDecode    ErrorKind = "decode"
)

// KindOf returns the tag of the first tagged error in err's chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var tagged interface{ Kind() ErrorKind }
	if errors.As(err, &tagged) {
		return tagged.Kind()
	}
	return ErrorKindUnknown
}

// SigningError means an AAT could not be produced or does not verify.
// It is fatal: nothing is dispatched with an unsigned or invalid token.
type SigningError struct {
	Reason string
	Err    error
}

func NewSigningError(reason string, err error) *SigningError {
	return &SigningError{Reason: reason, Err: err}
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing error: %s", e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

func (e *SigningError) Kind() ErrorKind { return ErrorKindSigning }

// TransportError is a network-level failure: timeout, refused connection,
// unusable status or an envelope that could not be decoded.
type TransportError struct {
	Node     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("relay transport failed after %d attempts (last node %s): %v", e.Attempts, e.Node, e.Err)
	}
	return fmt.Sprintf("relay transport failed (node %s): %v", e.Node, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() ErrorKind { return ErrorKindTransport }

// RelayRejection is an explicit refusal by the relay network or the target chain,
// carried verbatim. It is never retried.
type RelayRejection struct {
	Code      int
	Codespace string
	Message   string
	Node      string
}

func (e *RelayRejection) Error() string {
	if e.Codespace != "" {
		return fmt.Sprintf("relay rejected (codespace %s, code %d): %s", e.Codespace, e.Code, e.Message)
	}
	return fmt.Sprintf("relay rejected (code %d): %s", e.Code, e.Message)
}

func (e *RelayRejection) Kind() ErrorKind { return ErrorKindRejection }

// DecodeError means the relay succeeded but its payload is not valid JSON
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	const maxPreview = 128
	preview := e.Payload
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
	}
	return fmt.Sprintf("failed to decode relay payload %q: %v", preview, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Kind() ErrorKind { return ErrorKindDecode }
