package broker

import (
	"errors"
	"fmt"
)

var ErrInstrumentNotFound = errors.New("instrument not found")

// AuthenticationError means the credential was rejected by the broker.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: broker authentication failed", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransportError covers network failures, timeouts and unexpected statuses.
// A sync failing with it can be retried as is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: broker %s failed", e.Err, e.Op)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Wrap keeps typed broker errors and turns anything else, a deadline
// included, into a TransportError of op.
func Wrap(op string, err error) error {
	if err == nil || IsAuthentication(err) || IsTransport(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
