package wallet

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no payload.
var (
	// ErrNotReady is returned when connect is attempted before the wallet's
	// ready state reached Installed.
	ErrNotReady = errors.New("wallet not ready")

	// ErrLoadFailure is returned when a loadable wallet's redirect could not
	// be performed.
	ErrLoadFailure = errors.New("wallet load failed")

	// ErrConfig indicates an invalid wallet or adapter configuration.
	ErrConfig = errors.New("wallet config error")

	// ErrDisconnected is returned when an operation requires a live wallet
	// session that has been torn down.
	ErrDisconnected = errors.New("wallet disconnected")

	// ErrDisconnectionFailure indicates the remote disconnect call failed.
	// Local adapter state is still cleared when this occurs.
	ErrDisconnectionFailure = errors.New("wallet disconnection failed")

	// ErrNotConnected is returned when an operation requires a connected
	// wallet (a recorded public key) and there is none.
	ErrNotConnected = errors.New("wallet not connected")
)

// ConnectionError wraps a failure of the underlying wallet connect call.
// Connect failures are emitted on the event channel rather than returned,
// so this type travels inside an EventError.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wallet connection: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("wallet connection: %s", e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendTransactionError reports a failure in the sign-and-send pipeline,
// including version-support rejections raised before any network call.
type SendTransactionError struct {
	Message string
	Err     error
}

func (e *SendTransactionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send transaction: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("send transaction: %s", e.Message)
}

func (e *SendTransactionError) Unwrap() error { return e.Err }

// SerializationError wraps a transaction wire-encoding failure.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("transaction serialization: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
