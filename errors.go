package mtproto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ansel1/merry/v2"
)

// ErrDHGenRetryUnsupported is returned instead of implementing
// dh_gen_retry: the source leaves retry semantics under-specified, so this
// is surfaced as a typed error rather than guessed at; it is a sentinel
// that merry.Is recognizes, like ErrNoSessionData.
var ErrDHGenRetryUnsupported = merry.New("dh_gen_retry is not supported")

// TransportError wraps transport-level failures: connection reset,
// invalid checksum, or a negative invalid-buffer code signalling the server
// considers the auth key invalid.
type TransportError struct {
	Op   string
	Code int32 // negative HTTP-like code, 0 if not applicable
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("transport: %s: code %d", e.Op, e.Code)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) error {
	return merry.Wrap(&TransportError{Op: op, Err: err})
}

func NewInvalidBufferError(op string, code int32) error {
	return merry.Wrap(&TransportError{Op: op, Code: code})
}

// SecurityError is fatal to the connection: auth_key_id mismatch,
// session_id mismatch, msg_key mismatch, or a nonce mismatch during
// exchange.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string { return "security violation: " + e.Reason }

func NewSecurityError(reason string) error {
	return merry.Wrap(&SecurityError{Reason: reason})
}

// ExchangeError is fatal to the auth-key exchange; callers reconnect rather
// than retry in place (the protocol's rules: "not retried within this component").
type ExchangeError struct {
	Step   string
	Reason string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("auth-key exchange failed at %s: %s", e.Step, e.Reason)
}

func NewExchangeError(step, reason string) error {
	return merry.Wrap(&ExchangeError{Step: step, Reason: reason})
}

// BadMessageError models bad_msg_notification codes that are fatal to the
// specific offending request (18, 19, 20, 34, 35, 64).
type BadMessageError struct {
	Code int32
}

func (e *BadMessageError) Error() string {
	return fmt.Sprintf("bad_msg_notification: code %d", e.Code)
}

func NewBadMessageError(code int32) error {
	return merry.Wrap(&BadMessageError{Code: code})
}

// RPCError is the decoded rpc_error constructor. Code holds the raw
// rpc_error code (303/400/401/403/404/420/500/503 in Telethon's
// errors/_rpcbase.py bucketing); there is no per-bucket error type.
type RPCError struct {
	Code    int32
	Message string
	Request string // constructor name of the request that triggered it, for diagnostics
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s (request=%s)", e.Code, e.Message, e.Request)
}

func NewRPCError(code int32, message, request string) error {
	return merry.Wrap(&RPCError{Code: code, Message: message, Request: request})
}

// IsMigrateError reports whether message is one of PHONE_MIGRATE_X,
// NETWORK_MIGRATE_X, USER_MIGRATE_X, or FILE_MIGRATE_X, returning the
// target DC id.
func IsMigrateError(message string) (dcID int32, ok bool) {
	for _, prefix := range []string{"PHONE_MIGRATE_", "NETWORK_MIGRATE_", "USER_MIGRATE_", "FILE_MIGRATE_"} {
		if strings.HasPrefix(message, prefix) {
			n, err := strconv.Atoi(message[len(prefix):])
			if err == nil {
				return int32(n), true
			}
		}
	}
	return 0, false
}

// IsFloodError reports whether message is FLOOD_WAIT_n, SLOWMODE_WAIT_n, or
// FLOOD_TEST_PHONE_WAIT_n and returns the wait in seconds plus whether it is
// slow-mode (chat-scoped) rather than per-constructor flood.
func IsFloodError(message string) (seconds int32, slowMode bool, ok bool) {
	switch {
	case strings.HasPrefix(message, "SLOWMODE_WAIT_"):
		n, err := strconv.Atoi(message[len("SLOWMODE_WAIT_"):])
		if err == nil {
			return int32(n), true, true
		}
	case strings.HasPrefix(message, "FLOOD_WAIT_"):
		n, err := strconv.Atoi(message[len("FLOOD_WAIT_"):])
		if err == nil {
			return int32(n), false, true
		}
	case strings.HasPrefix(message, "FLOOD_TEST_PHONE_WAIT_"):
		n, err := strconv.Atoi(message[len("FLOOD_TEST_PHONE_WAIT_"):])
		if err == nil {
			return int32(n), false, true
		}
	}
	return 0, false, false
}

// BulkSendError bundles per-request outcomes from a batch send, in the
// original request order.
type BulkSendError struct {
	Errs     []error
	Results  []interface{}
	Requests []TL
}

func (e *BulkSendError) Error() string {
	n := 0
	for _, err := range e.Errs {
		if err != nil {
			n++
		}
	}
	return fmt.Sprintf("bulk send: %d/%d requests failed", n, len(e.Errs))
}

func NewBulkSendError(errs []error, results []interface{}, requests []TL) error {
	return merry.Wrap(&BulkSendError{Errs: errs, Results: results, Requests: requests})
}

// AsTransportError reports whether err is (or wraps) a *TransportError.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

// AsSecurityError reports whether err is (or wraps) a *SecurityError.
func AsSecurityError(err error) (*SecurityError, bool) {
	var se *SecurityError
	ok := errors.As(err, &se)
	return se, ok
}

// AsRPCError reports whether err is (or wraps) an *RPCError.
func AsRPCError(err error) (*RPCError, bool) {
	var re *RPCError
	ok := errors.As(err, &re)
	return re, ok
}

// AsBadMessageError reports whether err is (or wraps) a *BadMessageError.
func AsBadMessageError(err error) (*BadMessageError, bool) {
	var be *BadMessageError
	ok := errors.As(err, &be)
	return be, ok
}

// IsClosedConnErr reports whether err indicates the underlying connection
// was already closed.
func IsClosedConnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}

// WrongRespError formats an unexpected-response error, kept from the
// WrongRespError helper.
func WrongRespError(x interface{}) error {
	return merry.Errorf("RPC: unexpected response %#v", x)
}
