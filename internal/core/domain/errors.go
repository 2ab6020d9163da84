package domain

import (
	"fmt"
	"time"
)

// ConfigError wraps a malformed or semantically invalid configuration document.
// Fatal at startup (spec §7).
type ConfigError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfigError(field, reason string, err error) *ConfigError {
	return &ConfigError{Field: field, Reason: reason, Err: err}
}

// BindError means a listener could not bind its address. Fatal for that proxy
// instance only - a crash in one proxy instance must not affect its peers.
type BindError struct {
	Err  error
	Addr string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func NewBindError(addr string, err error) *BindError {
	return &BindError{Addr: addr, Err: err}
}

// ResolverTransportError is a transport-layer HTTP failure talking to the naming
// service. Transient: logged, the next poll interval re-attempts.
type ResolverTransportError struct {
	Err error
	URL string
}

func (e *ResolverTransportError) Error() string {
	return fmt.Sprintf("resolver transport error for %s: %v", e.URL, e.Err)
}

func (e *ResolverTransportError) Unwrap() error {
	return e.Err
}

// ResolverUnexpectedStatusError is a non-200 HTTP response from the naming service.
type ResolverUnexpectedStatusError struct {
	URL        string
	StatusCode int
}

func (e *ResolverUnexpectedStatusError) Error() string {
	return fmt.Sprintf("resolver: unexpected status %d from %s", e.StatusCode, e.URL)
}

// ResolverNotBoundError means the response's "type" was not "bound". Treated as an
// empty, transient result.
type ResolverNotBoundError struct {
	Kind string
}

func (e *ResolverNotBoundError) Error() string {
	return fmt.Sprintf("resolver: name not bound (type=%q)", e.Kind)
}

// ResolverParseError means the response body was not valid/expected JSON.
type ResolverParseError struct {
	Err error
}

func (e *ResolverParseError) Error() string {
	return fmt.Sprintf("resolver: parse error: %v", e.Err)
}

func (e *ResolverParseError) Unwrap() error {
	return e.Err
}

// ResolverTimerError means the resolver's interval timer itself failed. Fatal for
// that resolver (and therefore that proxy instance).
type ResolverTimerError struct {
	Err error
}

func (e *ResolverTimerError) Error() string {
	return fmt.Sprintf("resolver: timer failure: %v", e.Err)
}

func (e *ResolverTimerError) Unwrap() error {
	return e.Err
}

// ConnectTimeoutError means a connect attempt was aborted by the connect timeout.
type ConnectTimeoutError struct {
	Addr    string
	Timeout time.Duration
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("connect %s: timed out after %s", e.Addr, e.Timeout)
}

// ConnectIOError wraps a raw dial/network failure.
type ConnectIOError struct {
	Err  error
	Addr string
}

func (e *ConnectIOError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectIOError) Unwrap() error {
	return e.Err
}

// ConnectTLSError wraps a client TLS handshake failure.
type ConnectTLSError struct {
	Err  error
	Addr string
}

func (e *ConnectTLSError) Error() string {
	return fmt.Sprintf("connect %s: tls handshake failed: %v", e.Addr, e.Err)
}

func (e *ConnectTLSError) Unwrap() error {
	return e.Err
}

// PipeIOError is a per-connection read/write failure. Not retried; both sides of
// the pipe are closed.
type PipeIOError struct {
	Err    error
	Side   string // copy direction: "inbound->outbound" or "outbound->inbound"
	Detail string // failed operation, e.g. "copy"
}

func (e *PipeIOError) Error() string {
	return fmt.Sprintf("pipe %s %s: %v", e.Side, e.Detail, e.Err)
}

func (e *PipeIOError) Unwrap() error {
	return e.Err
}
