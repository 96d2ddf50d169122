package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
)

var (
	ErrTransfersUnsupported = errors.New("provider does not support transfers")
	ErrMissingToken         = errors.New("api token not set")
)

// ErrorKind says where a remote call failed
type ErrorKind int

const (
	KindUnknown   ErrorKind = iota
	KindHTTP                // the API answered with a non-2xx status
	KindTransport           // the request never got a response
	KindDecode              // the response body could not be understood
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// TransportCode names a network-level failure
type TransportCode string

const (
	TransportHostNotFound  TransportCode = "ENOTFOUND"
	TransportConnRefused   TransportCode = "ECONNREFUSED"
	TransportConnReset     TransportCode = "ECONNRESET"
	TransportTimeout       TransportCode = "ETIMEDOUT"
	TransportSocketTimeout TransportCode = "ESOCKETTIMEDOUT"
	TransportBrokenPipe    TransportCode = "EPIPE"
)

// APIError is the failure of one remote call, classified where the call returns
type APIError struct {
	Kind          ErrorKind
	StatusCode    int           // set for KindHTTP
	TransportCode TransportCode // set for KindTransport when the cause is recognised
	Message       string
	Err           error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Message != "" {
			return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
		}
		return fmt.Sprintf("api returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case KindTransport:
		if e.TransportCode != "" {
			return fmt.Sprintf("request failed (%s): %v", e.TransportCode, e.Err)
		}
		return fmt.Sprintf("request failed: %v", e.Err)
	case KindDecode:
		return fmt.Sprintf("decoding api response: %v", e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt:
// 429, any 5xx, or a recognised network-level failure.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindHTTP:
		return e.StatusCode == http.StatusTooManyRequests ||
			(e.StatusCode >= 500 && e.StatusCode < 600)
	case KindTransport:
		return e.TransportCode != ""
	}
	return false
}

// IsRetryable reports whether err carries a retryable *APIError.
// Errors of any other shape are terminal.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// httpError builds the error for a non-2xx response
func httpError(status int, message string) *APIError {
	return &APIError{Kind: KindHTTP, StatusCode: status, Message: message}
}

// transportError classifies an error returned by http.Client.Do
func transportError(err error) *APIError {
	return &APIError{Kind: KindTransport, TransportCode: classifyTransport(err), Err: err}
}

func classifyTransport(err error) TransportCode {
	// the caller gave up; retrying would only be cancelled again
	if errors.Is(err, context.Canceled) {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return TransportTimeout
		}
		return TransportHostNotFound
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return TransportConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return TransportConnReset
	case errors.Is(err, syscall.EPIPE):
		return TransportBrokenPipe
	case errors.Is(err, os.ErrDeadlineExceeded):
		return TransportSocketTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return TransportTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}
	return ""
}
