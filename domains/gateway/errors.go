package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrTimeout = errors.New("gateway request timed out")

// Error describes a failed gateway call. Status is zero when no response
// was received.
type Error struct {
	Op      string
	Status  int
	Body    string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("gateway %s: timed out", e.Op)
	case e.Status == 0:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("gateway %s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// Transient reports failures worth retrying: timeouts, transport errors and 5xx.
func (e *Error) Transient() bool {
	return e.Timeout || e.Status == 0 || e.Status >= 500
}

func (e *Error) ErrCode() string {
	switch {
	case e.Timeout:
		return "GATEWAY_TIMEOUT"
	case e.Status == 0:
		return "GATEWAY_UNAVAILABLE"
	case e.Status == http.StatusNotFound:
		return "GATEWAY_NOT_FOUND"
	default:
		return "GATEWAY_ERROR"
	}
}

// StatusCode passes gateway 4xx through and maps the rest to 502/504.
func (e *Error) StatusCode() int {
	switch {
	case e.Timeout:
		return http.StatusGatewayTimeout
	case e.Transient():
		return http.StatusBadGateway
	default:
		return e.Status
	}
}

func IsNotFound(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Status == http.StatusNotFound
}

func IsTransient(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Transient()
}

// IsNotConnected reports a gateway refusal because the session is already
// closed: 404 for an unknown session, or 400 saying "not connected".
func IsNotConnected(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	switch gwErr.Status {
	case http.StatusNotFound:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(gwErr.Body), "not connected")
	}
	return false
}
