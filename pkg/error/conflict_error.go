package error

import "net/http"

type ConflictError string

func (err ConflictError) Error() string {
	return string(err)
}

func (err ConflictError) ErrCode() string {
	return "CONFLICT"
}

func (err ConflictError) StatusCode() int {
	return http.StatusConflict
}

// InstanceNotConnectedError is returned when an outbound action needs a live session.
type InstanceNotConnectedError string

func (err InstanceNotConnectedError) Error() string {
	return string(err)
}

func (err InstanceNotConnectedError) ErrCode() string {
	return "INSTANCE_NOT_CONNECTED"
}

func (err InstanceNotConnectedError) StatusCode() int {
	return http.StatusConflict
}
