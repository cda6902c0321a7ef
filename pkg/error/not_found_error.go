package error

import "net/http"

// NotFoundError covers unknown instances, chats and bot configs, and any
// tenant-scoped lookup that misses.
type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}
