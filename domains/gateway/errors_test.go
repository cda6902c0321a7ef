package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	notFound := &Error{Op: "delete", Status: 404, Body: `{"error":"Not Found"}`}
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", notFound)))
	assert.False(t, IsTransient(notFound))
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode())

	timeout := &Error{Op: "connect", Timeout: true, Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(timeout, ErrTimeout))
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))
	assert.True(t, IsTransient(timeout))
	assert.Equal(t, http.StatusGatewayTimeout, timeout.StatusCode())

	serverErr := &Error{Op: "sendText", Status: 500}
	assert.True(t, IsTransient(serverErr))
	assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode())
	assert.Equal(t, "GATEWAY_ERROR", serverErr.ErrCode())

	var generic pkgError.GenericError
	assert.True(t, errors.As(error(serverErr), &generic))
}

func TestIsNotConnected(t *testing.T) {
	assert.True(t, IsNotConnected(&Error{Op: "logout", Status: 404}))
	assert.True(t, IsNotConnected(fmt.Errorf("wrapped: %w", &Error{Op: "logout", Status: 400, Body: `{"response":{"message":["The \"vendas\" instance is not connected"]}}`})))
	assert.False(t, IsNotConnected(&Error{Op: "logout", Status: 400, Body: "bad request"}))
	assert.False(t, IsNotConnected(&Error{Op: "logout", Timeout: true}))
	assert.False(t, IsNotConnected(errors.New("boom")))
}
