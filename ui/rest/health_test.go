package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/AzielCF/az-juris/domains/health"
	"github.com/AzielCF/az-juris/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type stubHealth struct{ report health.Report }

func (s stubHealth) Check(context.Context) health.Report { return s.report }

func TestHealth_StatusCodes(t *testing.T) {
	ok := newAPI(func(api fiber.Router) {
		InitRestHealth(api, stubHealth{report: health.Report{Status: health.StatusOk}})
	})
	status, _, results := call(t, ok, http.MethodGet, "/api/health", nil, tenantHeader())
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", results["status"])

	failing := newAPI(func(api fiber.Router) {
		InitRestHealth(api, stubHealth{report: health.Report{
			Status:     health.StatusError,
			Components: []health.ComponentStatus{{Name: "database", Status: health.StatusError, Message: "closed"}},
		}})
	})
	status, body, _ := call(t, failing, http.MethodGet, "/api/health", nil, tenantHeader())
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "UNHEALTHY", body.Code)
}

func TestWorkerPool_Stats(t *testing.T) {
	app := newAPI(func(api fiber.Router) { InitRestWorkerPool(api, nil) })
	status, _, _ := call(t, app, http.MethodGet, "/api/workers/stats", nil, tenantHeader())
	assert.Equal(t, http.StatusServiceUnavailable, status)

	ctx, cancel := context.WithCancel(context.Background())
	pool := msgworker.NewMessageWorkerPool(2, 10)
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	app = newAPI(func(api fiber.Router) { InitRestWorkerPool(api, pool) })
	status, _, results := call(t, app, http.MethodGet, "/api/workers/stats", nil, tenantHeader())
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, results["num_workers"])
}
