package middleware

import (
	"strings"

	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	TenantHeader = "X-Tenant-ID"
	tenantKey    = "tenant_id"
)

// Tenant requires the X-Tenant-ID header set by the upstream auth layer.
func Tenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := strings.TrimSpace(c.Get(TenantHeader))
		if tenantID == "" {
			utils.PanicIfNeeded(domainInstance.ErrTenantRequired)
		}
		c.Locals(tenantKey, tenantID)
		return c.Next()
	}
}

func TenantID(c *fiber.Ctx) string {
	tenantID, _ := c.Locals(tenantKey).(string)
	return tenantID
}
