package cmd

import (
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AzielCF/az-juris/core/config"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the webhook endpoint and the UI API",
	Long:  `Starts the HTTP server, the auto-responder workers and the status reconciler loop.`,
	RunE:  restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) error {
	cfg := config.Global

	accounts, err := basicAuthAccounts(cfg.App.BasicAuth)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, buildOptions{realtime: true})
	if err != nil {
		return err
	}
	defer a.Close()

	app := newFiberApp(cfg, accounts, a)

	a.start(ctx)

	go func() {
		<-ctx.Done()
		logrus.Info("[REST] Termination signal received, shutting down gracefully...")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	logrus.Infof("[REST] Listening on :%s (server %s)", cfg.App.Port, a.serverID)
	return app.Listen(":" + cfg.App.Port)
}

func newFiberApp(cfg *config.Config, accounts map[string]string, a *application) *fiber.App {
	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: len(cfg.App.TrustedProxies) > 0,
		Network:                 "tcp",
		AppName:                 "az-juris " + cfg.App.Version,
		DisableStartupMessage:   true,
		ServerHeader:            "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, " + middleware.TenantHeader,
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
	}))
	// Gateway deliveries for every tenant share one source IP.
	webhookPrefix := cfg.App.BasePath + "/webhook/"
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPrefix)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	// The gateway posts here with the shared token, not basic auth.
	rest.InitRestWebhook(app.Group(cfg.App.BasePath), a.webhook, cfg.Webhook.Token)

	api := app.Group(cfg.App.BasePath+"/api", basicauth.New(basicauth.Config{
		Users: accounts,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))
	rest.InitRestHealth(api, a.health)

	tenantAPI := api.Group("", middleware.Tenant())
	rest.InitRestInstance(tenantAPI, a.instances)
	rest.InitRestChat(tenantAPI, a.chats, a.send)
	rest.InitRestBot(tenantAPI, a.bots)
	rest.InitRestCredential(tenantAPI, a.credentials)
	rest.InitRestWorkerPool(tenantAPI, a.pool)
	a.hub.RegisterRoutes(tenantAPI, a.instances)

	api.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(utils.ResponseData{
			Status:  fiber.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: "API endpoint not found: " + c.Path(),
		})
	})

	return app
}

func basicAuthAccounts(credentials []string) (map[string]string, error) {
	if len(credentials) == 0 {
		return nil, errBasicAuthRequired
	}
	accounts := make(map[string]string, len(credentials))
	for _, credential := range credentials {
		user, secret, ok := strings.Cut(credential, ":")
		if !ok || user == "" || secret == "" {
			return nil, errBasicAuthFormat
		}
		accounts[user] = secret
	}
	return accounts, nil
}

var (
	errBasicAuthRequired = errors.New("APP_BASIC_AUTH is required; set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>]")
	errBasicAuthFormat   = errors.New("basic auth must use the format <user>:<secret>")
)
