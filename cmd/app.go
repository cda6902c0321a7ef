package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-juris/core/config"
	"github.com/AzielCF/az-juris/core/database"
	domainBot "github.com/AzielCF/az-juris/domains/bot"
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainCredential "github.com/AzielCF/az-juris/domains/credential"
	domainHealth "github.com/AzielCF/az-juris/domains/health"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainNotify "github.com/AzielCF/az-juris/domains/notify"
	domainWebhook "github.com/AzielCF/az-juris/domains/webhook"
	"github.com/AzielCF/az-juris/infrastructure/broker"
	"github.com/AzielCF/az-juris/infrastructure/gateway"
	"github.com/AzielCF/az-juris/infrastructure/repository"
	"github.com/AzielCF/az-juris/infrastructure/valkey"
	"github.com/AzielCF/az-juris/pkg/msgworker"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/websocket"
	"github.com/AzielCF/az-juris/usecase"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	brokerDialAttempts = 5
	brokerDialDelay    = 2 * time.Second
)

// application holds every long-lived component. Commands build it once and
// Close it on the way out; nothing here is a package global.
type application struct {
	cfg      *config.Config
	db       *gorm.DB
	serverID string

	instanceRepo domainInstance.IInstanceRepository

	credentials domainCredential.ICredentialUsecase
	reconciler  domainInstance.IReconcilerUsecase
	instances   domainInstance.IInstanceUsecase
	chats       domainChat.IChatUsecase
	send        domainChat.ISendUsecase
	bots        domainBot.IBotUsecase
	webhook     domainWebhook.IWebhookUsecase
	health      domainHealth.IHealthUsecase

	pool   *msgworker.MessageWorkerPool
	hub    *websocket.Hub
	valkey *valkey.Client
	broker *broker.Publisher
}

type buildOptions struct {
	// realtime builds the worker pool, websocket hub, Valkey and broker.
	realtime bool
}

func buildApp(ctx context.Context, cfg *config.Config, opts buildOptions) (*application, error) {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db, cfg.Database.ManageCases); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	a := &application{
		cfg:      cfg,
		db:       db,
		serverID: utils.GetPersistentServerID(cfg.App.ServerID, cfg.App.StorageDir),
	}

	var notifiers []domainNotify.INotifier
	if opts.realtime {
		if err := a.buildRealtime(ctx); err != nil {
			a.Close()
			return nil, err
		}
		notifiers = append(notifiers, a.hub)
		if a.broker != nil {
			notifiers = append(notifiers, a.broker)
		}
	}
	notifier := domainNotify.Multi(notifiers...)

	instanceRepo := repository.NewInstanceGormRepository(db)
	chatRepo := repository.NewChatGormRepository(db)
	botRepo := repository.NewBotConfigGormRepository(db)
	caseRepo := repository.NewCaseGormRepository(db)
	a.instanceRepo = instanceRepo

	a.credentials = usecase.NewCredentialService(repository.NewCredentialGormRepository(db), cfg.Gateway.APIKey)
	gw := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	}, a.credentials, nil)

	a.reconciler = usecase.NewReconcilerService(instanceRepo, gw, notifier, cfg.Reconciler.Interval, cfg.Reconciler.Concurrency)
	a.instances = usecase.NewInstanceService(instanceRepo, gw, a.reconciler, notifier, cfg.WebhookURL)
	a.chats = usecase.NewChatService(chatRepo, instanceRepo, caseRepo, notifier)
	a.send = usecase.NewSendService(instanceRepo, gw, a.chats)
	a.bots = usecase.NewBotService(botRepo, instanceRepo)

	responder := usecase.NewAutoResponder(botRepo, caseRepo, a.chats, gw, cfg.Gateway.Timeout)
	var dispatcher usecase.Dispatcher
	if a.pool != nil {
		dispatcher = a.pool
	}
	a.webhook = usecase.NewWebhookService(a.instances, instanceRepo, a.chats, responder, dispatcher)

	a.health = usecase.NewHealthService(a.probes(), a.extras())
	return a, nil
}

func (a *application) buildRealtime(ctx context.Context) error {
	a.pool = msgworker.NewMessageWorkerPool(a.cfg.WorkerPool.Size, a.cfg.WorkerPool.QueueSize)

	var pubsub websocket.PubSub
	channel := valkey.NormalizePrefix(a.cfg.Valkey.KeyPrefix) + "ws_broadcast"
	if a.cfg.Valkey.Enabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   a.cfg.Valkey.Address,
			Password:  a.cfg.Valkey.Password,
			DB:        a.cfg.Valkey.DB,
			KeyPrefix: a.cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("connecting to valkey: %w", err)
		}
		a.valkey = client
		pubsub = client
		channel = client.Key("ws_broadcast")
		logrus.Infof("[WS] Valkey fan-out enabled on %s", a.cfg.Valkey.Address)
	}
	a.hub = websocket.NewHub(pubsub, channel, a.serverID)

	if a.cfg.Broker.URL != "" {
		conn, err := broker.DialWithRetry(ctx, a.cfg.Broker.URL, brokerDialAttempts, brokerDialDelay)
		if err != nil {
			return err
		}
		publisher, err := broker.NewPublisher(conn, a.cfg.Broker.Exchange)
		if err != nil {
			_ = conn.Close()
			return err
		}
		a.broker = publisher
		logrus.Infof("[BROKER] Publishing integration events to exchange %s", a.cfg.Broker.Exchange)
	}
	return nil
}

// start launches the background loops; they stop when ctx ends. Workers
// outlive ctx so Close can drain queued replies.
func (a *application) start(ctx context.Context) {
	if a.pool != nil {
		a.pool.Start(context.WithoutCancel(ctx))
	}
	if a.hub != nil {
		go a.hub.Run(ctx)
	}
	if a.broker != nil {
		go a.broker.Run(ctx)
	}
	a.reconciler.Start(ctx)
}

func (a *application) probes() map[string]domainHealth.Probe {
	probes := map[string]domainHealth.Probe{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.valkey != nil {
		probes["valkey"] = a.valkey.Ping
	}
	return probes
}

func (a *application) extras() map[string]func() any {
	extras := map[string]func() any{
		"server_id": func() any { return a.serverID },
		"version":   func() any { return a.cfg.App.Version },
	}
	if a.pool != nil {
		extras["worker_pool"] = func() any { return a.pool.GetStats() }
	}
	return extras
}

// Close releases everything in reverse dependency order. Queued auto-replies
// are drained before the database closes.
func (a *application) Close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			logrus.Warnf("[BROKER] Close: %v", err)
		}
	}
	if a.valkey != nil {
		a.valkey.Close()
	}
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Warnf("[DB] Close: %v", err)
	}
}
