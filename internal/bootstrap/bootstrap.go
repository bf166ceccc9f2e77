// Package bootstrap is the composition root shared by the API server, the worker and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/adapters/storage"
	"prospector_backend/internal/discovery"
	"prospector_backend/internal/dispatch"
	"prospector_backend/internal/email"
	"prospector_backend/internal/events"
	"prospector_backend/internal/leads"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/notification"
	"prospector_backend/internal/outreach"
	"prospector_backend/internal/replies"
	"prospector_backend/internal/scheduler"
	"prospector_backend/internal/settings"
	"prospector_backend/internal/sms"
	"prospector_backend/internal/webhook"
	"prospector_backend/internal/whatsapp"
	"prospector_backend/platform/config"
	"prospector_backend/platform/db"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/validator"
)

// Container holds every long-lived dependency of a process.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Bus       *events.InMemoryBus
	Validator *validator.Validator
	Queue     *scheduler.Client

	Settings *settings.Store
	Activity *activity.Repository
	Messages *messages.Repository
	Replies  *replies.Repository

	Email      email.Sender
	WhatsApp   *whatsapp.Client
	SMS        *sms.Client
	Dispatcher *dispatch.Dispatcher

	Leads        *leads.Module
	ReplyRouter  *replies.Router
	Notification *notification.Module
	Scan         *discovery.ScanService

	// Archive is nil when object storage is not configured.
	Archive *webhook.PayloadArchive

	closers []func()
}

// New connects to the database and Redis and wires the domain modules.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, pool.Close)
	log.Info("database connection established")

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Redis = redisClient
	c.closers = append(c.closers, func() { _ = redisClient.Close() })

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init task queue: %w", err)
	}
	c.Queue = queue
	c.closers = append(c.closers, func() { _ = queue.Close() })

	c.Bus = events.NewInMemoryBus(log)
	c.Validator = validator.New()
	c.Activity = activity.NewRepository(pool)
	c.Messages = messages.NewRepository(pool)
	c.Replies = replies.NewRepository(pool)

	c.Settings = settings.NewStore(settings.NewRepository(pool), redisClient, log)
	if err := c.Settings.Reload(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if err := c.initChannels(); err != nil {
		c.Close()
		return nil, err
	}

	generator, err := outreach.NewGenerator(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init content generator: %w", err)
	}

	c.Leads = leads.NewModule(leads.ModuleDeps{
		Pool:      pool,
		Bus:       c.Bus,
		Validator: c.Validator,
		Composer:  outreach.NewComposer(generator),
		Dispatch:  c.Dispatcher,
		Scheduler: queue,
		Settings:  c.Settings,
		Messages:  c.Messages,
		Replies:   c.Replies,
		Activity:  c.Activity,
		Log:       log,
	})

	region := cfg.GetDefaultPhoneRegion()
	c.ReplyRouter = replies.NewRouter(c.Leads.Repository(), c.Replies, c.Leads.Orchestrator(), c.Activity, c.Bus, region, log)

	notifDeps := notification.Deps{
		Sender:   c.Email,
		Config:   cfg,
		Leads:    c.Leads.Repository(),
		Activity: c.Activity,
		Settings: c.Settings,
		Log:      log,
	}
	if c.WhatsApp != nil {
		notifDeps.WhatsApp = c.WhatsApp
	}
	c.Notification = notification.New(notifDeps)
	c.Notification.RegisterHandlers(c.Bus)
	c.closers = append(c.closers, c.Notification.Stream().Close)

	c.Scan = discovery.NewScanService(discovery.ScanDeps{
		Source:   discovery.NewPlacesClient(cfg.GetGooglePlacesAPIKey(), log),
		Prober:   discovery.NewProber(cfg.GetProbeTimeout()),
		Leads:    c.Leads.Repository(),
		Runs:     c.Activity,
		Settings: c.Settings,
		Bus:      c.Bus,
		Region:   region,
		Log:      log,
	})

	if err := c.initArchive(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.closers = append(c.closers, c.Bus.Wait)
	return c, nil
}

func (c *Container) initChannels() error {
	sender, err := email.NewSender(c.Config)
	if err != nil {
		return fmt.Errorf("init email sender: %w", err)
	}
	c.Email = sender

	region := c.Config.GetDefaultPhoneRegion()
	c.WhatsApp = whatsapp.NewClient(c.Config, region, c.Log)
	c.SMS = sms.NewClient(c.Config, region, c.Log)

	deps := dispatch.Deps{
		Email:    sender,
		Messages: c.Messages,
		Audit:    c.Activity,
		Log:      c.Log,
	}
	// Typed nil pointers must not end up in the interfaces.
	if c.WhatsApp != nil {
		deps.WhatsApp = c.WhatsApp
	}
	if c.SMS != nil {
		deps.SMS = c.SMS
	}
	c.Dispatcher = dispatch.New(deps)

	c.Log.Info("channels initialized",
		"email", sender != nil, "whatsapp", c.WhatsApp != nil, "sms", c.SMS != nil)
	return nil
}

func (c *Container) initArchive(ctx context.Context) error {
	if !c.Config.IsMinIOEnabled() {
		c.Log.Info("object storage not configured; raw inbound payloads are not archived")
		return nil
	}
	store, err := storage.NewMinIOService(c.Config)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	bucket := c.Config.GetMinioBucketInboundPayloads()
	if err := WithRetry(ctx, c.Log, "ensure inbound payload bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	c.Archive = webhook.NewPayloadArchive(store, bucket)
	c.Log.Info("storage service initialized", "inboundPayloadsBucket", bucket)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// WithRetry runs fn up to attempts times with exponential backoff starting at baseDelay.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(); err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
