package runtime

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/marketsync/internal/adapters/driven/marketplace"
	"github.com/custodia-labs/marketsync/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/marketsync/internal/adapters/driven/redis"
	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/core/services"
	"github.com/custodia-labs/marketsync/internal/worker"
)

// Lock backends reported by Services.LockBackend
const (
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

// Options are the connected infrastructure handles the services are built on
type Options struct {
	DB          *postgres.DB
	Redis       redis.UniversalClient // Optional: selects the Redis lock
	Cipher      *postgres.TokenCipher // Optional: encrypts tokens at rest
	Marketplace marketplace.Config    // Base URL, OAuth client and HTTP tuning
	LockOwner   string                // Optional: Redis lock owner id
	Logger      *slog.Logger
}

// Services wires the stores, adapters and core services of one process.
type Services struct {
	logger      *slog.Logger
	lockBackend string

	Client       *marketplace.Client
	Lock         driven.DistributedLock
	Config       driving.SyncConfigService
	Orchestrator *services.SyncOrchestrator
	Tokens       *services.TokenManager
}

// NewServices builds the service graph. The Redis lock is used when a Redis
// client is given, otherwise PostgreSQL advisory locks.
func NewServices(opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accounts := postgres.NewAccountStore(opts.DB, opts.Cipher)
	configService := services.NewSyncConfigService(postgres.NewSyncConfigStore(opts.DB), logger)

	mpConfig := opts.Marketplace
	mpConfig.Logger = logger
	if mpConfig.Sync == (domain.SyncConfig{}) {
		mpConfig.Sync = domain.DefaultSyncConfig()
	}
	client := marketplace.NewClient(mpConfig)

	s := &Services{
		logger: logger,
		Client: client,
		Config: configService,
		Orchestrator: services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
			Client:   client,
			Accounts: accounts,
			Products: postgres.NewProductStore(opts.DB),
			States:   postgres.NewSyncStateStore(opts.DB),
			Jobs:     postgres.NewSyncJobStore(opts.DB),
			Logs:     postgres.NewSyncLogStore(opts.DB),
			Config:   configService,
			Logger:   logger,
		}),
		Tokens: services.NewTokenManager(services.TokenManagerConfig{
			Accounts:  accounts,
			Exchanger: marketplace.NewTokenClient(mpConfig),
			Logger:    logger,
		}),
	}

	if opts.Redis != nil {
		s.Lock = redisadapter.NewLock(opts.Redis, redisadapter.LockConfig{OwnerID: opts.LockOwner})
		s.lockBackend = LockBackendRedis
	} else {
		s.Lock = postgres.NewAdvisoryLock(opts.DB)
		s.lockBackend = LockBackendPostgres
	}

	return s
}

// LockBackend names the distributed lock implementation in use
func (s *Services) LockBackend() string {
	return s.lockBackend
}

// NewWorker creates a worker hosting the periodic tasks on these services
func (s *Services) NewWorker(lockTTL time.Duration, lockRequired bool) *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		Orchestrator: s.Orchestrator,
		Tokens:       s.Tokens,
		Config:       s.Config,
		Lock:         s.Lock,
		Logger:       s.logger,
		LockTTL:      lockTTL,
		LockRequired: lockRequired,
	})
}
