package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicops/medflow/ai"
	"github.com/clinicops/medflow/config"
	"github.com/clinicops/medflow/engine"
	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/persistence"
	rd "github.com/clinicops/medflow/persistence/redis"
	"github.com/clinicops/medflow/persistence/sqlite"
	"github.com/clinicops/medflow/rest"
	"github.com/clinicops/medflow/whatsapp"
)

// Agent assembles storage, collaborators, the engine, the schedule scanner
// and the http server, and owns their lifecycle.
type Agent struct {
	Config       config.Config
	storage      persistence.Storage
	engine       *engine.Engine
	scheduler    *engine.Scheduler
	httpServer   *rest.Server
	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config:    conf,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupStorage,
		a.setupEngine,
		a.setupScheduler,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_SQLITE:
		db, err := sqlite.Open(a.Config.SqliteConfig.Path)
		if err != nil {
			return err
		}
		a.storage = sqlite.NewStorage(db)
	case config.STORAGE_TYPE_REDIS:
		a.storage = rd.NewStorage(rd.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
		})
	default:
		return fmt.Errorf("unknown storage type %s", a.Config.StorageType)
	}
	return nil
}

func (a *Agent) setupEngine() error {
	aiSvc, err := a.buildAiService()
	if err != nil {
		return err
	}
	messenger := whatsapp.NewClient(a.Config.WhatsappConfig.PhoneNumberId, a.Config.WhatsappConfig.AccessToken)
	a.engine = engine.New(a.storage, aiSvc, messenger, engine.Config{
		MaxDepth: a.Config.EngineConfig.MaxDepth,
		CacheTTL: time.Duration(a.Config.EngineConfig.CacheTTLSeconds) * time.Second,
	})
	return nil
}

func (a *Agent) buildAiService() (*ai.Service, error) {
	var primary, fallback ai.Provider
	if a.Config.AIConfig.GeminiApiKey != "" {
		p, err := ai.NewGeminiProvider(context.Background(), a.Config.AIConfig.GeminiApiKey, a.Config.AIConfig.GeminiModel)
		if err != nil {
			return nil, err
		}
		primary = p
	}
	if a.Config.AIConfig.OpenAIApiKey != "" {
		p := ai.NewOpenAIProvider(a.Config.AIConfig.OpenAIApiKey, a.Config.AIConfig.OpenAIModel)
		if primary == nil {
			primary = p
		} else {
			fallback = p
		}
	}
	if primary == nil {
		logger.Warn("no ai provider configured, ai_response steps will fail")
	}
	return ai.NewService(primary, fallback), nil
}

func (a *Agent) setupScheduler() error {
	tick := time.Duration(a.Config.EngineConfig.ScheduleTickSeconds) * time.Second
	if tick <= 0 {
		tick = 30 * time.Second
	}
	a.scheduler = engine.NewScheduler(a.engine, tick, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.engine, a.storage)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.scheduler.Start()
	go func() {
		err := a.httpServer.Start()
		if err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		func() error {
			a.scheduler.Stop()
			return nil
		},
		a.httpServer.Stop,
		a.storage.Close,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	logger.Sync()
	return nil
}
