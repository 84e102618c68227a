package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tutorchat/internal/app"
	"tutorchat/internal/backend"
	"tutorchat/internal/cache"
	"tutorchat/internal/config"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
	mysqlClient "tutorchat/internal/platform/mysql"
	rabbitmqClient "tutorchat/internal/platform/rabbitmq"
	redisClient "tutorchat/internal/platform/redis"
	"tutorchat/internal/repository"
	"tutorchat/internal/session"
	"tutorchat/internal/worker"
	"tutorchat/internal/workspace"
)

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Backend  *backend.Client
	Registry *workspace.Registry
	Verifier *session.Verifier

	// Transcript is nil unless enabled in config.
	Transcript     *app.TranscriptService
	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	ExchangeWorker *worker.ExchangePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(logger.Options{Mode: cfg.Log.Mode, FilePath: cfg.Log.FilePath})
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    log,
		Backend:   backend.NewClient(cfg.Backend.BaseURL, &http.Client{}),
		StartedAt: time.Now(),
	}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	var prefs workspace.PreferenceStore
	if a.Redis != nil {
		prefs = cache.NewPreferenceCache(a.Redis, time.Duration(cfg.Redis.PreferenceTTLHours)*time.Hour)
	}

	var sink app.TranscriptSink
	if a.Transcript != nil {
		sink = a.Transcript
	}

	a.Registry = workspace.NewRegistry(workspace.Options{
		Backend:         a.Backend,
		Transcript:      sink,
		Preferences:     prefs,
		Logger:          log,
		DefaultIdentity: cfg.Defaults.UserID,
		DefaultCourseID: cfg.Defaults.CourseID,
		IdleTTL:         time.Duration(cfg.Workspace.IdleTTLMinutes) * time.Minute,
		MaxImageBytes:   cfg.MaxImageBytes(),
	})

	if cfg.AuthEnabled() {
		a.Verifier = session.NewVerifier(session.VerifierOptions{
			ProjectURL: cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.AnonKey,
			JWTSecret:  cfg.Supabase.JWTSecret,
		})
	}

	log.Info("bootstrap complete",
		"backend", cfg.Backend.BaseURL,
		"auth", cfg.AuthEnabled(),
		"redis", a.Redis != nil,
		"transcript", a.Transcript != nil,
	)
	return a, nil
}

// connect opens the optional platform dependencies.
func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, redisClient.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  time.Duration(cfg.Redis.DialTimeoutMS) * time.Millisecond,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		a.Redis = redisCli
	}

	if !cfg.Transcript.Enabled {
		return nil
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.PoolOptions{})
	if err != nil {
		return err
	}
	a.MySQL = mysqlDB
	if err := mysqlDB.AutoMigrate(&model.Exchange{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
	if err != nil {
		return err
	}
	a.MQConn = mqConn

	exchangeRepo := repository.NewExchangeRepository(mysqlDB)
	a.ExchangeWorker = worker.NewExchangePersistWorker(mqConn, exchangeRepo, cfg.RabbitMQ.TranscriptQueue, a.Logger)
	if err := a.ExchangeWorker.Start(ctx); err != nil {
		return fmt.Errorf("start exchange worker failed: %w", err)
	}

	var transcriptCache app.TranscriptCache
	if a.Redis != nil {
		transcriptCache = cache.NewTranscriptCache(
			a.Redis,
			time.Duration(cfg.Redis.TranscriptTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.TranscriptDirtyTTLSeconds)*time.Second,
		)
	}
	a.Transcript = app.NewTranscriptService(
		rabbitmqClient.NewExchangePublisher(mqConn, cfg.RabbitMQ.TranscriptQueue),
		exchangeRepo,
		transcriptCache,
	)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ExchangeWorker != nil {
		a.ExchangeWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
	return closeErr
}
