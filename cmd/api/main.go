package main

import (
	"context"
	"expvar"
	"log"
	"os"
	"runtime"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/db"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/storage"
	"storefront/internal/domain/storage/memstore"
	"storefront/internal/events"
	"storefront/internal/sales"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger: colored console output while developing,
// JSON in production.
func NewLogger(env string) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if env == "production" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
	return zap.New(core).Sugar()
}

var version = "0.3.0"

//	@title			Storefront API
//	@description	Catalog and order API. Orders reserve stock atomically across all their lines.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := loadConfig()

	logger := NewLogger(cfg.env)
	defer logger.Sync()

	if err := cfg.validate(); err != nil {
		logger.Fatal(err)
	}

	gen, err := orders.NewOrderNumberGenerator(cfg.orderNumberSalt)
	if err != nil {
		logger.Fatal(err)
	}

	// Storage
	var (
		store *storage.Container
		pool  *pgxpool.Pool
	)
	switch cfg.store.driver {
	case "memory":
		store = memstore.New(gen).Container()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		pool, err = db.New(cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		if cfg.store.autoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := db.Migrate(ctx, pool)
			cancel()
			if err != nil {
				logger.Fatal(err)
			}
			logger.Info("database schema applied")
		}
		store = storage.NewContainer(pool, gen)
	}

	// Events
	var publisher events.Publisher = events.Nop{}
	if len(cfg.kafka.brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.kafka.brokers, cfg.kafka.topic)
		logger.Infow("publishing order events", "brokers", cfg.kafka.brokers, "topic", cfg.kafka.topic)
	}

	// Product cache
	var backend cache.Backend
	if cfg.redis.addr != "" {
		rb := cache.NewRedisBackend(cfg.redis.addr)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rb.Ping(ctx); err != nil {
			logger.Warnw("redis unreachable, product cache will fall through until it recovers", "addr", cfg.redis.addr, "error", err)
		}
		cancel()
		backend = rb
	}
	productCache := cache.NewProductCache(backend, cfg.redis.productTTL, logger)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.exp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		orders:        sales.NewOrderService(sales.NewStockLedger(store, logger), store.Orders, productCache, publisher, logger),
		productCache:  productCache,
		publisher:     publisher,
		authenticator: jwtAuthenticator,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		if pool == nil {
			return nil
		}
		st := pool.Stat()
		return map[string]any{
			"max_conns":      st.MaxConns(),
			"total_conns":    st.TotalConns(),
			"idle_conns":     st.IdleConns(),
			"acquired_conns": st.AcquiredConns(),
			"acquire_count":  st.AcquireCount(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Fatal(err)
	}
}
