package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/docs" //this is required to generate swagger docs
	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/domain/storage"
	"storefront/internal/events"
	"storefront/internal/sales"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	orders        *sales.OrderService
	productCache  *cache.ProductCache
	publisher     events.Publisher
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
}

type config struct {
	addr            string
	env             string
	apiURL          string
	store           storeConfig
	db              dbConfig
	auth            authConfig
	orderNumberSalt string
	kafka           kafkaConfig
	redis           redisConfig
}

type storeConfig struct {
	driver      string
	autoMigrate bool
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	exp    time.Duration
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type kafkaConfig struct {
	brokers []string
	topic   string
}

type redisConfig struct {
	addr       string
	productTTL time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		// Public catalog
		r.Route("/products", func(r chi.Router) {
			r.Get("/", app.listProductsHandler)
			r.Get("/{productID}", app.getProductHandler)
		})

		// Customer orders
		r.Route("/orders", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.placeOrderHandler)
			r.Get("/", app.listMyOrdersHandler)
			r.Get("/{orderID}", app.getMyOrderHandler)
			r.Post("/{orderID}/cancel", app.cancelMyOrderHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireAdmin)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", app.adminListProductsHandler)
				r.Post("/", app.createProductHandler)
				r.Patch("/{productID}", app.updateProductHandler)
				r.Delete("/{productID}", app.deleteProductHandler)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", app.adminListOrdersHandler)
				r.Get("/{orderID}", app.adminGetOrderHandler)
				r.Patch("/{orderID}/status", app.adminUpdateOrderStatusHandler)
				r.Delete("/{orderID}", app.adminDeleteOrderHandler)
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env, "store", app.config.store.driver)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	// In-flight requests are done; flush what they queued.
	if err := app.publisher.Close(); err != nil {
		app.logger.Warnw("closing event publisher", "error", err)
	}
	if err := app.productCache.Close(); err != nil {
		app.logger.Warnw("closing product cache", "error", err)
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
