package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/brandvisor/internal/application"
	appaudits "github.com/bryanwahyu/brandvisor/internal/application/audits"
	"github.com/bryanwahyu/brandvisor/internal/config"
	domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
	openaip "github.com/bryanwahyu/brandvisor/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/brandvisor/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/brandvisor/internal/infra/db/postgres"
	"github.com/bryanwahyu/brandvisor/internal/infra/httpserver"
	serpp "github.com/bryanwahyu/brandvisor/internal/infra/search/serp"
	minioStore "github.com/bryanwahyu/brandvisor/internal/infra/storage"
	"github.com/bryanwahyu/brandvisor/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect DB sesuai driver
	var (
		repo  domain.Repository
		cites domain.CitationRepository
		dbc   middleware.HealthChecker
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		repo = postgresp.NewAuditRepository(db)
		cites = postgresp.NewCitationRepository(db)
		dbc = &middleware.DatabaseHealthChecker{DB: db}
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		repo = mysqlp.NewAuditRepository(db)
		cites = mysqlp.NewCitationRepository(db)
		dbc = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init minio (opsional, audits jalan tanpa archive)
	var archive domain.RawArchive
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		archive = store
	}

	// build adapter catalog dari config
	adapters := make(map[domain.ProviderID]providers.Adapter)
	weights := make(map[domain.ProviderID]float64)
	for _, pc := range cfg.EnabledProviders() {
		id := domain.ProviderID(pc.ID)
		switch pc.Kind {
		case providers.KindGenerative:
			adapters[id] = openaip.NewClient(pc)
		case providers.KindSearch:
			adapters[id] = serpp.NewClient(pc)
		default:
			log.Printf("skipping provider %s: unknown kind %q", pc.ID, pc.Kind)
			continue
		}
		weights[id] = pc.Weight
	}
	if len(adapters) == 0 {
		log.Println("warning: no providers enabled, every audit will fail")
	}

	// init service
	svc := &appaudits.Service{
		Adapters: adapters,
		Weights:  weights,
		Repo:     repo,
		Cites:    cites,
		Archive:  archive,
		Clock:    application.SystemClock{},
		Stagger:  time.Duration(cfg.Audit.StaggerMS) * time.Millisecond,
		Timeout:  time.Duration(cfg.Audit.TimeoutSeconds) * time.Second,
		TopN:     cfg.Audit.TopN,
	}

	// init router + middleware chain
	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.APIKeys))
	}
	mux.Use(middleware.RateLimitMiddleware(30, 1))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database":  dbc,
		"providers": &middleware.ProviderCatalogChecker{Enabled: len(adapters)},
	}))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Mount("/", httpserver.NewRouter(svc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.Audit.TimeoutSeconds+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
