package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/modelshop/internal/auth"
	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/01moynul/modelshop/internal/config"
	"github.com/01moynul/modelshop/internal/database"
	"github.com/01moynul/modelshop/internal/events"
	"github.com/01moynul/modelshop/internal/handlers"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/metrics"
	"github.com/01moynul/modelshop/internal/middleware"
	"github.com/01moynul/modelshop/internal/orders"
	"github.com/01moynul/modelshop/internal/redisx"
	"github.com/01moynul/modelshop/internal/routes"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/01moynul/modelshop/internal/users"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("CRITICAL ERROR: %v", err)
	}

	// Deferred closes live in run so they execute before log.Fatalf exits.
	if err := run(cfg); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Println("Server stopped")
}

func run(cfg config.Config) error {
	logger := logging.New(cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. --- AWS (only when a backend needs it) ---
	var awsCfg aws.Config
	if cfg.StoreBackend == "dynamodb" || cfg.S3Bucket != "" {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS configuration: %w", err)
		}
	}

	// 2. --- Entity Store ---
	var st store.Store
	switch cfg.StoreBackend {
	case "dynamodb":
		st = store.NewDynamo(dynamodb.NewFromConfig(awsCfg), map[store.Collection]string{
			store.Users:    cfg.UsersTable,
			store.Products: cfg.ProductTable,
			store.Orders:   cfg.OrdersTable,
		})
	case "mysql":
		db, err := database.OpenDB(ctx, cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("connect to primary database: %w", err)
		}
		defer closeDB(db)
		if err := database.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		st = store.NewSQL(db)
	default:
		log.Println("WARNING: using the in-memory store; data is lost on restart.")
		st = store.NewMemory()
	}

	// 3. --- Object Store ---
	var blobs blob.Store
	if cfg.S3Bucket != "" {
		blobs = blob.NewS3(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3PublicBaseURL)
	} else {
		log.Println("WARNING: S3_BUCKET_NAME is not set; model files are kept in memory.")
		blobs = blob.NewMemory()
	}

	// 4. --- Tokens ---
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	m := metrics.New(cfg.ServiceName)
	cat := catalog.New(st, blobs, catalog.Options{DefaultCategory: cfg.DefaultCategory}, logger)
	dir := users.New(st)

	deps := orders.Deps{
		Store:    st,
		Products: cat,
		Users:    dir,
		Blobs:    blobs,
		Events:   events.Nop{},
		Metrics:  m,
		Log:      logger,
	}

	// 5. --- Optional Redis (status cache + idempotency) ---
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		deps.Status = redisx.NewStatusCache(rdb)
		deps.Idempotency = redisx.NewIdempotency(rdb)
	}

	g, gctx := errgroup.WithContext(ctx)

	// 6. --- Optional Kafka producer ---
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, 0, logger)
		deps.Events = producer
		g.Go(func() error { return producer.Run(gctx) })
	}

	stockMode := orders.StockMode(cfg.StockMode)
	svc := orders.NewService(deps, orders.Options{
		StockMode:    stockMode,
		StockRetries: cfg.StockRetries,
		Compensate:   cfg.SagaCompensate,
	})

	// --- Application Setup ---
	app := &handlers.Handlers{
		Catalog:    cat,
		Users:      dir,
		Orders:     svc,
		Issuer:     issuer,
		Admin:      auth.AdminCredentials{ID: cfg.AdminID, Password: cfg.AdminPassword},
		PresignTTL: cfg.PresignTTL,
		Log:        logger,
	}
	router := routes.SetupRouter(app, m, middleware.NewLoginRateLimiter(cfg.LoginRatePerMin))

	// --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Printf("Starting modelshop API server on %s (store=%s, stock=%s)...", cfg.HTTPAddr, cfg.StoreBackend, stockMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
