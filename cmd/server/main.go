package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rental-booking/internal/config"
	"github.com/iliyamo/rental-booking/internal/database"
	"github.com/iliyamo/rental-booking/internal/handler"
	"github.com/iliyamo/rental-booking/internal/middleware"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/router"
	"github.com/iliyamo/rental-booking/internal/service"
	"github.com/iliyamo/rental-booking/internal/storage"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	blobs, closeBlobs := openBlobStore(ctx, cfg.Storage)
	defer closeBlobs()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events.URL, cfg.Events.Queue)
		if cfg.Events.RunConsumer {
			c := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogDir: cfg.Events.LogDir}
			go func() {
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("booking-consumer: stopped: %v", err)
				}
			}()
		}
	}

	validator := service.NewValidator()
	accounts := repository.NewAccountRepo(db)
	listings := repository.NewListingRepo(db)
	bookings := repository.NewBookingRepo(db)
	tokens := repository.NewTokenRepo(db)

	accountSvc := &service.AccountService{
		Accounts:    accounts,
		Attachments: repository.NewAttachmentRepo(db),
		Tokens:      tokens,
		Blobs:       blobs,
		Validator:   validator,
		BcryptCost:  cfg.BcryptCost,
		MaxDocBytes: cfg.MaxUploadBytes,
	}
	listingSvc := &service.ListingService{
		Listings:        listings,
		Accounts:        accounts,
		Bookings:        bookings,
		Blobs:           blobs,
		Validator:       validator,
		DefaultCurrency: cfg.DefaultCurrency,
		MaxPhotoBytes:   cfg.MaxUploadBytes,
	}
	bookingSvc := &service.BookingService{
		Listings:  listings,
		Accounts:  accounts,
		Bookings:  bookings,
		Events:    events,
		Validator: validator,
		Now:       time.Now,
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = validator
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			log.Printf("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Health:   handler.Health(db),
		Auth:     handler.NewAuthHandler(cfg, accountSvc, tokens),
		Public:   handler.NewPublicHandler(listingSvc),
		Listings: handler.NewListingHandler(listingSvc),
		Bookings: handler.NewBookingHandler(bookingSvc),
		Accounts: handler.NewAccountHandler(accountSvc),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		BodyLimit: bodyLimit(cfg.MaxUploadBytes),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openBlobStore returns the configured store and a function releasing it.
func openBlobStore(ctx context.Context, sc config.StorageConfig) (storage.BlobStore, func()) {
	switch sc.Backend {
	case "gridfs":
		gs, err := storage.NewGridFSStore(ctx, sc.MongoURI, sc.MongoDB)
		if err != nil {
			log.Fatalf("gridfs: %v", err)
		}
		return gs, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = gs.Close(cctx)
		}
	case "fs", "":
		fs, err := storage.NewFileStore(sc.UploadDir)
		if err != nil {
			log.Fatalf("upload dir: %v", err)
		}
		return fs, func() {}
	default:
		log.Fatalf("unknown BLOB_BACKEND %q", sc.Backend)
		return nil, nil
	}
}

// bodyLimit leaves room for several photos plus form fields in one request.
func bodyLimit(perFile int64) string {
	mb := (perFile>>20)*8 + 1
	return strconv.FormatInt(mb, 10) + "M"
}
