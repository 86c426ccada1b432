// Package server contains the HTML and JSON handlers and the Fiber application wiring.
package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"subjecthub/internal/blobstore"
	"subjecthub/internal/cache"
	"subjecthub/internal/config"
	"subjecthub/internal/database"
	"subjecthub/internal/middleware"
	"subjecthub/internal/models"
	"subjecthub/internal/repository"
	"subjecthub/internal/service"
	"subjecthub/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

//go:embed views
var viewsFS embed.FS

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       session.Store
	memSessions    *session.MemoryStore
	signer         *session.Signer
	blobs          blobstore.Store
	auth           *service.AuthService
	listing        *service.ListingService
	submission     *service.SubmissionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, blobs)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient selects the in-process session store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs blobstore.Store) (*Server, error) {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour

	var sessions session.Store
	var memSessions *session.MemoryStore
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient)
	} else {
		middleware.Logger.Warn("Redis unavailable, sessions are kept in process memory")
		memSessions = session.NewMemoryStore()
		memSessions.StartSweeper(sessionSweepInterval(ttl))
		sessions = memSessions
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("subjecthub"),
		sessions:       sessions,
		memSessions:    memSessions,
		signer:         session.NewSigner(cfg.SessionSecret),
		blobs:          blobs,
	}
	s.auth = service.NewAuthService(repository.NewUserRepository(db), sessions, ttl)
	s.listing = service.NewListingService(repository.NewSubjectRepository(db), cfg.PageSize)
	s.submission = service.NewSubmissionService(repository.NewSubjectRepository(db), blobs)

	return s, nil
}

// sessionSweepInterval is a quarter of the session TTL, never below one minute.
func sessionSweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// NewBlobStore returns the blob store selected by BLOB_BACKEND.
func NewBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return blobstore.NewDiskStore(cfg.UploadDir, uploadsPath)
	}
}

// NewApp builds the Fiber application with views, middleware and routes.
func (s *Server) NewApp() (*fiber.App, error) {
	engine, err := s.newViewEngine()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "subjecthub",
		Views:        engine,
		ViewsLayout:  "layouts/main",
		BodyLimit:    (s.config.UploadMaxSizeMB + 1) * 1024 * 1024,
		ReadTimeout:  time.Duration(s.config.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeoutSeconds) * time.Second,
		ErrorHandler: s.errorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

func (s *Server) newViewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("imageURL", s.blobs.URL)
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("pages", func(total int) []int {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	})
	return engine, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagate request and trace IDs to the context-aware logger.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(s.LoadSession())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/metrics", middleware.MetricsHandler())
	if !s.config.IsProduction() {
		app.Get("/monitor", monitor.New(monitor.Config{Title: "subjecthub"}))
	}

	if disk, ok := s.blobs.(*blobstore.DiskStore); ok {
		app.Static(uploadsPath, disk.Dir(), fiber.Static{MaxAge: 3600})
	}

	authLimit := middleware.RateLimit(s.redis, 10, time.Minute, "auth")

	// HTML pages
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/subjects", fiber.StatusSeeOther)
	})
	app.Get("/subjects", s.ListSubjectsPage)
	app.Get("/subjects/new", s.PageAuthRequired(), s.NewSubjectPage)
	app.Post("/subjects", s.PageAuthRequired(), s.CreateSubjectPage)
	app.Get("/register", s.RegisterPage)
	app.Post("/register", authLimit, s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", authLimit, s.Login)
	app.Post("/logout", s.Logout)

	// JSON API
	api := app.Group("/api", cors.New())
	api.Get("/subjects", s.ListSubjectsAPI)
	api.Post("/subjects", s.APIAuthRequired(), s.CreateSubjectAPI)

	auth := api.Group("/auth")
	auth.Post("/register", authLimit, s.RegisterAPI)
	auth.Post("/login", authLimit, s.LoginAPI)
	auth.Post("/logout", s.LogoutAPI)
	auth.Get("/me", s.APIAuthRequired(), s.MeAPI)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it sessions live in process memory.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.sessions.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler renders JSON for /api routes and an HTML error page elsewhere.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
		message = fe.Message
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	}

	if isAPI(c) {
		return c.Status(status).JSON(models.ErrorResponse{Error: message})
	}
	return c.Status(status).Render("errors/error", s.viewData(c, fiber.Map{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	}))
}

// Start builds the app and listens on the configured port. It blocks until the
// listener stops.
func (s *Server) Start() error {
	app, err := s.NewApp()
	if err != nil {
		return err
	}
	s.app = app

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.memSessions != nil {
		_ = s.memSessions.Close()
	}

	cache.Close(s.redis)

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
