package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/unihub/unihub/internal/app/controllers"
	appMigrations "github.com/unihub/unihub/internal/app/migrations"
	"github.com/unihub/unihub/internal/app/recommend"
	appRepos "github.com/unihub/unihub/internal/app/repositories"
	appRoutes "github.com/unihub/unihub/internal/app/routes"
	appServices "github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/config"
	"github.com/unihub/unihub/internal/db"
	appMiddleware "github.com/unihub/unihub/internal/middleware"
	pkgAuth "github.com/unihub/unihub/internal/pkg/auth"
	"github.com/unihub/unihub/internal/pkg/email"
	"github.com/unihub/unihub/internal/pkg/filestorage"
	"github.com/unihub/unihub/internal/pkg/helpers"
	"github.com/unihub/unihub/internal/pkg/logger"
	"github.com/unihub/unihub/internal/pkg/meeting"
	"github.com/unihub/unihub/internal/pkg/validation"
	"github.com/unihub/unihub/internal/pkg/websocket"
	"github.com/unihub/unihub/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store       appRepos.Store
	JWTService  *pkgAuth.JWTService
	FileStorage filestorage.BlobStorage
	Dispatcher  *email.Dispatcher
	FeedHub     *websocket.Hub
	Scheduler   meeting.Scheduler
	Recommender *recommend.Engine

	AuthService         *appServices.AuthService
	UserService         appServices.UserService
	FollowService       appServices.FollowService
	CommunityService    appServices.CommunityService
	PostService         appServices.PostService
	PinService          appServices.PinService
	EventService        appServices.EventService
	AnnouncementService appServices.AnnouncementService
	AchievementService  appServices.AchievementService

	Controllers appRoutes.Controllers
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Pretty: strings.EqualFold(cfg.Logging.Format, "text"),
	})
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// newFileStorage picks the blob storage backend from config
func newFileStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (filestorage.BlobStorage, error) {
	if strings.EqualFold(cfg.Storage.Backend, "s3") {
		return filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PublicURL: cfg.Storage.PublicURL,
		}, lgr)
	}

	baseURL := strings.TrimRight(cfg.Server.PublicURL, "/") + "/uploads"
	return filestorage.NewLocalStorage(cfg.Server.StoragePath, baseURL, lgr)
}

// newScheduler returns the Zoom client, or nil when the integration is off
func newScheduler(cfg *config.Config, lgr zerolog.Logger) meeting.Scheduler {
	if !cfg.Meeting.Enabled {
		lgr.Info().Msg("Meeting integration disabled")
		return nil
	}
	return meeting.NewZoomClient(meeting.Config{
		AccountID:    cfg.Meeting.AccountID,
		ClientID:     cfg.Meeting.ClientID,
		ClientSecret: cfg.Meeting.ClientSecret,
		UserEmail:    cfg.Meeting.UserEmail,
		APIBaseURL:   cfg.Meeting.APIBaseURL,
		TokenURL:     cfg.Meeting.TokenURL,
		Timeout:      helpers.ParseDuration(cfg.Meeting.Timeout, 10*time.Second),
	}, lgr)
}

// BuildDependencies initializes repositories, services, and controllers.
// The notification dispatcher and the feed hub are created but not started.
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	if _, err := seed.EnsureGlobalCommunity(ctx, store, lgr); err != nil {
		return nil, fmt.Errorf("failed to seed global community: %w", err)
	}

	var err error
	deps.FileStorage, err = newFileStorage(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	notifier := email.NewSMTPNotifier(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		BaseURL:   cfg.Server.PublicURL,
	}, lgr)
	deps.Dispatcher = email.NewDispatcher(notifier, email.DispatcherConfig{
		QueueSize:     cfg.Notifications.QueueSize,
		Workers:       cfg.Notifications.Workers,
		RatePerSecond: cfg.Notifications.RatePerSecond,
	}, lgr)

	deps.Scheduler = newScheduler(cfg, lgr)
	deps.FeedHub = websocket.NewHub(cfg.Notifications.QueueSize, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenTTL, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.AuthService = appServices.NewAuthService(store, deps.JWTService, lgr)
	deps.UserService = appServices.NewUserService(store, deps.FileStorage, lgr)
	deps.FollowService = appServices.NewFollowService(store, lgr)
	deps.CommunityService = appServices.NewCommunityService(store, deps.Dispatcher, deps.FeedHub, lgr)
	deps.PostService = appServices.NewPostService(store, deps.FileStorage, lgr)
	deps.PinService = appServices.NewPinService(store, deps.FeedHub, lgr)
	deps.EventService = appServices.NewEventService(store, deps.Scheduler, cfg.Meeting.EventTypes, deps.Dispatcher, lgr)
	deps.AnnouncementService = appServices.NewAnnouncementService(store, deps.Dispatcher, deps.FeedHub, lgr)
	deps.AchievementService = appServices.NewAchievementService(store, lgr)

	deps.Recommender = recommend.NewEngine(store, recommend.Config{
		CommunityLimit: cfg.Recommendations.CommunityLimit,
		UserLimit:      cfg.Recommendations.UserLimit,
		MaxLimit:       cfg.Recommendations.MaxLimit,
		TieSeed:        cfg.Recommendations.TieSeed,
	}, nil, lgr)

	deps.Controllers = appRoutes.Controllers{
		Auth:           appControllers.NewAuthController(deps.AuthService, lgr),
		User:           appControllers.NewUserController(deps.UserService, deps.FollowService, deps.AchievementService),
		Community:      appControllers.NewCommunityController(deps.CommunityService),
		Post:           appControllers.NewPostController(deps.PostService, deps.PinService),
		Event:          appControllers.NewEventController(deps.EventService, deps.AnnouncementService),
		Recommendation: appControllers.NewRecommendationController(deps.Recommender),
		Feed:           appControllers.NewFeedController(deps.CommunityService, deps.FeedHub, lgr),
		AuthMiddleware: appMiddleware.NewAuthMiddleware(deps.JWTService),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validation rules: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers)

	if local, ok := deps.FileStorage.(*filestorage.LocalStorage); ok {
		router.Static("/uploads", local.BasePath())
		lgr.Info().Str("path", local.BasePath()).Msg("Static file serving configured for uploads directory")
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
