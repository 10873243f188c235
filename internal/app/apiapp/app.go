package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/config"
	s3infra "github.com/sparklabs/spark/internal/infra/s3"
	"github.com/sparklabs/spark/internal/realtime"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
	redrepo "github.com/sparklabs/spark/internal/repo/redis"
	authsvc "github.com/sparklabs/spark/internal/services/auth"
	discoverysvc "github.com/sparklabs/spark/internal/services/discovery"
	matchessvc "github.com/sparklabs/spark/internal/services/matches"
	mediasvc "github.com/sparklabs/spark/internal/services/media"
	msgsvc "github.com/sparklabs/spark/internal/services/messages"
	notifsvc "github.com/sparklabs/spark/internal/services/notifications"
	profilesvc "github.com/sparklabs/spark/internal/services/profiles"
	ratesvc "github.com/sparklabs/spark/internal/services/rate"
	safetysvc "github.com/sparklabs/spark/internal/services/safety"
	swipesvc "github.com/sparklabs/spark/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	photoRepo := pgrepo.NewPhotoRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	discoverRepo := pgrepo.NewDiscoverRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	reportRepo := pgrepo.NewReportRepo()

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		Pool:     pool,
		JWT:      jwtManager,
		Sessions: sessionRepo,
		Users:    userRepo,
		Profiles: profileRepo,
	}, authsvc.Config{
		RefreshTTL: cfg.Auth.RefreshTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	rateLimiter := ratesvc.NewLimiter(
		rateRepo,
		cfg.Limits.PremiumRatePerMinute,
		cfg.Limits.PremiumRatePer10Seconds,
	)

	discoveryService := discoverysvc.NewService(discoverRepo, profileRepo, discoverysvc.Config{
		Limit:    cfg.Discover.Limit,
		LimitMax: cfg.Discover.LimitMax,
	})
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:          pool,
		SwipeStore:    swipeRepo,
		MatchStore:    matchRepo,
		UserStore:     userRepo,
		NameStore:     profileRepo,
		Notifications: notificationRepo,
		RateLimiter:   rateLimiter,
	}, swipesvc.Config{
		FreeSwipesPerDay:     cfg.Limits.FreeSwipesPerDay,
		FreeSuperlikesPerDay: cfg.Limits.FreeSuperlikesPerDay,
		DefaultTimezone:      cfg.Limits.DefaultTimezone,
	})
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:       pool,
		MatchStore: matchRepo,
	})
	messageService := msgsvc.NewService(msgsvc.Dependencies{
		Pool:          pool,
		MessageStore:  messageRepo,
		MatchStore:    matchRepo,
		NameStore:     profileRepo,
		Notifications: notificationRepo,
	}, msgsvc.Config{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		PreviewLength:    cfg.Chat.PreviewLength,
		PageLimit:        cfg.Chat.PageLimit,
		PageLimitMax:     cfg.Chat.PageLimitMax,
	})
	notificationService := notifsvc.NewService(notificationRepo)
	profileService := profilesvc.NewService(profileRepo, photoRepo)
	safetyService := safetysvc.NewService(safetysvc.Dependencies{
		Pool:    pool,
		Blocks:  blockRepo,
		Reports: reportRepo,
		Matches: matchRepo,
		Users:   userRepo,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket, cfg.S3.PublicBaseURL)
	mediaService := mediasvc.NewService(mediasvc.Dependencies{
		Pool:    pool,
		Photos:  photoRepo,
		Storage: mediaStorage,
	}, mediasvc.Config{})

	hub := realtime.NewHub(messageService, matchesService, log)

	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		DiscoveryService:    discoveryService,
		SwipeService:        swipeService,
		MatchService:        matchesService,
		MessageService:      messageService,
		NotificationService: notificationService,
		ProfileService:      profileService,
		MediaService:        mediaService,
		SafetyService:       safetyService,
		Hub:                 hub,
		Logger:              log,
		Config:              cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
