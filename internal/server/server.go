package server

import (
	"github.com/Hakomatsu/fit2go-dashboard/internal/archive"
	"github.com/Hakomatsu/fit2go-dashboard/internal/auth"
	"github.com/Hakomatsu/fit2go-dashboard/internal/config"
	"github.com/Hakomatsu/fit2go-dashboard/internal/db"
	"github.com/Hakomatsu/fit2go-dashboard/internal/fitsync"
	"github.com/Hakomatsu/fit2go-dashboard/internal/stats"
	"github.com/Hakomatsu/fit2go-dashboard/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *zap.Logger
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Logger: log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	tokenMiddleware := auth.TokenMiddleware(s.Cfg.APIToken)
	api := s.App.Group("/api")

	// stats registers its literal /sessions paths before the parameterized
	// detail route so /sessions/current never matches :id.
	var pool db.Pool
	if s.DB != nil {
		pool = s.DB
	}
	telemetry.RegisterRoutes(api, telemetry.NewService(pool, s.Logger), tokenMiddleware)
	archive.RegisterRoutes(api, archive.NewService(pool, s.Logger), tokenMiddleware)
	stats.RegisterRoutes(api, stats.NewService(pool, s.Cfg.Location()))

	tokens := fitsync.NewRedisTokenStore(s.Redis)
	targets := []fitsync.Target{
		fitsync.NewGoogleFit(s.Cfg.GFitAPIBase, s.Cfg.GFitAppID, tokens),
	}
	fitsync.RegisterRoutes(api, fitsync.NewService(pool, targets, s.Logger), tokens, s.Cfg.SyncAuto, tokenMiddleware)
}
