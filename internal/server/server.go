package server

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"liveboard/internal/auth"
	"liveboard/internal/bootstrap"
	"liveboard/internal/cache"
	"liveboard/internal/config"
	"liveboard/internal/handler"
	"liveboard/internal/model"
	"liveboard/internal/transport"
)

// Server Fiber server wrapper
type Server struct {
	app                *fiber.App
	cfg                *config.Config
	db                 *gorm.DB
	redis              *cache.RedisClient
	authHandler        *handler.AuthHandler
	questionSetHandler *handler.QuestionSetHandler
	healthHandler      *handler.HealthHandler
	boardWSHandler     *handler.BoardWSHandler
	boardHub           *handler.BoardHub
	jwtManager         *auth.JWTManager
	cleanupDone        chan struct{}
}

// New creates a new server instance
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "LiveBoard Sync Gateway",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // incompatible with WebSocket
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// Redis is optional. With it, board events fan out across instances and
	// snapshots survive host reconnects; without it, a single instance still
	// serves sessions fully through the in-memory transport.
	var redisClient *cache.RedisClient
	var tr transport.Transport
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("⚠️ Redis connection failed: %v (falling back to in-memory transport)", err)
			redisClient = nil
		} else {
			log.Printf("✅ Redis connected (%s)", cfg.Redis.Addr)
		}
	} else {
		log.Println("ℹ️ Redis not configured, using in-memory transport")
	}
	if redisClient != nil {
		tr = transport.NewRedisTransport(redisClient.Client())
	} else {
		tr = transport.NewMemoryTransport(cfg.Board.BroadcastBufferSize)
	}

	resolver := bootstrap.NewResolver(bootstrap.NewGormSetStore(db))
	boardHub := handler.NewBoardHub(tr, redisClient, cfg, db)

	return &Server{
		app:                app,
		cfg:                cfg,
		db:                 db,
		redis:              redisClient,
		authHandler:        handler.NewAuthHandler(db, jwtManager, cfg.Auth.SecureCookie),
		questionSetHandler: handler.NewQuestionSetHandler(db, resolver),
		healthHandler:      handler.NewHealthHandler(db, redisClient),
		boardWSHandler:     handler.NewBoardWSHandler(boardHub),
		boardHub:           boardHub,
		jwtManager:         jwtManager,
		cleanupDone:        make(chan struct{}),
	}
}

// SetupMiddleware configures global middleware
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes configures all routes
func (s *Server) SetupRoutes() {
	// Health endpoints
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate limiter for credential endpoints
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Auth routes
	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", authLimiter, s.authHandler.Register)
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Post("/logout", auth.AuthMiddleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.GetMe)

	// Question set routes
	setGroup := s.app.Group("/api/sets", auth.AuthMiddleware(s.jwtManager))
	setGroup.Post("/", s.questionSetHandler.CreateSet)
	setGroup.Get("/:setId", s.questionSetHandler.GetSet)
	setGroup.Post("/:setId/resolve", s.questionSetHandler.ResolveSet)
	setGroup.Post("/:setId/questions", s.questionSetHandler.AddQuestion)

	// WebSocket board endpoint
	s.app.Get("/ws/board/:sessionId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			// connection refusal instead of a JSON body for WebSocket
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		sessionID := c.Params("sessionId")
		if sessionID == "" {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		role := model.SessionRole(strings.ToUpper(c.Query("role", "viewer")))
		if !role.Valid() {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		var user struct {
			Nickname string
		}
		s.db.Table("users").Select("nickname").Where("id = ?", claims.UserID).Scan(&user)

		c.Locals("sessionId", sessionID)
		c.Locals("userId", claims.UserID)
		c.Locals("nickname", user.Nickname)
		c.Locals("role", role)

		return c.Next()
	}, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// startCleanupLoop periodically drops sessions with no participants
func (s *Server) startCleanupLoop() {
	interval := s.cfg.Board.SessionIdleTimeout
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.cleanupDone:
				return
			case <-ticker.C:
				s.boardHub.CleanupInactiveSessions()
			}
		}
	}()
}

// Start runs the server with graceful shutdown
func (s *Server) Start() error {
	s.startCleanupLoop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		close(s.cleanupDone)
		if s.redis != nil {
			s.redis.Close()
		}
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 LiveBoard Sync Gateway starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/board/:sessionId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
