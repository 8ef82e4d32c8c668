package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	fiberlogger "github.com/GoWeddingShare/GoWeddingShare/internal/logger/adapter/fiber"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/audit"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/backup"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/dashboard"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/guest"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/login"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/logout"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/reviewqueue"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/settings"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler/users"
)

// CheckAlivePath is probed by load balancers and container runtimes.
const CheckAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	// uploads arrive as multipart bodies, so the body limit follows the
	// configured file size limit with headroom for the form framing
	bodyLimit := int(cfg.Uploads.MaxFileSizeMB+1) * 1024 * 1024

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "GoWeddingShare",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      bodyLimit,
		},
	)

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// prometheus metrics
	prometheus := fiberprometheus.New("goweddingshare")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// init web service
	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}
	service.alive.Store(true)

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	// init handlers (they register their own routes with level checks)
	handlers := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&guest.Handler,
		&gallery.Handler,
		&reviewqueue.Handler,
		&settings.Handler,
		&dashboard.Handler,
		&users.Handler,
		&audit.Handler,
		&backup.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, cfg, db); err != nil {
			log.Fatal().Err(err).Msg("failed to init handler")
		}
	}

	return service
}
