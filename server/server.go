package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/api"
	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/cron"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services"
)

const httpShutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cron         *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(db)

	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		closer.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cron:         cron.NewCronManager(cfg.CronConfig, appLogger, svcs.IMAPService),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(fmt.Sprintf("panic.%s", name))
		defer span.Finish()
		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("❌ Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api.RegisterRoutes(s.router, s.services, s.repositories, s.config.Accounts, s.config.AppConfig.APIKey, s.log)

	if len(s.config.Accounts) == 0 {
		s.log.Warn("No email accounts configured, set IMAP_HOST_1 and friends")
	} else {
		s.log.Infof("Connecting to %d email account(s)...", len(s.config.Accounts))
		go s.wrapGoroutine("imap_connect", func() {
			s.services.IMAPService.ConnectAll(ctx, s.config.Accounts)
		})
	}

	if err := s.cron.Start(); err != nil {
		return err
	}

	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("❌ HTTP server error: %v", err)
		}
	})
	s.log.Info("mailsync is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	s.log.Info("Shutting down...")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer httpCancel()
	if err := s.httpServer.Shutdown(httpCtx); err != nil {
		s.log.Errorf("❌ HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("✅ HTTP server shut down successfully")
	}

	s.cron.Stop()

	imapCtx, imapCancel := context.WithTimeout(context.Background(), s.config.SyncConfig.ShutdownTimeout)
	defer imapCancel()
	if err := s.services.IMAPService.DisconnectAll(imapCtx); err != nil {
		s.log.Warnf("⚠️ IMAP shutdown incomplete: %v", err)
	} else {
		s.log.Info("✅ IMAP connections closed")
	}

	if err := s.services.Close(); err != nil {
		s.log.Errorf("Error closing services: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}
	_ = s.log.Sync()

	return nil
}
