package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditservice "github.com/mcofie/itinero-web-sub003/internal/audit/service"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
	"github.com/mcofie/itinero-web-sub003/internal/config"
	fxdomain "github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	"github.com/mcofie/itinero-web-sub003/internal/observability/logger"
	"github.com/mcofie/itinero-web-sub003/internal/observability/metrics"
	paymentdomain "github.com/mcofie/itinero-web-sub003/internal/payment/domain"
	quotedomain "github.com/mcofie/itinero-web-sub003/internal/quote/domain"
	"github.com/mcofie/itinero-web-sub003/internal/reconcile"
	tripdomain "github.com/mcofie/itinero-web-sub003/internal/trip/domain"
)

// Server owns the HTTP surface. Handlers stay thin: bind, call the
// domain service, map the error.
type Server struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	quoteSvc   quotedomain.Service
	ledgerSvc  ledgerdomain.Service
	paymentSvc paymentdomain.Service
	tripSvc    tripdomain.Service
	fxSvc      fxdomain.Service
	reconciler *reconcile.Checker
	auditSvc   *auditservice.Recorder
	clock      clock.Clock

	webhookLimiter *rateLimiter
	verifyLimiter  *rateLimiter
}

type Params struct {
	fx.In

	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	QuoteSvc   quotedomain.Service
	LedgerSvc  ledgerdomain.Service
	PaymentSvc paymentdomain.Service
	TripSvc    tripdomain.Service
	FXSvc      fxdomain.Service
	Reconciler *reconcile.Checker
	AuditSvc   *auditservice.Recorder
	Clock      clock.Clock
}

func New(p Params) *Server {
	return &Server{
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		quoteSvc:   p.QuoteSvc,
		ledgerSvc:  p.LedgerSvc,
		paymentSvc: p.PaymentSvc,
		tripSvc:    p.TripSvc,
		fxSvc:      p.FXSvc,
		reconciler: p.Reconciler,
		auditSvc:   p.AuditSvc,
		clock:      p.Clock,

		webhookLimiter: newRateLimiter(perMinute(p.Cfg.HTTP.WebhookPerMinute, 120), time.Minute),
		verifyLimiter:  newRateLimiter(perMinute(p.Cfg.HTTP.VerifyPerMinute, 60), time.Minute),
	}
}

func perMinute(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

type EngineParams struct {
	fx.In

	Cfg         config.Config
	HTTPMetrics *metrics.HTTPMetrics
}

func NewEngine(p EngineParams) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	return engine
}

// RegisterRoutes mounts every route on the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	points := api.Group("/points", s.AuthRequired())
	{
		points.POST("/quote", s.CreateQuote)
		points.GET("/balance", s.GetBalance)
		points.GET("/history", s.GetHistory)
	}

	paystack := api.Group("/paystack")
	{
		paystack.POST("/init", s.AuthRequired(), s.InitiatePayment)
		paystack.POST("/webhook", s.rateLimited(s.webhookLimiter), s.PaystackWebhook)
	}

	api.GET("/rewards/verify", s.AuthRequired(), s.rateLimited(s.verifyLimiter), s.VerifyReward)

	trips := api.Group("/trips")
	{
		trips.POST("", s.AuthRequired(), s.CreateTrip)
		trips.POST("/:id/public", s.AuthRequired(), s.SetTripPublic)
		trips.GET("/shared/:publicId", s.GetSharedTrip)
	}

	fx := api.Group("/fx")
	{
		fx.GET("/latest", s.GetLatestRates)
		fx.POST("/refresh", s.ServiceTokenRequired(), s.RefreshRates)
	}

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) clockNow() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

// rateLimited applies a per-client-IP fixed window.
func (s *Server) rateLimited(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, srv *Server, log *zap.Logger) {
	srv.RegisterRoutes(engine)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}
