// Package api exposes the decision engine over HTTP: chat, loans, vouches
// and the payment webhook.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kredefy/backend/pkg/orchestrator"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/services"
)

// Pinger is the slice of the database the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerConfig carries the HTTP-layer knobs.
type ServerConfig struct {
	JWTSecret          string
	RateLimitPerMinute int
	CORSOrigins        []string
}

// Server wires handlers, middleware and routes.
type Server struct {
	echo *echo.Echo
	http *http.Server

	cfg      ServerConfig
	brain    *orchestrator.Orchestrator
	loans    *services.LoanService
	vouching *services.VouchingService
	payments *services.PaymentService
	gateway  ports.Payments
	tts      ports.TTS
	db       Pinger
}

// NewServer builds the echo instance with the full middleware chain and
// routes. tts and db may be nil (voice replies and the database health
// check are then disabled).
func NewServer(cfg ServerConfig, brain *orchestrator.Orchestrator, loans *services.LoanService, vouching *services.VouchingService, payments *services.PaymentService, gateway ports.Payments, tts ports.TTS, db Pinger) *Server {
	s := &Server{
		cfg:      cfg,
		brain:    brain,
		loans:    loans,
		vouching: vouching,
		payments: payments,
		gateway:  gateway,
		tts:      tts,
		db:       db,
	}

	e := echo.New()
	e.Use(requestID())
	e.Use(requestLogger())
	e.Use(cors(cfg.CORSOrigins))
	e.Use(securityHeaders())
	e.Use(rateLimit(newLimiter(cfg.RateLimitPerMinute, time.Minute)))

	e.GET("/health", s.healthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/payments/webhook", s.webhookHandler)

	authed := e.Group("", bearerAuth(cfg.JWTSecret))
	authed.POST("/nova/chat", s.chatHandler)
	authed.POST("/loans", s.createLoanHandler)
	authed.POST("/loans/:id/vote", s.voteHandler)
	authed.POST("/loans/:id/disburse", s.disburseHandler)
	authed.POST("/vouches", s.createVouchHandler)

	s.echo = e
	return s
}

// Echo returns the underlying router, used by tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves HTTP on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
