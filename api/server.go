// Package api serves vault operations and queries over HTTP with JSON payloads.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	metricsmw "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/metrics"
	"github.com/spacemeshos/go-vault/sql/accounts"
	"github.com/spacemeshos/go-vault/vault"
)

const shutdownTimeout = 5 * time.Second

// Service is the set of vault operations exposed by the API.
type Service interface {
	Create(ctx context.Context, params vault.CreateParams) (types.VaultID, error)
	Deposit(ctx context.Context, id types.VaultID, amount uint64, asset types.Asset, sender types.Address) error
	Withdraw(ctx context.Context, id types.VaultID, sender types.Address) (vault.Release, error)
	WithdrawEverything(ctx context.Context, id types.VaultID, sender types.Address) (uint64, error)
	LockSettings(ctx context.Context, id types.VaultID, sender types.Address) error
	UpdateSettings(ctx context.Context, id types.VaultID, sender types.Address, stacks, accepts bool) error
	AddBeneficiary(ctx context.Context, id types.VaultID, sender, addr types.Address) error
	RemoveBeneficiary(ctx context.Context, id types.VaultID, sender, addr types.Address) error

	Get(id types.VaultID) (*types.Vault, error)
	IsBeneficiary(id types.VaultID, addr types.Address) (bool, error)
	Releasable(id types.VaultID) (vault.Release, error)
	ByOwner(owner types.Address) ([]*types.Vault, error)
	ByBeneficiary(ctx context.Context, addr types.Address) ([]*types.Vault, error)
	Balance(addr types.Address, asset types.Asset) (uint64, error)
	Accounts(addr types.Address) ([]accounts.Account, error)
}

// EventSource returns recently published events and streams new ones.
type EventSource interface {
	Recent(n int) []events.Event
	Subscribe(buffer int) *events.Subscription
}

// Opt for configuring Server.
type Opt func(*Server)

// WithLogger sets logger for Server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSAllowedOrigins sets origins allowed to call the API from browsers.
func WithCORSAllowedOrigins(origins []string) Opt {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMetricsRegisterer sets where request metrics are registered.
// By default prometheus.DefaultRegisterer is used.
func WithMetricsRegisterer(reg prometheus.Registerer) Opt {
	return func(s *Server) {
		s.registerer = reg
	}
}

// WithEvents sets source of events served by the events endpoint.
func WithEvents(src EventSource) Opt {
	return func(s *Server) {
		s.events = src
	}
}

// Server is an HTTP server for the vault API.
type Server struct {
	logger     *zap.Logger
	listen     string
	svc        Service
	events     EventSource
	origins    []string
	registerer prometheus.Registerer

	handler http.Handler
	server  *http.Server
}

// NewServer creates Server that listens on listen and executes requests with svc.
func NewServer(listen string, svc Service, opts ...Opt) *Server {
	s := &Server{
		logger:     zap.NewNop(),
		listen:     listen,
		svc:        svc,
		events:     events.NewReporter(),
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router with all middlewares installed.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mdlw := metricsmw.New(metricsmw.Config{
		Recorder: httpmetrics.NewRecorder(httpmetrics.Config{
			Prefix:   metrics.Namespace,
			Registry: s.registerer,
		}),
	})
	measured := func(id string) func(http.Handler) http.Handler {
		return std.HandlerProvider(id, mdlw)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(measured("create")).Post("/vaults", s.create)
		r.Route("/vaults/{id}", func(r chi.Router) {
			r.With(measured("get")).Get("/", s.get)
			r.With(measured("releasable")).Get("/releasable", s.releasable)
			r.With(measured("deposit")).Post("/deposit", s.deposit)
			r.With(measured("withdraw")).Post("/withdraw", s.withdraw)
			r.With(measured("withdraw_everything")).Post("/withdraw-all", s.withdrawEverything)
			r.With(measured("update_settings")).Post("/settings", s.updateSettings)
			r.With(measured("lock_settings")).Post("/settings/lock", s.lockSettings)
			r.With(measured("add_beneficiary")).Post("/beneficiaries", s.addBeneficiary)
			r.With(measured("is_beneficiary")).Get("/beneficiaries/{address}", s.isBeneficiary)
			r.With(measured("remove_beneficiary")).Delete("/beneficiaries/{address}", s.removeBeneficiary)
		})
		r.With(measured("by_owner")).Get("/owners/{address}/vaults", s.byOwner)
		r.With(measured("by_beneficiary")).Get("/beneficiaries/{address}/vaults", s.byBeneficiary)
		r.With(measured("accounts")).Get("/accounts/{address}", s.accounts)
		r.With(measured("balance")).Get("/accounts/{address}/{asset}", s.balance)
		r.With(measured("events")).Get("/events", s.recentEvents)
		r.With(measured("events_stream")).Get("/events/stream", s.streamEvents)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Run serves the API until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen api on %s: %w", s.listen, err)
	}
	s.logger.Info("api server started", zap.Stringer("address", lis.Addr()))
	// streams end when ctx is canceled, otherwise shutdown waits for them
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }
	errc := make(chan error, 1)
	go func() {
		errc <- s.server.Serve(lis)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server stopped with error", zap.Error(err))
	}
	return nil
}
