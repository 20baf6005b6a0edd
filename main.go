package main

// POST   /sessions           - Log in, returns a bearer token
// DELETE /sessions           - Log out
// GET    /products/list      - List the catalog
// GET    /cart/list          - List the cart with line numbers
// POST   /cart/add           - Add a product to the cart
// POST   /cart/remove        - Remove a line
// POST   /cart/quantity      - Change a line's quantity
// POST   /cart/clear         - Empty the cart
// POST   /checkout/quote     - Price the cart or a selection
// POST   /checkout/all       - Buy the whole cart
// POST   /checkout/selected  - Buy selected lines
// GET    /account            - Balance and grade
// POST   /account/charge     - Top up the balance
// GET    /metrics            - Prometheus metrics

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minishop/config"
	"minishop/db"
	"minishop/handler"
	"minishop/logx"
	"minishop/metrics"
	"minishop/service"
	"minishop/session"
	"minishop/store"

	"github.com/gorilla/mux"
)

func main() {
	cfg, warnings, err := config.Load(".env")
	if err != nil {
		logx.Init()
		logx.Fatal().Err(err).Strs("warnings", warnings).Msg("invalid configuration")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment()})
	for _, w := range warnings {
		logx.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logx.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(ctx, conn); err != nil {
		logx.Fatal().Err(err).Msg("migrations failed")
	}

	// --- Store ---
	st := store.NewPostgresStore(conn)
	defer st.Close()

	// --- Sessions ---
	var sessions session.Store
	if cfg.Redis.URL == "" {
		logx.Warn().Msg("REDIS_URL not set, sessions are kept in process")
		sessions = session.NewMemoryStore()
	} else {
		rdb, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logx.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	}

	// --- Service ---
	reg := metrics.NewRegistry()
	svc := service.NewService(st, service.WithMetrics(reg), service.WithMinCharge(cfg.MinCharge))

	// --- Handlers ---
	h := handler.NewHandler(svc, sessions)

	// --- Router ---
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	r.Handle("/metrics", reg.Handler()).Methods("GET")

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logx.Info().Str("addr", cfg.HTTPAddr).Msg("server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Fatal().Err(err).Msg("server error")
	}
	logx.Info().Msg("server stopped")
}
