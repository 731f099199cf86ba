package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"trade_engine/internal/models"
)

// Trading is what the probes need from the risk manager.
type Trading interface {
	Running() bool
	OpenPositions() []models.Position
	DailyStats() models.DailyStats
}

type Config struct {
	Addr string
}

func NewConfig() Config {
	return Config{Addr: ":8080"}
}

func NewMux(trading Trading) *http.ServeMux {
	startedAt := time.Now()
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// ready means the trading loop is up; a tripped circuit
		// breaker flips this to 503.
		if !trading.Running() {
			http.Error(w, "trading stopped", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		day := trading.DailyStats()
		resp := map[string]any{
			"trading":       trading.Running(),
			"openPositions": len(trading.OpenPositions()),
			"dayTrades":     day.Trades,
			"dayPnl":        day.PnL,
			"uptimeSec":     int64(time.Since(startedAt).Seconds()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
