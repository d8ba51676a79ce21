package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotto"

// Metrics holds the node's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	TicketsPurchased prometheus.Counter
	RoundsClosed     prometheus.Counter
	Claims           prometheus.Counter
	Mints            prometheus.Counter
	FailedTxs        *prometheus.CounterVec
	CurrentRound     prometheus.Gauge
	BlockHeight      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TicketsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_purchased_total",
			Help:      "number of tickets bought",
		}),
		RoundsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_closed_total",
			Help:      "number of rounds drawn",
		}),
		Claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "number of tickets claimed",
		}),
		Mints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confidential_mints_total",
			Help:      "number of confidential token mints",
		}),
		FailedTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_txs_total",
			Help:      "number of rejected transactions by type",
		}, []string{"type"}),
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_round",
			Help:      "id of the open round",
		}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_height",
			Help:      "last finalized block height",
		}),
	}
	m.Registry.MustRegister(
		m.TicketsPurchased,
		m.RoundsClosed,
		m.Claims,
		m.Mints,
		m.FailedTxs,
		m.CurrentRound,
		m.BlockHeight,
	)
	return m
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
