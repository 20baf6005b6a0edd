package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	PurchasesCommitted *prometheus.CounterVec
	PurchasesAborted   *prometheus.CounterVec
	PurchaseAmount     prometheus.Counter
	CommitLatencySec   prometheus.Histogram
	CartMutations      *prometheus.CounterVec
	BalanceCharged     prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minishop_purchases_committed_total",
		Help: "Purchases whose balance debit and cart removal were committed.",
	}, []string{"mode"})
	aborted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minishop_purchases_aborted_total",
		Help: "Purchases that ended without a commit, by error kind.",
	}, []string{"mode", "kind"})
	amount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "minishop_purchase_amount_total",
		Help: "Currency units debited by committed purchases.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "minishop_purchase_commit_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minishop_cart_mutations_total",
		Help: "Cart store mutations by operation.",
	}, []string{"op"})
	charged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "minishop_balance_charged_total",
		Help: "Currency units added to balances by charges.",
	})

	r.MustRegister(committed, aborted, amount, latency, mutations, charged)
	return &Registry{
		reg:                r,
		PurchasesCommitted: committed,
		PurchasesAborted:   aborted,
		PurchaseAmount:     amount,
		CommitLatencySec:   latency,
		CartMutations:      mutations,
		BalanceCharged:     charged,
	}
}

// The Observe helpers are no-ops on a nil *Registry so callers can run
// without metrics.

func (r *Registry) ObserveCommit(mode string, amount int64, took time.Duration) {
	if r == nil {
		return
	}
	r.PurchasesCommitted.WithLabelValues(mode).Inc()
	r.PurchaseAmount.Add(float64(amount))
	r.CommitLatencySec.Observe(took.Seconds())
}

func (r *Registry) ObserveAbort(mode, kind string) {
	if r == nil {
		return
	}
	r.PurchasesAborted.WithLabelValues(mode, kind).Inc()
}

func (r *Registry) ObserveCartMutation(op string) {
	if r == nil {
		return
	}
	r.CartMutations.WithLabelValues(op).Inc()
}

func (r *Registry) ObserveCharge(amount int64) {
	if r == nil {
		return
	}
	r.BalanceCharged.Add(float64(amount))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
