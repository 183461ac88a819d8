package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_total",
			Help: "Trades initiated, by kind",
		},
		[]string{"kind"}, // buy|sell
	)
	TradesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trades_failed_total",
			Help: "Trade initiations rejected or compensated",
		},
	)
	ReservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_reservation_conflicts_total",
			Help: "Buy attempts rejected for insufficient pool inventory",
		},
	)
	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_callbacks_total",
			Help: "Gateway callbacks processed, by outcome",
		},
		[]string{"outcome"}, // completed|failed|replay|dead_letter|error
	)
	PayoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Payout decisions, by action",
		},
		[]string{"action"}, // approved|rejected
	)
	SweepExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_expired_buys_total",
			Help: "Stale pending buys failed by the expiry sweep",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(TradesTotal)
	prometheus.MustRegister(TradesFailed)
	prometheus.MustRegister(ReservationConflicts)
	prometheus.MustRegister(CallbacksTotal)
	prometheus.MustRegister(PayoutsTotal)
	prometheus.MustRegister(SweepExpiredTotal)
}
