package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Deposit metrics
	DepositsInitiated prometheus.Counter
	DepositsRejected  prometheus.Counter
	DepositDuration   prometheus.Histogram

	// Callback metrics
	CallbacksProcessed *prometheus.CounterVec
	CallbacksUnknown   prometheus.Counter
	CallbacksReplayed  prometheus.Counter

	// Withdrawal metrics
	WithdrawalsRequested prometheus.Counter
	WithdrawalsProcessed *prometheus.CounterVec
	WithdrawalDuration   prometheus.Histogram

	// Notification metrics
	NotificationFailures *prometheus.CounterVec

	// Amount distribution
	TransactionAmount *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		DepositsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payments_deposits_initiated_total",
			Help: "Total number of deposit transactions created in pending state",
		}),
		DepositsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payments_deposits_rejected_total",
			Help: "Total number of deposit requests rejected by the provider",
		}),
		DepositDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payments_deposit_duration_seconds",
			Help:    "Duration of deposit initiation including the provider call",
			Buckets: prometheus.DefBuckets,
		}),
		CallbacksProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_callbacks_processed_total",
				Help: "Total number of provider callbacks reconciled, by outcome",
			},
			[]string{"outcome"},
		),
		CallbacksUnknown: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payments_callbacks_unknown_total",
			Help: "Total number of callbacks with no matching transaction",
		}),
		CallbacksReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payments_callbacks_replayed_total",
			Help: "Total number of callbacks for already reconciled transactions",
		}),
		WithdrawalsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payments_withdrawals_requested_total",
			Help: "Total number of withdrawal reservations created",
		}),
		WithdrawalsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_withdrawals_processed_total",
				Help: "Total number of admin withdrawal decisions, by action",
			},
			[]string{"action"},
		),
		WithdrawalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payments_withdrawal_duration_seconds",
			Help:    "Duration of withdrawal reservation operations",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_notification_failures_total",
				Help: "Total number of failed best-effort notifications, by channel",
			},
			[]string{"channel"},
		),
		TransactionAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payments_transaction_amount",
				Help:    "Transaction amounts",
				Buckets: []float64{10, 100, 500, 1000, 5000, 10000, 100000},
			},
			[]string{"kind"},
		),
	}
}
