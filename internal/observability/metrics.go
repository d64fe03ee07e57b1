package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	transferAdmissionCounter *prometheus.CounterVec
	withdrawalCounter        *prometheus.CounterVec
	ledgerImbalanceCounter   prometheus.Counter
	idempotencyCounter       *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
	systemVolumeGauge        prometheus.Gauge
	systemTransactionsGauge  prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferAdmissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_admissions_total",
			Help: "Transfer admission outcomes",
		}, []string{"outcome"})

		withdrawalCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal state transitions",
		}, []string{"status"})

		ledgerImbalanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_imbalance_total",
			Help: "Number of times an athlete's withdrawals exceeded inbound transfers",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		systemVolumeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_completed_volume_micros",
			Help: "Sum of completed transfer amounts in micros",
		})

		systemTransactionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_completed_transfers",
			Help: "Count of completed transfers",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferAdmissionCounter,
			withdrawalCounter,
			ledgerImbalanceCounter,
			idempotencyCounter,
			workerRunCounter,
			systemVolumeGauge,
			systemTransactionsGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransferAdmission(outcome string) {
	if transferAdmissionCounter == nil {
		return
	}
	transferAdmissionCounter.WithLabelValues(outcome).Inc()
}

func IncrementWithdrawalTransition(status string) {
	if withdrawalCounter == nil {
		return
	}
	withdrawalCounter.WithLabelValues(status).Inc()
}

func IncrementLedgerImbalance() {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func SetSystemTotals(volumeMicros, transactions int64) {
	if systemVolumeGauge == nil || systemTransactionsGauge == nil {
		return
	}
	systemVolumeGauge.Set(float64(volumeMicros))
	systemTransactionsGauge.Set(float64(transactions))
}
