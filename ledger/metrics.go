package ledger

import (
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rexbrahh/lp-vault/fees"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/observability"
)

type engineMetrics struct {
	commands   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fees       *prometheus.CounterVec
	emitErrors *prometheus.CounterVec
}

func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &engineMetrics{
		commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Name:      observability.MetricLedgerCommandsTotal,
			Help:      "Ledger commands by operation and result code.",
		}, []string{"op", "result"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: observability.Namespace,
			Name:      observability.MetricLedgerCommandDuration,
			Help:      "Wall time of ledger commands including the store transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		fees: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Name:      observability.MetricLedgerFeesTotal,
			Help:      "Lamports collected from position opens by destination share.",
		}, []string{"share"}),
		emitErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Name:      observability.MetricLedgerEventErrors,
			Help:      "Events that a sink failed to accept after commit.",
		}, []string{"kind"}),
	}
}

func (m *engineMetrics) observe(op string, started time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	m.commands.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *engineMetrics) addFees(split fees.Split) {
	m.fees.WithLabelValues("referral").Add(float64(split.Referral))
	m.fees.WithLabelValues("buyback").Add(float64(split.Buyback))
	m.fees.WithLabelValues("treasury").Add(float64(split.Treasury))
}

// resultLabel keeps label cardinality bounded to registered ledger codes.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var sdkErr *errorsmod.Error
	if errors.As(err, &sdkErr) && sdkErr.Codespace() == types.Codespace {
		return sdkErr.Error()
	}
	return "internal"
}
