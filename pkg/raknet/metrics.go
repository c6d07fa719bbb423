package raknet

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes transport counters as Prometheus instruments,
// grounded on runZeroInc-sockstats/conniver's pkg/exporter, whose
// TCPInfoCollector wraps live connection state in a prometheus.Metric
// stream the same way Metrics wraps live session state here. Every
// method is nil-receiver-safe so sessions (and tests) that don't want
// Prometheus wiring pay nothing for it.
type Metrics struct {
	BatchesSent         prometheus.Counter
	BatchesReceived     prometheus.Counter
	FramesRetransmitted prometheus.Counter
	AckRecordsSent      prometheus.Counter
	CompoundsCompleted  prometheus.Counter
	RecoveryQueueDepth  prometheus.Gauge
}

// NewMetrics registers a fresh set of instruments on reg and returns
// them. Pass a nil *Metrics to a Session to disable metrics entirely.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		BatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raknet_batches_sent_total",
			Help:        "Frame batches sent on the wire.",
			ConstLabels: constLabels,
		}),
		BatchesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raknet_batches_received_total",
			Help:        "Frame batches received from the wire.",
			ConstLabels: constLabels,
		}),
		FramesRetransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raknet_frames_retransmitted_total",
			Help:        "Frames resent in response to a NACK.",
			ConstLabels: constLabels,
		}),
		AckRecordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raknet_ack_records_sent_total",
			Help:        "Acknowledgement records sent to peers.",
			ConstLabels: constLabels,
		}),
		CompoundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raknet_compounds_completed_total",
			Help:        "Fragmented frames successfully reassembled.",
			ConstLabels: constLabels,
		}),
		RecoveryQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "raknet_recovery_queue_depth",
			Help:        "Batches currently held pending acknowledgement.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BatchesSent, m.BatchesReceived, m.FramesRetransmitted,
			m.AckRecordsSent, m.CompoundsCompleted, m.RecoveryQueueDepth,
		)
	}
	return m
}

func (m *Metrics) incBatchesSent() {
	if m != nil {
		m.BatchesSent.Inc()
	}
}

func (m *Metrics) incBatchesReceived() {
	if m != nil {
		m.BatchesReceived.Inc()
	}
}

func (m *Metrics) addFramesRetransmitted(n int) {
	if m != nil {
		m.FramesRetransmitted.Add(float64(n))
	}
}

func (m *Metrics) addAckRecordsSent(n int) {
	if m != nil {
		m.AckRecordsSent.Add(float64(n))
	}
}

func (m *Metrics) incCompoundsCompleted() {
	if m != nil {
		m.CompoundsCompleted.Inc()
	}
}

func (m *Metrics) setRecoveryQueueDepth(n int) {
	if m != nil {
		m.RecoveryQueueDepth.Set(float64(n))
	}
}
