package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

// WorkflowMetrics observes the poller, upload workflow and backend resilience.
type WorkflowMetrics struct {
	service string

	pollerTicks    *prometheus.CounterVec
	uploadBatches  *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	uploadFiles    prometheus.Counter
	tasksFinished  *prometheus.CounterVec
	statusGauge    *prometheus.GaugeVec
	retries        *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func NewWorkflowMetrics(service string, reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		service: service,
		pollerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Background poller ticks by timer and result.",
		}, []string{"service", "timer", "result"}),
		uploadBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "batches_total",
			Help:      "Multipart upload batches by status.",
		}, []string{"service", "status"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one multipart upload batch.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"service", "status"}),
		uploadFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "upload",
			Name:        "files_total",
			Help:        "Files sent in successful batches.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "finished_total",
			Help:      "Processing tasks that reached a settled status.",
		}, []string{"service", "status"}),
		statusGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "value",
			Help:      "Current GlobalStatus fields.",
		}, []string{"service", "field"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Retried backend operations.",
		}, []string{"service", "operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker of an operation is not closed.",
		}, []string{"service", "operation"}),
	}
	reg.MustRegister(
		m.pollerTicks,
		m.uploadBatches,
		m.uploadDuration,
		m.uploadFiles,
		m.tasksFinished,
		m.statusGauge,
		m.retries,
		m.breakerState,
	)
	return m
}

func (m *WorkflowMetrics) PollerTick(timer, result string) {
	m.pollerTicks.WithLabelValues(m.service, timer, result).Inc()
}

func (m *WorkflowMetrics) UploadBatch(files int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		m.uploadFiles.Add(float64(files))
	}
	m.uploadBatches.WithLabelValues(m.service, status).Inc()
	m.uploadDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkflowMetrics) TaskFinished(status domain.TaskStatus) {
	m.tasksFinished.WithLabelValues(m.service, string(status)).Inc()
}

func (m *WorkflowMetrics) StatusChanged(s domain.GlobalStatus) {
	set := func(field string, v float64) {
		m.statusGauge.WithLabelValues(m.service, field).Set(v)
	}
	set("review_count", float64(s.ReviewCount))
	set("sync_count", float64(s.SyncCount))
	set("processing_count", float64(s.ProcessingCount))
	set("total_processing", float64(s.TotalProcessing))
	set("is_uploading", boolGauge(s.IsUploading))
	set("is_complete", boolGauge(s.IsComplete))
}

func (m *WorkflowMetrics) RetryAttempt(operation string, _ int) {
	m.retries.WithLabelValues(m.service, operation).Inc()
}

func (m *WorkflowMetrics) BreakerStateChanged(operation, _, to string) {
	m.breakerState.WithLabelValues(m.service, operation).Set(boolGauge(to != "closed"))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
