package sender

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics keeps track of per-worker connection and traffic counts.
type Metrics struct {
	Connected      prometheus.Gauge       // Workers currently holding a live connection.
	ConnectAttempt *prometheus.CounterVec // Labelled by worker and result ("success" or "failure").
	Sent           *prometheus.CounterVec
	SendFailures   *prometheus.CounterVec
	Received       *prometheus.CounterVec
	ReceiveErrors  *prometheus.CounterVec
	Completed      prometheus.Counter // Workers that reached their send quota.
}

// NewMetrics registers the sender's metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wssender_connected_workers",
				Help: "Number of workers currently holding a live WebSockets connection",
			},
		),
		ConnectAttempt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wssender_connect_attempts_total",
				Help: "Total number of connect attempts, by worker and result",
			},
			[]string{"worker", "result"},
		),
		Sent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wssender_sent_total",
				Help: "Total number of payloads transmitted, by worker",
			},
			[]string{"worker"},
		),
		SendFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wssender_send_failures_total",
				Help: "Total number of failed payload transmissions, by worker",
			},
			[]string{"worker"},
		),
		Received: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wssender_received_frames_total",
				Help: "Total number of frames received while draining, by worker",
			},
			[]string{"worker"},
		),
		ReceiveErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wssender_receive_errors_total",
				Help: "Total number of receive failures that forced a reconnect, by worker",
			},
			[]string{"worker"},
		),
		Completed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wssender_completed_workers_total",
				Help: "Total number of workers that reached their send quota",
			},
		),
	}
}
