package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorder_frames_total",
		Help: "Inbound frames processed, partitioned by decoded message kind",
	}, []string{"kind"})
	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_decode_errors_total",
		Help: "Inbound text frames that could not be decoded",
	})

	UpdatesRoutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_updates_routed_total",
		Help: "Trade updates forwarded to a channel writer",
	})
	UpdatesUnroutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_updates_unrouted_total",
		Help: "Trade updates for channel ids with no registered writer",
	})

	ActiveWriters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recorder_active_writers",
		Help: "Channel writers currently registered",
	})
	RecordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_records_written_total",
		Help: "Trade records appended to output files",
	})
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_write_errors_total",
		Help: "Failed appends to output files",
	})

	PingsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_pings_sent_total",
		Help: "Keepalive ping requests sent",
	})
)
