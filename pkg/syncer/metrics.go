package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codexmonitor_snapshot_fetches_total",
		Help: "Snapshot fetches issued, by scope kind.",
	}, []string{"kind"})
	metricFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_snapshot_fetch_errors_total",
		Help: "Snapshot fetches that returned a transport error.",
	})
	metricAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_snapshots_accepted_total",
		Help: "Envelopes accepted after the timestamp check.",
	})
	metricDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_snapshots_discarded_total",
		Help: "Envelopes discarded as stale, malformed or wrong version.",
	})
	metricCommandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_commands_sent_total",
		Help: "Command envelopes handed to the transport.",
	})
	metricCommandErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_command_errors_total",
		Help: "Commands that ended in the error phase.",
	})
	metricReplyTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_reply_timeouts_total",
		Help: "Awaiting-reply records force-cleared by the reply timeout.",
	})
)
