package sql

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-vault/metrics"
)

const subsystem = "database"

var queryLatency = metrics.NewHistogramWithBuckets(
	"query_duration",
	subsystem,
	"Duration of the query in nanoseconds",
	[]string{"query"},
	prometheus.ExponentialBuckets(100_000, 2, 20),
)

var connWaitLatency = metrics.NewHistogramWithBuckets(
	"connection_wait_seconds",
	subsystem,
	"Time spent waiting for a pooled connection",
	[]string{},
	prometheus.ExponentialBuckets(0.0001, 2, 16),
).WithLabelValues()
