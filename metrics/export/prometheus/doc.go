// Package prometheus exposes goProof metrics through client_golang.
//
// [Exporter] is a prometheus.Collector reading [goProof.Engine.MetricsSnapshot]
// on each scrape. Counter names are prefixed goproof_*_total; the single
// histogram is goproof_redeem_latency_seconds. [RedisPoolCollector] adds the
// pool statistics of the Redis client when one is configured.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Handler uses a
//     private registry; callers may also register the collectors themselves.
//   - Mutate engine state.
package prometheus
