package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RedisPoolCollector exports connection pool statistics of the Redis client
// backing the replay set and the issuance throttle.
type RedisPoolCollector struct {
	client     redis.UniversalClient
	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

func NewRedisPoolCollector(client redis.UniversalClient) *RedisPoolCollector {
	return &RedisPoolCollector{
		client:     client,
		hits:       prometheus.NewDesc("goproof_redis_pool_hits_total", "Number of times a connection was found in the pool.", nil, nil),
		misses:     prometheus.NewDesc("goproof_redis_pool_misses_total", "Number of times a connection was not found in the pool.", nil, nil),
		timeouts:   prometheus.NewDesc("goproof_redis_pool_timeouts_total", "Number of times a connection was not obtained due to timeout.", nil, nil),
		totalConns: prometheus.NewDesc("goproof_redis_pool_total_conns", "Number of total connections in the pool.", nil, nil),
		idleConns:  prometheus.NewDesc("goproof_redis_pool_idle_conns", "Number of idle connections in the pool.", nil, nil),
		staleConns: prometheus.NewDesc("goproof_redis_pool_stale_conns_total", "Number of stale connections removed from the pool.", nil, nil),
	}
}

func (c *RedisPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.staleConns
}

func (c *RedisPoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.client == nil {
		return
	}
	stats := c.client.PoolStats()
	if stats == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stats.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.staleConns, prometheus.CounterValue, float64(stats.StaleConns))
}
