package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_requests_total",
		Help: "Total number of /api/contains requests",
	})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geodata_request_duration_ms",
		Help:    "Containment request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	HitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_hits_total",
		Help: "Total containment queries answered true",
	})
	MissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_misses_total",
		Help: "Total containment queries answered false",
	})
	OutOfRangeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_out_of_range_total",
		Help: "Total queries rejected by the +-180 coordinate bound",
	})
	LRUHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_lru_hits_total",
		Help: "Total in-process LRU cache hits",
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_redis_misses_total",
		Help: "Total redis cache misses",
	})
	MMDBLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodata_mmdb_lookups_total",
		Help: "Total mmdb lookups by outcome",
	}, []string{"outcome"})
	IndexReloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_index_reloads_total",
		Help: "Total successful region index reloads",
	})
	IndexRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geodata_index_regions",
		Help: "Region sets currently loaded in the index",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(HitsTotal)
	prometheus.MustRegister(MissesTotal)
	prometheus.MustRegister(OutOfRangeTotal)
	prometheus.MustRegister(LRUHitsTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(MMDBLookupsTotal)
	prometheus.MustRegister(IndexReloadsTotal)
	prometheus.MustRegister(IndexRegions)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
