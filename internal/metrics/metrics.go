// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 缩略图解析结果
const (
	ThumbnailCacheHit    = "cache_hit"
	ThumbnailGenerated   = "generated"
	ThumbnailPlaceholder = "placeholder"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pog",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	ThumbnailResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pog",
			Name:      "thumbnail_resolutions_total",
			Help:      "Video thumbnail resolutions by outcome",
		},
		[]string{"outcome"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pog",
			Name:      "uploads_total",
			Help:      "Total media uploads",
		},
		[]string{"type", "status"},
	)

	// MediaItemsDropped 统计聚合画廊时因解析失败而被剔除的条目。
	MediaItemsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pog",
			Name:      "media_items_dropped_total",
			Help:      "Gallery items dropped because their resolution failed",
		},
	)
)
