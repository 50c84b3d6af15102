package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 查找来源
const (
	SourcePrimary = "primary"
	SourceLegacy  = "legacy"
	SourceMiss    = "miss"
)

var (
	// UploadsTotal 按分类和结果统计上传
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrcard_uploads_total",
			Help: "Total number of uploads",
		},
		[]string{"category", "status"},
	)

	// LookupsTotal 按命中的存储代统计查找
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrcard_lookups_total",
			Help: "Total number of file id lookups by resolving source",
		},
		[]string{"source"},
	)

	// DeletesTotal 删除次数
	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrcard_deletes_total",
			Help: "Total number of file deletions",
		},
		[]string{"status"},
	)

	// FileMissingTotal 记录存在但文件缺失
	FileMissingTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrcard_file_missing_total",
			Help: "Records whose physical file was missing",
		},
	)

	// AllocationRetries 放置文件时遇到同名文件而重新分配的次数
	AllocationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrcard_allocation_retries_total",
			Help: "Filename re-allocations after an exclusive placement conflict",
		},
	)
)
