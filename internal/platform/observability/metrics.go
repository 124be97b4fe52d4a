package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

var (
	ItemsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_items_scanned_total",
		Help: "The total number of items scored by an audit",
	}, []string{"audit", "item_type"})

	BadWordHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_bad_word_hits_total",
		Help: "The total number of bad word occurrences found",
	}, []string{"item_type", "category"})

	ItemsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_items_classified_total",
		Help: "The total number of items classified per bucket",
	}, []string{"item_type", "classification"})

	MembershipsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_memberships_inserted_total",
		Help: "The total number of segment membership rows created",
	}, []string{"item_type"})

	MembershipsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_memberships_removed_total",
		Help: "The total number of segment membership rows removed by reclassification",
	}, []string{"item_type"})

	ItemsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_items_ignored_total",
		Help: "The total number of items skipped because of the manual ignore list",
	}, []string{"item_type"})

	MasterBatchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brand_safety_master_batch_duration_seconds",
		Help:    "Duration in seconds to fan out, join and persist one master batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	}, []string{"audit"})

	MasterBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_master_batches_total",
		Help: "The total number of master batches processed",
	}, []string{"audit", "status"})

	WorkerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_worker_failures_total",
		Help: "The total number of coordinator workers that returned an error",
	}, []string{"audit"})

	AuditCursor = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "brand_safety_audit_cursor",
		Help: "Current position of an audit script tracker",
	}, []string{"audit"})

	CTLTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_ctl_transitions_total",
		Help: "The total number of custom target list lifecycle transitions",
	}, []string{"action"})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_tasks_processed_total",
		Help: "The total number of queued tasks handled by the materializer",
	}, []string{"kind", "status"})

	TaskDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brand_safety_task_duration_seconds",
		Help:    "Duration in seconds of one materialization task",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800, 3600},
	}, []string{"kind"})

	StoreRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brand_safety_store_request_duration_seconds",
		Help:    "Duration of backing item store page requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"store", "item_type"})

	StoreRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_store_request_errors_total",
		Help: "The total number of failed backing item store requests",
	}, []string{"store"})

	ScheduledRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_safety_scheduled_runs_total",
		Help: "The total number of cron-triggered jobs",
	}, []string{"job", "status"})
)
