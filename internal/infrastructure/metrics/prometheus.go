// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediagate"

var (
	// IngestionsTotal tracks finished ingestion attempts.
	// Labels:
	//   - family: video, audio
	//   - result: published, rejected, failed
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Total number of ingestion attempts by outcome",
		},
		[]string{"family", "result"},
	)

	// IngestDurationSeconds observes the wall time of accepted ingestions.
	IngestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingestion attempts",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"family"},
	)

	// TranscodeProcessesTotal counts transcoder processes.
	// Labels:
	//   - op: probe, transcode, thumbnail
	//   - result: success, failed
	TranscodeProcessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_processes_total",
			Help:      "Total number of transcoder processes run",
		},
		[]string{"op", "result"},
	)

	// TranscodeProcessDurationSeconds observes the run time of one process.
	TranscodeProcessDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_process_duration_seconds",
			Help:      "Duration of transcoder processes",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"op"},
	)

	// PublishedObjectsTotal counts objects written to the content store by ingestion.
	// Labels:
	//   - bucket: target bucket name
	PublishedObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_objects_total",
			Help:      "Total number of objects published to the content store",
		},
		[]string{"bucket"},
	)

	// AdmissionDecisionsTotal tracks rate limiter outcomes.
	// Labels:
	//   - class: general, ingest
	//   - result: allowed, limited, error
	AdmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Total number of admission control decisions",
		},
		[]string{"class", "result"},
	)

	// PlaybackDecisionsTotal tracks access policy outcomes on the read path.
	// Labels:
	//   - result: granted, denied, not_found
	PlaybackDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_decisions_total",
			Help:      "Total number of playback resolution outcomes",
		},
		[]string{"result"},
	)

	// OrphansReapedTotal counts objects deleted by the reaper.
	OrphansReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_reaped_objects_total",
			Help:      "Total number of orphaned objects deleted",
		},
	)

	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: ingest_attempts
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Transcoder process result constants.
const (
	ProcessResultSuccess = "success"
	ProcessResultFailed  = "failed"
)

// Ingestion result constants.
const (
	IngestResultPublished = "published"
	IngestResultRejected  = "rejected"
	IngestResultFailed    = "failed"
)

// Admission result constants.
const (
	AdmissionAllowed = "allowed"
	AdmissionLimited = "limited"
	AdmissionError   = "error"
)

// Playback result constants.
const (
	PlaybackGranted  = "granted"
	PlaybackDenied   = "denied"
	PlaybackNotFound = "not_found"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableIngestAttempts = "ingest_attempts"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
