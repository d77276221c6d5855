// Package metrics defines and registers all custom Prometheus metrics for the
// users service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default registry at package init through
// promauto; HTTP request metrics are handled separately by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users_service"

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts users successfully inserted.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created.",
	},
)

// UserCreationFailuresTotal counts failed inserts.
// Label:
//   - reason: "duplicate_email", "no_row" or "insert_failed"
var UserCreationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_creation_failures_total",
		Help:      "Total number of failed user inserts, by reason.",
	},
	[]string{"reason"},
)

// UserLookupsNotFoundTotal counts getUser calls that resolved to not found.
// Label:
//   - reason: "malformed_id", "missing" or "query_failed"
var UserLookupsNotFoundTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_lookups_not_found_total",
		Help:      "Total number of user lookups that ended as not found.",
	},
	[]string{"reason"},
)

// UserListDegradedTotal counts list queries whose failure was replaced with
// an empty result.
var UserListDegradedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_list_degraded_total",
		Help:      "Total number of list queries that failed and returned an empty list.",
	},
)

// ── Database handle metrics ───────────────────────────────────────────────────

// DBHandlesActive tracks request-scoped handles currently checked out.
var DBHandlesActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_handles_active",
		Help:      "Number of request-scoped database handles currently held.",
	},
)

// DBHandleErrorsTotal counts handle failures.
// Labels:
//   - op: "acquire" or "release"
var DBHandleErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_handle_errors_total",
		Help:      "Total number of failed database handle acquisitions and releases.",
	},
	[]string{"op"},
)

// ── RPC metrics ───────────────────────────────────────────────────────────────

// RPCCallsTotal counts RPC procedure calls.
// Labels:
//   - procedure: "getUser", "listUsers", "createUser" or "unknown"
//   - outcome:   "success", "failure" or "die"
var RPCCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_calls_total",
		Help:      "Total number of RPC procedure calls, by procedure and outcome.",
	},
	[]string{"procedure", "outcome"},
)

// ── Background work metrics ───────────────────────────────────────────────────

// BackgroundTasksTotal counts post-response tasks.
// Labels:
//   - task:   task name (e.g. "user.created")
//   - result: "ok", "error" or "dropped"
var BackgroundTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "background_tasks_total",
		Help:      "Total number of background tasks, by task and result.",
	},
	[]string{"task", "result"},
)

// BackgroundTaskDuration measures how long a background task runs.
var BackgroundTaskDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "background_task_duration_seconds",
		Help:      "Duration of background task execution.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"task"},
)

// BackgroundQueueDepth tracks tasks waiting for a worker.
var BackgroundQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "background_queue_depth",
		Help:      "Current number of background tasks waiting for a worker.",
	},
)
