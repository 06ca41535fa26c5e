package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_sessions_created_total",
		Help: "Import sessions opened from uploaded files.",
	})
	sessionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_sessions_failed_total",
		Help: "Session creations that failed, by stage.",
	}, []string{"stage"})
	resolutionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_resolutions_applied_total",
		Help: "Operator resolutions applied, by action.",
	}, []string{"action"})
	batchesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_batches_submitted_total",
		Help: "Batches written to the ledger.",
	})
	valuesUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_unresolved_values_total",
		Help: "Distinct identifier values that imported as null.",
	})
	batchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_batches_failed_total",
		Help: "Batch writes that failed at the database.",
	})
	rowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_rows_inserted_total",
		Help: "Movement rows inserted through imports.",
	})
)
