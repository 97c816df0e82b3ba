package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Project metrics
	ProjectsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amnes_projects_imported_total",
			Help: "Total number of imported projects",
		},
	)

	ProjectRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amnes_project_runs_total",
			Help: "Total number of project runs by result",
		},
		[]string{"result"},
	)

	// Experiment metrics
	RepetitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amnes_repetitions_total",
			Help: "Total number of executed repetitions by terminal state",
		},
		[]string{"state"},
	)

	RepetitionRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "amnes_repetition_running",
			Help: "Whether a repetition is currently executing (1 = yes)",
		},
	)

	// Task metrics
	TasksDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amnes_tasks_dispatched_total",
			Help: "Total number of dispatched node tasks",
		},
	)

	TasksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amnes_tasks_failed_total",
			Help: "Total number of failed node tasks",
		},
	)

	// Transfer metrics
	FilesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amnes_files_received_total",
			Help: "Total number of result files received from workers",
		},
	)
)

func init() {
	prometheus.MustRegister(ProjectsImported)
	prometheus.MustRegister(ProjectRuns)
	prometheus.MustRegister(RepetitionsTotal)
	prometheus.MustRegister(RepetitionRunning)
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(FilesReceived)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
