package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

var (
	registry *prometheus.Registry

	// OpenWeather API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Raw snapshots uploaded to the object store.
	SnapshotsStoredTotal prometheus.Counter

	// Forecast records upserted into the table store.
	ForecastRecordsWrittenTotal prometheus.Counter

	// Per-stage failures, labeled fetch_current, fetch_forecast, snapshot, forecast_write.
	CityFailuresTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total OpenWeather API calls by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)
	SnapshotsStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshotsStoredTotal",
			Help: "Total raw weather snapshots written to the object store",
		},
	)
	ForecastRecordsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastRecordsWrittenTotal",
			Help: "Total forecast records upserted into the table store",
		},
	)
	CityFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityFailuresTotal",
			Help: "Per-city pipeline failures by stage",
		},
		[]string{"stage"},
	)

	registry.MustRegister(
		WeatherAPICallsTotal,
		SnapshotsStoredTotal,
		ForecastRecordsWrittenTotal,
		CityFailuresTotal,
	)
}

// LogRunSummary gathers the run counters and logs them once. A one-shot job
// has no scrape endpoint, so the registry is drained into the log instead.
func LogRunSummary(logger *zap.Logger) {
	mfs, err := registry.Gather()
	if err != nil {
		logger.Warn("gather run metrics", zap.Error(err))
		return
	}

	fields := make([]zap.Field, 0, len(mfs))
	for _, mf := range mfs {
		var total float64
		for _, m := range mf.GetMetric() {
			total += counterValue(m)
		}
		fields = append(fields, zap.Float64(mf.GetName(), total))
	}
	logger.Info("run summary", fields...)
}

func counterValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}
