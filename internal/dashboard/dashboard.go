// Package dashboard runs the per-city pipeline: fetch current conditions
// and the 5-day forecast, print a summary, upload the raw snapshot, and
// upsert per-day forecast records.
package dashboard

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/stef-codes/30days-weather-dashboard/internal/client"
	"github.com/stef-codes/30days-weather-dashboard/internal/forecast"
	"github.com/stef-codes/30days-weather-dashboard/internal/models"
	"github.com/stef-codes/30days-weather-dashboard/internal/observability"
)

// maxSummarySlots caps how many forecast slots the console summary shows.
const maxSummarySlots = 5

// SnapshotSink stores one raw weather snapshot per fetch.
type SnapshotSink interface {
	Put(ctx context.Context, reading models.WeatherReading, raw []byte) (string, error)
}

// ForecastSink upserts per-day forecast records keyed by (City, Date).
type ForecastSink interface {
	EnsureTable(ctx context.Context) error
	Put(ctx context.Context, records []models.ForecastRecord) error
}

// Dashboard wires the fetcher, transformer, and sinks together. Cities are
// processed sequentially; each city's failures are logged and do not stop
// the run.
type Dashboard struct {
	client    client.WeatherClient
	snapshots SnapshotSink
	forecasts ForecastSink
	logger    *zap.Logger
	out       io.Writer
}

func New(wc client.WeatherClient, snapshots SnapshotSink, forecasts ForecastSink, logger *zap.Logger, out io.Writer) *Dashboard {
	return &Dashboard{
		client:    wc,
		snapshots: snapshots,
		forecasts: forecasts,
		logger:    logger,
		out:       out,
	}
}

// Run processes every city in order. Table bootstrap happens once up front;
// if it fails no write could succeed, so the run aborts. Returns an error
// only when every city failed completely.
func (d *Dashboard) Run(ctx context.Context, cities []string) error {
	if err := d.forecasts.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure forecast table: %w", err)
	}

	succeeded := 0
	for _, city := range cities {
		if d.processCity(ctx, city) {
			succeeded++
		}
	}

	if succeeded == 0 {
		return fmt.Errorf("all %d cities failed", len(cities))
	}
	d.logger.Info("run complete", zap.Int("cities", len(cities)), zap.Int("succeeded", succeeded))
	return nil
}

// processCity runs both pipeline legs for one city. The legs are
// independent, matching the upstream endpoints: a current-conditions
// failure does not prevent the forecast leg, and vice versa. Persistence is
// best-effort with no transactional guarantee across the two sinks.
func (d *Dashboard) processCity(ctx context.Context, city string) bool {
	log := d.logger.With(zap.String("city", city))

	currentOK := d.processCurrent(ctx, city, log)
	forecastOK := d.processForecast(ctx, city, log)

	return currentOK || forecastOK
}

func (d *Dashboard) processCurrent(ctx context.Context, city string, log *zap.Logger) bool {
	fmt.Fprintf(d.out, "\nFetching current weather for %s...\n", city)

	reading, raw, err := d.client.CurrentWeather(ctx, city)
	if err != nil {
		observability.CityFailuresTotal.WithLabelValues("fetch_current").Inc()
		log.Error("fetch current weather", zap.Error(err))
		return false
	}
	d.printCurrent(reading)

	key, err := d.snapshots.Put(ctx, reading, raw)
	if err != nil {
		observability.CityFailuresTotal.WithLabelValues("snapshot").Inc()
		log.Error("store snapshot", zap.Error(err))
		return true // fetch itself succeeded
	}
	observability.SnapshotsStoredTotal.Inc()
	log.Info("snapshot stored", zap.String("key", key))
	return true
}

func (d *Dashboard) processForecast(ctx context.Context, city string, log *zap.Logger) bool {
	fmt.Fprintf(d.out, "\nFetching 5-day forecast for %s...\n", city)

	entries, err := d.client.Forecast(ctx, city)
	if err != nil {
		observability.CityFailuresTotal.WithLabelValues("fetch_forecast").Inc()
		log.Error("fetch forecast", zap.Error(err))
		return false
	}
	d.printForecast(entries)

	records := forecast.DailyRecords(city, entries)
	if err := d.forecasts.Put(ctx, records); err != nil {
		observability.CityFailuresTotal.WithLabelValues("forecast_write").Inc()
		log.Error("store forecast records", zap.Error(err))
		return true
	}
	observability.ForecastRecordsWrittenTotal.Add(float64(len(records)))
	log.Info("forecast records stored", zap.Int("records", len(records)))
	return true
}

func (d *Dashboard) printCurrent(r models.WeatherReading) {
	fmt.Fprintf(d.out, "Current Temperature: %.1f°F\n", r.Temperature)
	fmt.Fprintf(d.out, "Feels like: %.1f°F\n", r.FeelsLike)
	fmt.Fprintf(d.out, "Humidity: %d%%\n", r.Humidity)
	fmt.Fprintf(d.out, "Conditions: %s\n", r.Conditions)
}

func (d *Dashboard) printForecast(entries []models.ForecastEntry) {
	n := len(entries)
	if n > maxSummarySlots {
		n = maxSummarySlots
	}
	for _, e := range entries[:n] {
		fmt.Fprintf(d.out, "%s: %.1f°F, %s\n", e.At.Format("2006-01-02 15:04"), e.Temperature, e.Conditions)
	}
}
