package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applied to a manager", func() {
			m := &Manager{customLabels: map[string]string{}}
			for _, opt := range []Option{
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5 * time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
			} {
				opt(m)
			}

			Convey("Then each field should be set", func() {
				So(m.namespace, ShouldEqual, "test_namespace")
				So(m.subsystem, ShouldEqual, "test_subsystem")
				So(m.metricPrefix, ShouldEqual, "test_prefix")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.enabled, ShouldBeTrue)
				So(m.refreshInterval, ShouldEqual, 5*time.Second)
				So(m.customLabels, ShouldResemble, map[string]string{"env": "test"})
			})
		})

		Convey("When given empty values", func() {
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithNamespace(""),
				WithSubsystem(""),
				WithRefreshInterval(0),
			)

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "scorebot")
				So(m.subsystem, ShouldEqual, "predictor")
				So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When reading the global refresh interval", func() {
			Convey("Then the default sampling period is reported", func() {
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)
			manager.modelsLoaded.Set(2)

			Convey("Then metrics should register under the configured names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_models_loaded" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestPredictionMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When predictions are recorded", func() {
			before := testutil.ToFloat64(globalManager.predictions.WithLabelValues("linear", "ok"))
			RecordPrediction("linear", "ok")
			RecordPrediction("linear", "ok")
			RecordPredictionLatency("linear", 1.5)
			RecordBatchSize(4)

			Convey("Then the counter should advance", func() {
				after := testutil.ToFloat64(globalManager.predictions.WithLabelValues("linear", "ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When the result cache is consulted", func() {
			hits := testutil.ToFloat64(globalManager.resultCacheHits)
			misses := testutil.ToFloat64(globalManager.resultCacheMisses)
			RecordResultCache(true)
			RecordResultCache(false)
			RecordResultCache(false)
			RecordResultCacheError()

			Convey("Then hits and misses should be counted separately", func() {
				So(testutil.ToFloat64(globalManager.resultCacheHits)-hits, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.resultCacheMisses)-misses, ShouldEqual, 2)
			})
		})

		Convey("When defaults are filled", func() {
			before := testutil.ToFloat64(globalManager.defaultFilledCells)
			RecordDefaultFilled(3)
			RecordDefaultFilled(0)

			Convey("Then only positive counts should be added", func() {
				So(testutil.ToFloat64(globalManager.defaultFilledCells)-before, ShouldEqual, 3)
			})
		})

		Convey("When metrics are disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)
			before := testutil.ToFloat64(globalManager.predictions.WithLabelValues("rf", "ok"))
			RecordPrediction("rf", "ok")

			Convey("Then nothing should be recorded", func() {
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("rf", "ok")), ShouldEqual, before)
			})
		})
	})
}

func TestRegistryAndStatsMetrics(t *testing.T) {
	Convey("Given model and stats metrics", t, func() {
		Convey("When model loads are recorded", func() {
			okBefore := testutil.ToFloat64(globalManager.modelLoads.WithLabelValues("gboost", "ok"))
			errBefore := testutil.ToFloat64(globalManager.modelLoads.WithLabelValues("gboost", "error"))
			RecordModelLoad("gboost", true, 12)
			RecordModelLoad("gboost", false, 3)
			UpdateModelsLoaded(1)

			Convey("Then results should be labelled", func() {
				So(testutil.ToFloat64(globalManager.modelLoads.WithLabelValues("gboost", "ok"))-okBefore, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.modelLoads.WithLabelValues("gboost", "error"))-errBefore, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.modelsLoaded), ShouldEqual, 1)
			})
		})

		Convey("When the stats table is published", func() {
			UpdateStatsTable(96, 32)
			before := testutil.ToFloat64(globalManager.statsLookups.WithLabelValues("not_found"))
			RecordStatsLookup(false)
			RecordStatsLookupLatency(0.2)

			Convey("Then the gauges should reflect the table", func() {
				So(testutil.ToFloat64(globalManager.statsRows), ShouldEqual, 96)
				So(testutil.ToFloat64(globalManager.statsTeams), ShouldEqual, 32)
				So(testutil.ToFloat64(globalManager.statsLookups.WithLabelValues("not_found"))-before, ShouldEqual, 1)
			})
		})
	})
}

func TestHTTPErrorAndSystemMetrics(t *testing.T) {
	Convey("Given HTTP, error and system metrics", t, func() {
		Convey("When they are recorded", func() {
			Convey("Then recording should not panic", func() {
				So(func() { RecordHTTPRequest("/predict", "POST", "200") }, ShouldNotPanic)
				So(func() { RecordHTTPRequestDuration("/predict", "POST", "200", 3.2) }, ShouldNotPanic)
				So(func() { RecordErrorByComponent("registry", "model_load") }, ShouldNotPanic)
				So(func() { RecordErrorByType("not_found", "warning") }, ShouldNotPanic)
				So(func() { RecordErrorByEndpoint("/predict", "POST", "bad_request") }, ShouldNotPanic)
				So(func() { RecordErrorLatency("service", "internal", 1.0) }, ShouldNotPanic)
				So(func() { UpdateSystemMemoryUsage(1 << 20) }, ShouldNotPanic)
				So(func() { UpdateSystemGoroutineCount(8) }, ShouldNotPanic)
				So(func() { RecordSystemGCPauseTime(0.4) }, ShouldNotPanic)
			})
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it should contain the scorebot metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
