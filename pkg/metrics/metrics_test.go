package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the ballotboard namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.RecordTallyComputed()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "ballotboard_"), ShouldBeTrue)
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("votes"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordBallotStored()

			Convey("Then names and constant labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_votes_ballots_stored_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate collector", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording ballot pipeline metrics", func() {
			m.RecordBallotSubmitted(4)
			m.RecordBallotSubmitted(2)
			m.RecordBallotDuplicate()
			m.RecordBallotRejected("unknown_player")
			m.RecordBallotRejected("unknown_player")
			m.RecordBallotStored()

			Convey("Then the counters reflect the calls", func() {
				So(testutil.ToFloat64(m.ballotsSubmitted), ShouldEqual, 2)
				So(testutil.ToFloat64(m.ballotsDuplicate), ShouldEqual, 1)
				So(testutil.ToFloat64(m.ballotsRejected.WithLabelValues("unknown_player")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.ballotsStored), ShouldEqual, 1)
			})
		})

		Convey("When recording aggregation metrics", func() {
			m.RecordTallyComputed()
			m.RecordSeriesBuilt(2)
			m.RecordSeriesBuilt(5)
			m.UpdateRosterSize(12)
			m.UpdateStandingsTiedRows(3)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(m.talliesComputed), ShouldEqual, 1)
				So(testutil.ToFloat64(m.seriesBuilt), ShouldEqual, 2)
				So(testutil.ToFloat64(m.seriesWeeksUsed), ShouldEqual, 5)
				So(testutil.ToFloat64(m.rosterSize), ShouldEqual, 12)
				So(testutil.ToFloat64(m.standingsTiedRows), ShouldEqual, 3)
			})
		})

		Convey("When recording HTTP, store and error metrics", func() {
			So(func() {
				m.RecordHTTPRequest("standings", "GET", "200")
				m.RecordHTTPRequestDuration("standings", "GET", "200", 3)
				m.RecordStoreLatency("sqlite", "list_ballots", 1.5)
				m.RecordStoreError("sqlite", "upsert_ballot")
				m.RecordErrorByComponent("worker", "store_error")
				m.RecordErrorByType("store_error", "high")
				m.RecordErrorByEndpoint("ballots", "POST", "client_error")
				m.RecordErrorLatency("http", "client_error", 2)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("standings", "GET", "200")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.storeErrors.WithLabelValues("sqlite", "upsert_ballot")), ShouldEqual, 1)
		})

		Convey("When recording queue and worker metrics", func() {
			m.UpdateQueueCapacity(100)
			m.UpdateQueueSize(25)
			m.UpdateQueueUtilization(0.25)
			m.RecordQueueEnqueue()
			m.RecordQueueDequeue()
			m.RecordQueueEnqueueError()
			m.UpdateWorkerCount(4)
			m.RecordWorkerError()

			Convey("Then the values are readable", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(m.queueUtilization), ShouldEqual, 0.25)
				So(testutil.ToFloat64(m.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(m.workerErrors), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When package-level recorders are called", func() {
			So(func() {
				RecordBallotSubmitted(3)
				RecordBallotDuplicate()
				RecordBallotStored()
				RecordBallotRejected("window_closed")
				RecordTallyComputed()
				RecordStandingsLatency(1)
				RecordSeriesLatency(2)
				RecordSeriesBuilt(3)
				UpdateRosterSize(3)
				UpdateWeeksTotal(5)
				UpdateStandingsTiedRows(0)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then the custom registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["ballotboard_ballots_submitted_total"], ShouldBeTrue)
				So(names["ballotboard_series_weeks_used"], ShouldBeTrue)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					m.RecordTallyComputed()
				}
			}()
		}
		wg.Wait()
		So(testutil.ToFloat64(m.talliesComputed), ShouldEqual, 1000)
	})
}
