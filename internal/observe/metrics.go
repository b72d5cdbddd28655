// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush reasons recorded on sitepool_flushes_total.
const (
	FlushMemory = "memory"
	FlushFinal  = "final"
)

// Recorder keeps Prometheus metrics for executor runs.
type Recorder struct {
	rounds   prometheus.Counter
	units    prometheus.Counter
	flushes  *prometheus.CounterVec
	recycles prometheus.Counter
	memory   prometheus.Gauge
}

// NewRecorder registers the executor metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		rounds: f.NewCounter(prometheus.CounterOpts{
			Name: "sitepool_rounds_total",
			Help: "Gather rounds completed.",
		}),
		units: f.NewCounter(prometheus.CounterOpts{
			Name: "sitepool_units_total",
			Help: "Units gathered from the worker pool.",
		}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepool_flushes_total",
			Help: "Sink flushes by reason.",
		}, []string{"reason"}),
		recycles: f.NewCounter(prometheus.CounterOpts{
			Name: "sitepool_pool_recycles_total",
			Help: "Times the worker pool was discarded and recreated.",
		}),
		memory: f.NewGauge(prometheus.GaugeOpts{
			Name: "sitepool_memory_utilization_ratio",
			Help: "Most recently sampled host memory utilization.",
		}),
	}
}

func (r *Recorder) RoundGathered(units int) {
	r.rounds.Inc()
	r.units.Add(float64(units))
}

func (r *Recorder) Flushed(reason string) {
	r.flushes.WithLabelValues(reason).Inc()
}

func (r *Recorder) Recycled() {
	r.recycles.Inc()
}

func (r *Recorder) MemorySampled(ratio float64) {
	r.memory.Set(ratio)
}

// WriteTextfile writes everything gathered from g to path in the text
// exposition format, for pickup by a node exporter.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
