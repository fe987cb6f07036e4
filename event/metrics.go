// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type busMetrics struct {
	published   *prometheus.CounterVec // Published provenance events by type
	dropped     *prometheus.CounterVec // Events dropped for full or closed subscribers
	subscribers *prometheus.GaugeVec   // Active subscribers by type
}

func (e *EventBus) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	e.metrics = &busMetrics{}
	e.metrics.published = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provenance_events_published_total",
			Help: "number of provenance events published by type",
		},
		[]string{"type"},
	)
	e.metrics.dropped = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provenance_events_dropped_total",
			Help: "number of events dropped for full or closed subscribers by type",
		},
		[]string{"type"},
	)
	e.metrics.subscribers = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provenance_event_subscribers",
			Help: "number of active event subscribers by type",
		},
		[]string{"type"},
	)
}
