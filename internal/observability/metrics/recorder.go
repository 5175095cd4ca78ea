// Copyright 2026 The Gatherly Authors
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

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Gateway instruments
const (
	AuthzDecisions     = "authz_decisions_total"
	SessionTransitions = "session_transitions_total"
	UpstreamDuration   = "upstream_request_duration_seconds"
)

// Recorder records gateway metrics
type Recorder struct {
	decisions   metric.Int64Counter
	transitions metric.Int64Counter
	upstream    metric.Float64Histogram
}

// NewRecorder registers the gateway instruments on m
func NewRecorder(m *Meter) (*Recorder, error) {
	decisions, err := m.CreateCounter(AuthzDecisions, "Capability checks made by route guards")
	if err != nil {
		return nil, err
	}
	transitions, err := m.CreateCounter(SessionTransitions, "Session lifecycle transitions")
	if err != nil {
		return nil, err
	}
	upstream, err := m.CreateHistogram(UpstreamDuration, "Latency of proxied backend requests", "s")
	if err != nil {
		return nil, err
	}
	return &Recorder{decisions: decisions, transitions: transitions, upstream: upstream}, nil
}

// RecordDecision counts one guard decision
func (r *Recorder) RecordDecision(ctx context.Context, capability string, allowed bool) {
	if r == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("result", result),
	))
}

// RecordTransition counts a session event such as login or logout
func (r *Recorder) RecordTransition(ctx context.Context, event, outcome string) {
	if r == nil {
		return
	}
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

// RecordUpstream observes one proxied request
func (r *Recorder) RecordUpstream(ctx context.Context, route string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.upstream.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
