// Copyright 2026 The Sitegen Authors
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
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: noop.NewMeterProvider().Meter("noop"),
		}, nil
	}

	// Uses the global provider; exporters are wired by the environment
	return &Meter{
		meter: otel.Meter(serviceName),
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// Instruments groups the site-specific instruments. A nil *Instruments is
// valid and records nothing.
type Instruments struct {
	meter              metric.Meter
	siteLoads          metric.Int64Counter
	generations        metric.Int64Counter
	imageFailures      metric.Int64Counter
	generationDuration metric.Float64Histogram
}

// NewInstruments registers the sitegen instruments on m
func NewInstruments(m *Meter) (*Instruments, error) {
	loads, err := m.CreateCounter("sitegen.site.loads", "Site config loads by outcome")
	if err != nil {
		return nil, err
	}
	gens, err := m.CreateCounter("sitegen.content.generations", "Content generation passes by outcome")
	if err != nil {
		return nil, err
	}
	imgFails, err := m.CreateCounter("sitegen.image.failures", "Image generation failures")
	if err != nil {
		return nil, err
	}
	dur, err := m.CreateHistogram("sitegen.generation.duration", "Content generation pass duration", "s")
	if err != nil {
		return nil, err
	}
	return &Instruments{
		meter:              m.meter,
		siteLoads:          loads,
		generations:        gens,
		imageFailures:      imgFails,
		generationDuration: dur,
	}, nil
}

// SiteLoad records one config load. outcome is "cache", "store", "default"
// or "error".
func (i *Instruments) SiteLoad(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.siteLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Generation records a finished generation pass
func (i *Instruments) Generation(ctx context.Context, outcome string, elapsed time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.generations.Add(ctx, 1, attrs)
	i.generationDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ImageFailure records a failed image for the given item kind
func (i *Instruments) ImageFailure(ctx context.Context, kind string) {
	if i == nil {
		return
	}
	i.imageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ObserveCacheEntries reports the size of the in-process config cache on
// every collection.
func (i *Instruments) ObserveCacheEntries(size func() int) error {
	if i == nil {
		return nil
	}
	_, err := i.meter.Int64ObservableGauge("sitegen.cache.entries",
		metric.WithDescription("Entries held by the in-memory config cache"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(size()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create gauge sitegen.cache.entries: %w", err)
	}
	return nil
}
