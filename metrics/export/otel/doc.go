// Package otel publishes iuran client metrics through OpenTelemetry
// asynchronous instruments.
//
// [NewExporter] takes a caller-owned Meter. Counters map to
// Int64ObservableCounter and each histogram bucket to an
// Int64ObservableGauge.
package otel
