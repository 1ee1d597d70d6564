// Package telemetry exports Prometheus metrics and OpenTelemetry spans for
// mounts, queries and waits.
//
// Both are optional. A nil *Metrics records nothing, and a Tracer built
// with no options uses the global tracer provider, which is a no-op until
// the program installs one.
//
//	reg := prometheus.NewRegistry()
//	a := bore.New(
//	    bore.WithMetrics(telemetry.NewMetrics(telemetry.WithRegistry(reg))),
//	    bore.WithTracer(telemetry.NewTracer(telemetry.WithTracerName("e2e"))),
//	)
package telemetry
