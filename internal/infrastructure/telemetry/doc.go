// Package telemetry provides InfluxDB connectivity for TourForge Core.
//
// It wraps the official influxdb-client-go v2 library with TourForge-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Pipeline stage durations
//   - Generation job outcomes (per kind, model, and status)
//   - Cache hit/miss rates
//
// # Usage
//
//	cfg := config.TelemetryConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "tourforge",
//	    Bucket:  "pipeline",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteStageDuration(executionID, "analysis", elapsed, true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// Telemetry is optional. When disabled in config, Connect returns ErrDisabled
// and callers run without a client; all pipeline behaviour is unaffected.
package telemetry
