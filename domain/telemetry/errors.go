package telemetry

import "errors"

var (
	// ErrExporterFailed indicates telemetry export setup or delivery failed.
	ErrExporterFailed = errors.New("exporter failed")

	// ErrShutdownFailed indicates telemetry shutdown did not complete cleanly.
	ErrShutdownFailed = errors.New("shutdown failed")
)
