// Package telemetry provides structured logging and Prometheus metrics
// for datapackage execution: zerolog component loggers plus counters and
// histograms covering runs started, completed and failed.
package telemetry
