// Package metrics defines the Prometheus metric set of the controller and
// a collector that feeds it from the internal event stream.
package metrics
