// Package worker implements the node-side daemon serving the worker gRPC
// service: liveness pings and node task execution.
package worker
