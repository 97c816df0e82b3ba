// Package api serves the controller's remote control facade over gRPC,
// translating wire requests into controller operations and controller
// errors into gRPC status codes.
package api
