// Package client provides typed gRPC clients for the worker and
// controller services, wrapping raw invocations with the shared JSON
// codec and endpoint-tagged errors.
package client
