// Package rpc defines the gRPC wire surface shared by the controller and
// the workers: the request/response message types, the service descriptors
// and the JSON codec both sides register.
//
// The service descriptors are written by hand in the shape protoc would
// generate, with plain Go structs instead of protobuf messages. Clients
// must dial with grpc.CallContentSubtype(CodecName) so the JSON codec is
// selected for every call.
package rpc
