package client

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Timeouts applied by callers around the typed client methods. Pings are
// short so dead workers are detected quickly; module execution runs for
// the length of an experiment stage.
const (
	PingTimeout      = 5 * time.Second
	PreflightTimeout = 20 * time.Second
	ExecuteTimeout   = time.Hour
)

// dial opens a gRPC client connection with the JSON content subtype both
// services speak.
func dial(addr, codecName string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}
