package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
)

// Push uploads one result file over a raw TCP connection: the token
// prefix first, then the stream, then EOF by closing the write side.
func Push(ctx context.Context, addr, token string, r io.Reader) error {
	if len(token) != TokenLength {
		return fmt.Errorf("transfer token must be %d characters, got %d", TokenLength, len(token))
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial transfer server %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, token); err != nil {
		return fmt.Errorf("failed to send transfer token: %w", err)
	}
	if _, err := io.Copy(conn, r); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}
	return nil
}
