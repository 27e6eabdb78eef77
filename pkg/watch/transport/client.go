package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kaleido-sync/watchagg/pkg/document"
	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// ClientConfig configures a Dial to a watch stream Server.
type ClientConfig struct {
	Addr              string
	DialTimeout       time.Duration
	TLS               bool
}

// DefaultClientConfig returns an insecure, locally-reachable client config.
func DefaultClientConfig(addr string) *ClientConfig {
	return &ClientConfig{Addr: addr, DialTimeout: 10 * time.Second}
}

// Client wraps a grpc.ClientConn to the watch stream service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a watch stream server.
func Dial(cfg *ClientConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", cfg.Addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Watch opens the server-streaming watch RPC for the given targets and
// applies every decoded WatchChange to agg as it arrives, until ctx is
// done or the server closes the stream.
func (c *Client) Watch(ctx context.Context, targetIDs []int64, agg *watch.Aggregator) error {
	stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "Watch", ServerStreams: true}, "/watchagg.transport.WatchStream/Watch")
	if err != nil {
		return fmt.Errorf("transport: opening watch stream: %w", err)
	}

	if err := stream.SendMsg(&streamRequest{TargetIDs: targetIDs}); err != nil {
		return fmt.Errorf("transport: sending watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("transport: closing send side: %w", err)
	}

	for {
		var msg Message
		if err := stream.RecvMsg(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		change, err := Decode(&msg, document.NewDocumentFromMap)
		if err != nil {
			return fmt.Errorf("transport: decoding watch message: %w", err)
		}
		agg.Apply(change)
	}
}
