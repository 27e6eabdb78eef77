// Command watchd runs a Watch Change Aggregator end to end: an oplog-backed
// feed serving a watch stream over gRPC, a local aggregator dialing that
// stream, and a debug/control-plane HTTP surface (JSON, GraphQL, WebSocket)
// over whatever the aggregator currently holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kaleido-sync/watchagg/pkg/query"
	"github.com/kaleido-sync/watchagg/pkg/replication"
	"github.com/kaleido-sync/watchagg/pkg/server"
	"github.com/kaleido-sync/watchagg/pkg/watch"
	"github.com/kaleido-sync/watchagg/pkg/watch/localstore"
	"github.com/kaleido-sync/watchagg/pkg/watch/transport"
)

func main() {
	host := flag.String("host", "localhost", "Debug HTTP server host")
	port := flag.Int("port", 8080, "Debug HTTP server port")
	grpcHost := flag.String("grpc-host", "127.0.0.1", "Watch stream gRPC host")
	grpcPort := flag.Int("grpc-port", 27019, "Watch stream gRPC port")
	oplogPath := flag.String("oplog", "./watchd.oplog", "Path to the oplog file backing the watch stream")
	targetsFlag := flag.String("targets", "1", "Comma-separated target ids to open against the watch stream on startup")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	enableTLS := flag.Bool("tls", false, "Enable TLS/SSL on the debug HTTP server")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "Path to TLS private key file")
	enableGraphQL := flag.Bool("graphql", false, "Enable GraphQL introspection endpoint (/graphql) and GraphiQL playground (/graphiql)")
	enableAuth := flag.Bool("auth", false, "Require an authenticated session to open the debug WebSocket feed")
	flag.Parse()

	targetIDs, err := parseTargetIDs(*targetsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchd: %v\n", err)
		os.Exit(1)
	}

	oplog, err := replication.NewOplog(*oplogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchd: failed to open oplog: %v\n", err)
		os.Exit(1)
	}
	defer oplog.Close()

	store := localstore.New()
	for _, t := range targetIDs {
		store.Listen(t, localstore.NewCollectionQuery(t, query.NewQuery(nil)))
	}

	agg := watch.NewAggregator(store.QueryDataCallback, store.ExistingKeysCallback)

	feed := transport.NewOplogFeed(oplog, store, 200*time.Millisecond)
	transportCfg := transport.DefaultConfig()
	transportCfg.Host = *grpcHost
	transportCfg.Port = *grpcPort
	watchSrv := transport.NewServer(transportCfg, feed)
	if err := watchSrv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "watchd: failed to start watch stream server: %v\n", err)
		os.Exit(1)
	}
	defer watchSrv.Stop()

	clientCfg := transport.DefaultClientConfig(fmt.Sprintf("%s:%d", *grpcHost, *grpcPort))
	client, err := transport.Dial(clientCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchd: failed to dial watch stream: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go func() {
		if err := client.Watch(watchCtx, int64sOf(targetIDs), agg); err != nil {
			fmt.Fprintf(os.Stderr, "watchd: watch stream ended: %v\n", err)
		}
	}()

	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.AllowedOrigins = []string{*corsOrigin}
	config.EnableTLS = *enableTLS
	config.TLSCertFile = *tlsCert
	config.TLSKeyFile = *tlsKey
	config.EnableGraphQL = *enableGraphQL
	config.EnableAuth = *enableAuth

	srv, err := server.New(config, agg, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchd: failed to create debug server: %v\n", err)
		os.Exit(1)
	}

	go flushSnapshots(watchCtx, agg, store, srv)

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "watchd: server error: %v\n", err)
		os.Exit(1)
	}
}

// flushSnapshots periodically turns whatever the aggregator has accumulated
// into a RemoteEvent, folds it back into the local store so the next
// QueryData/ExistingKeys round reflects it, and broadcasts it to every
// connected debug WebSocket client.
func flushSnapshots(ctx context.Context, agg *watch.Aggregator, store *localstore.Store, srv *server.Server) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var version watch.SnapshotVersion
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			version++
			event := agg.CreateRemoteEvent(version)
			if len(event.TargetChanges) == 0 && event.DocumentUpdates.Len() == 0 {
				continue
			}
			store.ApplyRemoteEvent(event)
			srv.EventHub().Broadcast(event)
		}
	}
}

func parseTargetIDs(raw string) ([]watch.TargetID, error) {
	parts := strings.Split(raw, ",")
	ids := make([]watch.TargetID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid target id %q: %w", p, err)
		}
		ids = append(ids, watch.TargetID(n))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no target ids given")
	}
	return ids, nil
}

func int64sOf(ids []watch.TargetID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
