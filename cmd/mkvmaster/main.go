// Command mkvmaster is the master coordinator: it owns the embedded
// index and dispatches PUT/GET/HEAD/DELETE/UNLINK/LIST over HTTP,
// redirecting clients to volume servers for the actual bytes.
//
// Flag parsing, dependency wiring, and ListenAndServe follow
// couchbaselabs/cbfs's main.go shape, cut down to this spec's surface.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vrnvu/minikeyvalue/config"
	"github.com/vrnvu/minikeyvalue/internal/index"
	"github.com/vrnvu/minikeyvalue/internal/master"
	"github.com/vrnvu/minikeyvalue/internal/placement"
	"github.com/vrnvu/minikeyvalue/internal/volume"
)

var (
	port        = flag.Int("port", 3000, "Listener port")
	indexPath   = flag.String("leveldb-path", "mkv.db", "Path to the durable index directory")
	volumesFlag = flag.String("volumes", "", "Comma-separated host[:port] list of volume servers")
	replicas    = flag.Int("replicas", 3, "Replication factor N")
	subvolumes  = flag.Int("subvolumes", 0, "Optional volume-internal shard count")
	lockShards  = flag.Int("lock-shards", 1024, "Number of key-lock shards")
	remoteConns = flag.Int("max-idle-conns-per-host", 100, "Max idle HTTP connections per volume host")
	remoteTO    = flag.Duration("remote-timeout", 30*time.Second, "Timeout for a single request to a volume")
	listLimit   = flag.Int("list-default-limit", 1000, "Default cap on ?list responses when &limit= is omitted")
	logLevel    = flag.String("log-level", "info", "Zap log level: debug, info, warn, error")
)

func parseVolumes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func main() {
	flag.Parse()

	log, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Default()
	cfg.Bind = fmt.Sprintf(":%d", *port)
	cfg.IndexPath = *indexPath
	cfg.Volumes = parseVolumes(*volumesFlag)
	cfg.Replicas = *replicas
	cfg.Subvolumes = *subvolumes
	cfg.LockShards = *lockShards
	cfg.MaxIdleConnsPerHost = *remoteConns
	cfg.RemoteTimeout = *remoteTO
	cfg.ListDefaultLimit = *listLimit

	store, err := index.Open(cfg.IndexPath)
	if err != nil {
		log.Fatal("failed to open index", zap.Error(err), zap.String("path", cfg.IndexPath))
	}
	defer func() { _ = store.Close() }()

	if fi, statErr := os.Stat(cfg.IndexPath); statErr == nil {
		log.Info("index opened", zap.String("path", cfg.IndexPath), zap.String("size", humanize.Bytes(uint64(fi.Size()))))
	}

	ring, err := placement.New(cfg.Volumes, cfg.Replicas, cfg.Subvolumes)
	if err != nil {
		log.Fatal("failed to build placement ring", zap.Error(err))
	}

	volumeCli := volume.New(cfg.MaxIdleConnsPerHost, cfg.RemoteTimeout)

	m := master.New(cfg, store, ring, volumeCli, log)

	log.Info("minikeyvalue master starting",
		zap.String("bind", cfg.Bind),
		zap.Strings("volumes", cfg.Volumes),
		zap.Int("replicas", cfg.Replicas),
		zap.Int("subvolumes", cfg.Subvolumes),
	)

	srv := &http.Server{
		Addr:    cfg.Bind,
		Handler: m.Handler(),
	}
	log.Fatal("listener exited", zap.Error(srv.ListenAndServe()))
}
