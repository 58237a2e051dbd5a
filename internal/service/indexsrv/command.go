package indexsrv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	api "github.com/oshokin/relcut/internal/api/http/index"
	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/repository/catalog"
)

// Options controls the relcut-index process.
type Options struct {
	// ListenAddress is the HTTP listen address (e.g. ":8417").
	ListenAddress string
	// DataDir is where artifact and manifest bytes are stored.
	DataDir string
	// DatabasePath is the sqlite catalog location; defaults to DataDir/catalog.db.
	DatabasePath string
	// GracePeriod is how long superseded releases stay before prune removes them.
	GracePeriod time.Duration
}

const (
	// DefaultDataDir is where the index stores uploads unless overridden.
	DefaultDataDir = "relcut-index-data"

	// shutdownTimeout bounds the graceful drain of in-flight requests.
	shutdownTimeout = 10 * time.Second

	// readHeaderTimeout guards against slow-header clients.
	readHeaderTimeout = 5 * time.Second
)

// ErrNoListenAddress indicates missing server configuration.
var ErrNoListenAddress = errors.New("no listen address configured")

// Run starts the index server and blocks until the context is canceled
// or the server stops.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "relcut-index")

	if opts.ListenAddress == "" {
		return ErrNoListenAddress
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	databasePath := opts.DatabasePath
	if databasePath == "" {
		databasePath = filepath.Join(dataDir, "catalog.db")
	}

	gracePeriod := opts.GracePeriod
	if gracePeriod <= 0 {
		gracePeriod = config.DefaultGracePeriod
	}

	repo, err := catalog.Open(databasePath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	defer func() {
		_ = repo.Close()
	}()

	service := NewService(repo, dataDir, gracePeriod)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.ListenAddress, err)
	}

	//nolint:exhaustruct // Remaining http.Server fields keep their defaults.
	httpServer := &http.Server{
		Handler:           api.NewServer(service).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	logger.InfoKV(ctx, "Index server listening",
		"listen_address", opts.ListenAddress, "data_dir", dataDir, "grace_period", gracePeriod.String())

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down index server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = httpServer.Shutdown(shutdownCtx)
		close(done)
	}()

	if err = httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve index: %w", err)
	}

	<-done
	logger.Info(ctx, "Index server stopped")

	return nil
}
