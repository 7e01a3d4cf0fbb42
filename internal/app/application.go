package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/simaofelgueirasJM/flipper/internal/cli"
	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/network"
	"github.com/simaofelgueirasJM/flipper/internal/reporter"
	"github.com/simaofelgueirasJM/flipper/internal/server"
	"github.com/simaofelgueirasJM/flipper/internal/store"
	"github.com/simaofelgueirasJM/flipper/internal/webclient"
)

// Application is the global runtime state container.
// It holds config, parsed CLI args and the core services shared across
// modules. Every capture goes to the store, the websocket hub and the log.
type Application struct {
	Config *Config
	Args   *cli.CLIArgs
	Logger logging.Logger

	Store  *store.SQLiteStore
	Server *server.Server
	Client *webclient.NetHTTPClient

	reporter   reporter.Reporter
	baseClient *http.Client
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error

	// internal context for cancellation / lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewApplication builds every component from cfg. CLI overrides in args are
// applied on top of cfg. A nil logger writes JSON lines to stderr.
func NewApplication(cfg *Config, args *cli.CLIArgs, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if args == nil {
		args = &cli.CLIArgs{}
	}
	if args.Addr != "" {
		cfg.Server.ListenAddr = args.Addr
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.NewWriterLogger("flipper", os.Stderr, logging.ParseLevel(cfg.LogLevel))
	}

	path, err := cfg.storagePath()
	if err != nil {
		return nil, err
	}
	storeCfg := cfg.Store
	storeCfg.StoragePath = path
	st, err := store.NewSQLiteStore(logger, &storeCfg)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	serverCfg := cfg.Server
	if cfg.Overlay.Density > 0 {
		serverCfg.OverlayDensity = cfg.Overlay.Density
	}
	srv, err := server.NewServer(serverCfg, st, nil, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("new server: %w", err)
	}

	rep := reporter.NewMulti(st, srv.Hub(), reporter.NewLogging(logger))
	ic := network.NewInterceptor(rep, logger, cfg.Capture)

	timeout := cfg.WebClient.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().WebClient.Timeout
	}
	base := &http.Client{Timeout: timeout}
	wc, err := webclient.NewNetHTTPClient(cfg.WebClient, logger, base, ic)
	if err != nil {
		srv.Close()
		st.Close()
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		Config:     cfg,
		Args:       args,
		Logger:     logger,
		Store:      st,
		Server:     srv,
		Client:     wc,
		reporter:   rep,
		baseClient: base,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start listens on the configured address and serves the inspection API in
// the background. Use Addr for the bound address and Done for serve errors.
func (a *Application) Start() error {
	if a == nil {
		return errors.New("application is nil")
	}
	if a.httpServer != nil {
		return errors.New("application already started")
	}

	hs := a.Server.HTTPServer()
	ln, err := net.Listen("tcp", hs.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", hs.Addr, err)
	}
	a.httpServer = hs
	a.listener = ln
	a.serveErr = make(chan error, 1)

	a.Logger.Info("application starting", logging.Field{Key: "addr", Value: ln.Addr().String()})

	go func() {
		err := hs.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		a.serveErr <- err
		close(a.serveErr)
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (a *Application) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Done yields the serve loop's terminal error (nil on clean shutdown).
// It is nil before Start.
func (a *Application) Done() <-chan error {
	return a.serveErr
}

// Fetch performs req through the capturing client and returns the
// transaction it produced. Transport errors are returned after the request
// record has been reported.
func (a *Application) Fetch(ctx context.Context, req *webclient.Request) (*model.Transaction, error) {
	if a == nil {
		return nil, errors.New("application is nil")
	}
	if req == nil {
		return nil, errors.New("fetch: nil request")
	}

	// A per-call interceptor adds a private memory sink so the caller gets
	// back exactly this transaction.
	mem := reporter.NewMemory()
	ic := network.NewInterceptor(reporter.NewMulti(a.reporter, mem), a.Logger, a.Config.Capture)
	wc, err := webclient.NewNetHTTPClient(a.Config.WebClient, a.Logger, a.baseClient, ic)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	if _, err := wc.Do(ctx, req); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	reqs := mem.Requests()
	if len(reqs) == 0 {
		return nil, errors.New("fetch: no request captured")
	}
	// Redirects produce several transactions; the last one is the final hop.
	tx, ok := mem.Transaction(reqs[len(reqs)-1].RequestID)
	if !ok {
		return nil, errors.New("fetch: no transaction captured")
	}
	return &tx, nil
}

// Shutdown stops the HTTP server, disconnects websocket clients and closes
// the store. It is safe to call more than once.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}

	var firstErr error
	a.once.Do(func() {
		a.Logger.Info("application shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		// Hub first: hijacked websocket connections are not tracked by
		// http.Server.Shutdown.
		a.Server.Close()
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn("http server shutdown returned error", logging.Err(err))
				firstErr = fmt.Errorf("shutdown http server: %w", err)
			}
		}
		if err := a.Client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close webclient: %w", err)
		}
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}

		// cancel internal ctx to signal local components/tests
		a.cancel()
	})
	return firstErr
}
