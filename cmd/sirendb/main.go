package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sirendb/sirendb/internal/config"
	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/executor"
	"github.com/sirendb/sirendb/internal/metrics"
	"github.com/sirendb/sirendb/internal/otel"
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/server"
	"github.com/sirendb/sirendb/internal/sirendb"
	"github.com/sirendb/sirendb/internal/storage/sqlstore"
)

const rootUsage = `sirendb — GraphQL API over the siren catalogue

USAGE:
  sirendb <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server
  compile-sdl      Print the GraphQL schema
  init-db          Create missing catalogue tables
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>              YAML configuration file
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.timeout <duration>  Per-request timeout, e.g. 10s (default: 10s)
  -db.driver <name>           postgres, mysql or sqlite (default: sqlite)
  -db.dsn <dsn>               Database connection string
  -media.base-url <url>       Enable media download URLs under this base
  -otel.endpoint <addr>       OTLP collector endpoint
`

const compileSDLUsage = `compile-sdl FLAGS:
  -out <file>  Write the SDL to file (default: stdout)
`

const initDBUsage = `init-db FLAGS:
  -config <file>     YAML configuration file
  -db.driver <name>  postgres, mysql or sqlite
  -db.dsn <dsn>      Database connection string
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "sirendb:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(ctx, cmdArgs, stderr)
	case "compile-sdl":
		return cmdCompileSDL(cmdArgs, stdout, stderr)
	case "init-db":
		return cmdInitDB(ctx, cmdArgs, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "compile-sdl":
		fmt.Fprint(stdout, compileSDLUsage)
	case "init-db":
		fmt.Fprint(stdout, initDBUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// configFlags registers the flags shared by serve and init-db. The returned
// function loads the file and applies the flags that were set.
func configFlags(fs *flag.FlagSet) func() (*config.Config, error) {
	path := fs.String("config", "", "YAML configuration file")
	driver := fs.String("db.driver", "", "database driver")
	dsn := fs.String("db.dsn", "", "database connection string")

	return func() (*config.Config, error) {
		cfg, err := config.Load(*path)
		if err != nil {
			return nil, err
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if set["db.driver"] {
			cfg.Database.Driver = *driver
		}
		if set["db.dsn"] {
			cfg.Database.DSN = *dsn
		}
		return cfg, cfg.Validate()
	}
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	load := configFlags(fs)
	addr := fs.String("server.addr", "", "HTTP listen address")
	pretty := fs.Bool("server.pretty", false, "Pretty-print JSON responses")
	timeout := fs.Duration("server.timeout", 0, "Per-request timeout")
	mediaURL := fs.String("media.base-url", "", "Media download base URL")
	otelEndpoint := fs.String("otel.endpoint", "", "OTLP collector endpoint")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	cfg, err := load()
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server.addr":
			cfg.Server.Addr = *addr
		case "server.pretty":
			cfg.Server.Pretty = *pretty
		case "server.timeout":
			cfg.Server.Timeout = *timeout
		case "media.base-url":
			cfg.Media = config.Media{Enabled: *mediaURL != "", BaseURL: *mediaURL}
		case "otel.endpoint":
			cfg.Telemetry.OTLPEndpoint = *otelEndpoint
		}
	})

	logger := cfg.Logger(stderr)
	slog.SetDefault(logger)

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, bus)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	a, err := newApp(ctx, cfg, bus, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("GraphQL server listening", "addr", ln.Addr().String(), "driver", cfg.Database.Driver)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type app struct {
	handler http.Handler
	store   *sqlstore.Store
}

func (a *app) close() { _ = a.store.Close() }

// newApp opens the store and wires the registry, executor and HTTP routes.
func newApp(ctx context.Context, cfg *config.Config, bus *eventbus.Bus, logger *slog.Logger) (*app, error) {
	reg, dispatch, err := sirendb.Build(sirendb.MediaStorage{Enabled: cfg.Media.Enabled, BaseURL: cfg.Media.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	engine, err := projection.NewEngine(reg, dispatch, projection.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN, sirendb.Tables(), sqlstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		store.DB().SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.AutoMigrate {
		if err := sirendb.EnsureSchema(ctx, store.DB(), cfg.Database.Driver); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	exec := executor.New(reg, store, engine, executor.WithLogger(logger))
	opts := []server.Option{server.WithLogger(logger), server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		opts = append(opts, server.WithTimeout(cfg.Server.Timeout))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.New(exec, opts...))
	mux.Handle("/schema.graphql", server.SDLHandler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	})

	if cfg.Telemetry.Metrics {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(promReg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		m.Attach(bus)
		mux.Handle("/metrics", metrics.Handler(promReg))
	}

	return &app{handler: mux, store: store}, nil
}

func cmdCompileSDL(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compile-sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	outFile := fs.String("out", "", "Write the SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, compileSDLUsage)
		return err
	}

	reg, _, err := sirendb.Build(sirendb.MediaStorage{})
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := reg.SDL()
	if !strings.HasSuffix(sdl, "\n") {
		sdl += "\n"
	}
	if *outFile == "" {
		_, err := io.WriteString(stdout, sdl)
		return err
	}
	return os.WriteFile(*outFile, []byte(sdl), 0o644)
}

func cmdInitDB(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	load := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, initDBUsage)
		return err
	}
	cfg, err := load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN, sirendb.Tables())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	if err := sirendb.EnsureSchema(ctx, store.DB(), cfg.Database.Driver); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	logger.Info("catalogue tables ready", "driver", cfg.Database.Driver, "tables", len(sirendb.Tables()))
	return nil
}
