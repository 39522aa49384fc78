package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/app"
	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/server"
)

const shutdownTimeout = 10 * time.Second

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// options holds the parsed command line.
type options struct {
	configFiles stringList
	port        int
	host        string
	remote      string
	target      string
	backend     string
	version     bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	fs.Var(&o.configFiles, "config", "Configuration file path (repeatable)")
	fs.Var(&o.configFiles, "c", "Configuration file path (shorthand)")
	fs.IntVar(&o.port, "port", 0, "Server port (overrides config)")
	fs.IntVar(&o.port, "p", 0, "Server port (shorthand)")
	fs.StringVar(&o.host, "host", "", "Server host (overrides config)")
	fs.StringVar(&o.remote, "remote", "", "DevTools URL of a running browser, e.g. http://localhost:9222")
	fs.StringVar(&o.target, "target", "", "Inspect the first tab whose URL contains this text")
	fs.StringVar(&o.backend, "backend", "", "Storage backend: cdp or memory")
	fs.BoolVar(&o.version, "version", false, "Print version information")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(o.configFiles) == 0 {
		o.configFiles = config.Discover(config.DefaultBases()...)
	}
	return o, nil
}

// loadConfig layers TOML files, INSPECTOR_* variables and flags.
func loadConfig(o *options) (*config.Config, error) {
	cfg, err := config.LoadFromFiles(o.configFiles...)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	config.ApplyFlagOverrides(cfg, o.port, o.host)
	config.ApplyBrowserFlagOverrides(cfg, o.remote, o.target, o.backend)

	if issues := cfg.Validate(); len(issues) > 0 {
		var b strings.Builder
		b.WriteString("configuration error:\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
		b.WriteString("values can be set via TOML file, INSPECTOR_* environment variables, or CLI flags")
		return nil, errors.New(b.String())
	}
	return cfg, nil
}

func run(ctx context.Context, o *options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().
		Int("port", cfg.Server.Port).
		Str("host", cfg.Server.Host).
		Str("environment", cfg.Environment).
		Str("backend", cfg.Storage.Backend).
		Strs("config_files", o.configFiles).
		Msg("configuration loaded")

	attachCtx, cancelAttach := context.WithTimeout(ctx, 2*cfg.Browser.GetTimeout())
	application, err := app.New(attachCtx, cfg, logger)
	cancelAttach()
	if err != nil {
		return fmt.Errorf("attach to browser: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error().Err(err).Msg("application shutdown failed")
		}
	}()

	srv := server.New(application)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("target", application.Facade.Target().URL).
		Msg("server ready")

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if o.version {
		fmt.Printf("storage-inspector version %s\n", config.GetFullVersion())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
