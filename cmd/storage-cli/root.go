package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/storage-inspector/internal/app"
	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

var rootCmd = &cobra.Command{
	Use:   "storage-cli",
	Short: "Inspect and edit the browser storage of a tab",
	Long: "storage-cli attaches to a Chromium tab over the DevTools protocol and lists, edits,\n" +
		"deletes, exports and imports its cookies, localStorage and sessionStorage, plus\n" +
		"its service workers and Cache Storage buckets.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceP("config", "c", nil, "Configuration file path (repeatable)")
	pf.String("remote", "", "DevTools URL of a running browser, e.g. http://localhost:9222")
	pf.String("target", "", "Inspect the first tab whose URL contains this text")
	pf.String("backend", "", "Storage backend: cdp or memory")
	pf.String("log-level", "warn", "Log level for diagnostics written to stderr")
}

// loadConfig resolves configuration from files, INSPECTOR_* variables and
// the persistent flags, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("config")
	if len(files) == 0 {
		files = config.Discover(".")
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	remote, _ := cmd.Flags().GetString("remote")
	target, _ := cmd.Flags().GetString("target")
	backend, _ := cmd.Flags().GetString("backend")
	config.ApplyBrowserFlagOverrides(cfg, remote, target, backend)

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}
	return cfg, nil
}

// openApp attaches to the configured browser and builds the inspector
// stack in-process. Callers must Close the returned App.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := common.NewLoggerFromConfig(cfg.Logging)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Browser.GetTimeout())
	defer cancel()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("attach to browser: %w", err)
	}
	return application, nil
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	application, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			pterm.Warning.Printfln("closing browser session: %v", cerr)
		}
	}()
	return fn(application)
}

// parseItemType parses a --type flag that must name a single row type.
func parseItemType(raw string) (models.Category, error) {
	category, err := models.ParseItemFilter(raw)
	if err != nil {
		return "", err
	}
	if category == "" {
		return "", fmt.Errorf("%w: --type must be cookie, local or session", models.ErrInvalidArgument)
	}
	return category, nil
}
