// Package storage selects the interfaces.Host backend from configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/storage-inspector/internal/browser"
	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/storage/memory"
)

// MemoryTargetID is the tab id reported by the in-memory backend.
const MemoryTargetID = "memory"

// NewHost creates the host named by cfg.Storage.Backend.
func NewHost(ctx context.Context, cfg *config.Config, logger *common.Logger) (interfaces.Host, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		url := cfg.Browser.StartURL
		if url == "" || url == "about:blank" {
			url = "http://localhost/"
		}
		logger.Info().Str("url", url).Msg("using in-memory storage backend")
		return memory.New(models.Target{ID: MemoryTargetID, URL: url, Title: "in-memory"}), nil

	case config.BackendCDP, "":
		host, err := browser.Connect(ctx, browser.Config{
			RemoteURL: cfg.Browser.RemoteURL,
			TargetURL: cfg.Browser.TargetURL,
			StartURL:  cfg.Browser.StartURL,
			Headless:  cfg.Browser.Headless,
			Timeout:   cfg.Browser.GetTimeout(),
		}, logger)
		if err != nil {
			return nil, err
		}
		return host, nil
	}
	return nil, fmt.Errorf("%w: storage backend %q", models.ErrUnsupported, cfg.Storage.Backend)
}
