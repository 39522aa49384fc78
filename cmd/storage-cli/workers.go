package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/storage-inspector/internal/app"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// RegistryView is the subset of the surface view used for service workers
// and Cache Storage.
type RegistryView interface {
	RefreshWorkers(ctx context.Context) ([]models.ServiceWorker, error)
	RefreshCaches(ctx context.Context) ([]models.Cache, error)
	Delete(ctx context.Context, id models.RecordID) error
}

// RegistryCmd handles service worker and cache operations.
type RegistryCmd struct {
	view RegistryView
	out  io.Writer
}

// ListWorkersInput holds input for listing service workers.
type ListWorkersInput struct {
	JSON bool
}

// ListWorkers prints the service worker registrations of the page origin.
func (c RegistryCmd) ListWorkers(ctx context.Context, in ListWorkersInput) error {
	workers, err := c.view.RefreshWorkers(ctx)
	if err != nil {
		return err
	}
	if in.JSON {
		return printJSON(c.out, workers)
	}
	if len(workers) == 0 {
		pterm.Info.Println("No service workers registered")
		return nil
	}

	rows := pterm.TableData{{"ID", "Status", "Script"}}
	rows = append(rows, lo.Map(workers, func(w models.ServiceWorker, _ int) []string {
		return []string{w.ID, w.Status, w.ScriptURL}
	})...)
	PrintTableNoPad(c.out, rows, true)
	return nil
}

// UnregisterInput holds input for unregistering a service worker.
type UnregisterInput struct {
	ID string
}

// Unregister removes a service worker registration.
func (c RegistryCmd) Unregister(ctx context.Context, in UnregisterInput) error {
	if err := c.view.Delete(ctx, models.RecordID{Category: models.CategoryServiceWorker, Key: in.ID}); err != nil {
		return err
	}
	pterm.Success.Printfln("Unregistered service worker %s", in.ID)
	return nil
}

// ListCachesInput holds input for listing caches.
type ListCachesInput struct {
	URLs bool
	JSON bool
}

// ListCaches prints the Cache Storage buckets with their entry counts, or
// every cached URL when URLs is set.
func (c RegistryCmd) ListCaches(ctx context.Context, in ListCachesInput) error {
	caches, err := c.view.RefreshCaches(ctx)
	if err != nil {
		return err
	}
	if in.JSON {
		return printJSON(c.out, caches)
	}
	if len(caches) == 0 {
		pterm.Info.Println("No caches found")
		return nil
	}

	if in.URLs {
		rows := pterm.TableData{{"Cache", "URL"}}
		for _, cache := range caches {
			rows = append(rows, lo.Map(cache.URLs, func(u string, _ int) []string {
				return []string{cache.Name, u}
			})...)
		}
		PrintTableNoPad(c.out, rows, true)
		return nil
	}

	rows := pterm.TableData{{"Name", "Entries"}}
	rows = append(rows, lo.Map(caches, func(cache models.Cache, _ int) []string {
		return []string{cache.Name, fmt.Sprint(len(cache.URLs))}
	})...)
	PrintTableNoPad(c.out, rows, true)
	return nil
}

// DeleteCacheInput holds input for deleting a cache.
type DeleteCacheInput struct {
	Name string
}

// DeleteCache removes a Cache Storage bucket.
func (c RegistryCmd) DeleteCache(ctx context.Context, in DeleteCacheInput) error {
	if err := c.view.Delete(ctx, models.RecordID{Category: models.CategoryCache, Key: in.Name}); err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted cache %s", in.Name)
	return nil
}

// --- Cobra wiring ---

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List service workers",
	Args:  cobra.NoArgs,
	RunE:  runWorkersList,
}

var workersUnregisterCmd = &cobra.Command{
	Use:   "unregister <id>",
	Short: "Unregister a service worker",
	Long:  "Unregister a service worker by its registration scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkersUnregister,
}

var cachesCmd = &cobra.Command{
	Use:   "caches",
	Short: "List Cache Storage buckets",
	Args:  cobra.NoArgs,
	RunE:  runCachesList,
}

var cachesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runCachesDelete,
}

func init() {
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(cachesCmd)
	workersCmd.AddCommand(workersUnregisterCmd)
	cachesCmd.AddCommand(cachesDeleteCmd)

	workersCmd.Flags().Bool("json", false, "Print registrations as JSON")
	cachesCmd.Flags().Bool("json", false, "Print caches as JSON")
	cachesCmd.Flags().Bool("urls", false, "List every cached request URL")
}

func newRegistryCmd(a *app.App) RegistryCmd {
	return RegistryCmd{view: a.View, out: os.Stdout}
}

func runWorkersList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	return withApp(cmd, func(a *app.App) error {
		return newRegistryCmd(a).ListWorkers(cmd.Context(), ListWorkersInput{JSON: asJSON})
	})
}

func runWorkersUnregister(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		return newRegistryCmd(a).Unregister(cmd.Context(), UnregisterInput{ID: args[0]})
	})
}

func runCachesList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	urls, _ := cmd.Flags().GetBool("urls")
	return withApp(cmd, func(a *app.App) error {
		return newRegistryCmd(a).ListCaches(cmd.Context(), ListCachesInput{URLs: urls, JSON: asJSON})
	})
}

func runCachesDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		return newRegistryCmd(a).DeleteCache(cmd.Context(), DeleteCacheInput{Name: args[0]})
	})
}
