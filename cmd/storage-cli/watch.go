package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/storage-inspector/internal/app"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/relay"
)

// Attacher subscribes a refreshing view to the relay.
type Attacher interface {
	Attach(r *relay.Relay, id string, onChange func(models.Snapshot, models.ChangeNotification)) (unsubscribe func())
}

// WatchCmd streams change notifications until the context ends.
type WatchCmd struct {
	view  Attacher
	relay *relay.Relay
	out   io.Writer
}

// WatchInput holds input for watching storage.
type WatchInput struct {
	// Origin limits output to "page" or "tool" changes. Empty shows both.
	Origin string
}

// Watch prints one line per change, after the view has refreshed.
func (c WatchCmd) Watch(ctx context.Context, in WatchInput) error {
	if in.Origin != "" && !lo.Contains([]string{models.OriginPage, models.OriginTool}, in.Origin) {
		return fmt.Errorf("%w: --origin must be page or tool", models.ErrInvalidArgument)
	}

	unsubscribe := c.view.Attach(c.relay, "cli-watch-"+uuid.NewString(), func(snap models.Snapshot, n models.ChangeNotification) {
		if in.Origin != "" && n.Origin != in.Origin {
			return
		}
		fmt.Fprintf(c.out, "%s  %-6s %-15s %-6s %-24s rows=%d\n",
			n.At.Format(time.TimeOnly),
			lo.Ternary(n.Origin == "", "-", n.Origin),
			lo.Ternary(n.Category == "", "-", n.Category.Label()),
			lo.Ternary(n.Op == "", "-", n.Op),
			lo.Ternary(n.Key == "", "-", n.Key),
			len(snap.Items()))
	})
	defer unsubscribe()

	<-ctx.Done()
	return nil
}

// --- Cobra wiring ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream storage changes",
	Long:  "Print a line for every storage change of the inspected tab until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("origin", "", "Only show changes made by the page or by a tool")
}

func runWatch(cmd *cobra.Command, args []string) error {
	origin, _ := cmd.Flags().GetString("origin")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(cmd, func(a *app.App) error {
		pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", a.Facade.Target().URL)
		c := WatchCmd{view: a.View, relay: a.Relay, out: os.Stdout}
		return c.Watch(ctx, WatchInput{Origin: origin})
	})
}
